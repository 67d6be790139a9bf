// Package nativetray wraps the system tray API of a native multimedia
// library. It turns opaque native handles into a typed tree of [Tray],
// [Menu] and [Entry] values and manages the lifetime of the native-callable
// trampolines behind entry click callbacks.
//
// # Usage
//
// A tray is created from a [native.Library] and a declarative description:
//
//	tray, err := nativetray.New(lib, nativetray.Options{
//		Tooltip: "Example",
//		Menu: []nativetray.MenuItem{
//			nativetray.Button("Open", open),
//			nativetray.Separator(),
//			nativetray.Button("Quit", quit),
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer tray.Destroy()
//
// The native library, and therefore every method of this package, must only
// be used from the goroutine that created the tray. Click callbacks run on
// that goroutine too: [Entry.Click] and the backend event pump call them
// synchronously, nested inside the call that triggered them.
//
// # Ownership
//
// A [Tray] owns its native handle, its top-level menu and every trampoline
// registered for one of its entries. [Entry.Remove] retires the trampolines
// of the removed subtree and [Tray.Destroy] retires all of them. Wrappers
// whose native object has been freed report [UseAfterDestroyError] instead
// of touching the freed handle.
package nativetray
