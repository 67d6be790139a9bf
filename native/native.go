// Package native defines the contract between package nativetray and the
// native tray library it drives.
//
// Every method of [Library] corresponds to one entry point of the native
// library. Handles are opaque: the zero [Handle] is the null pointer, and its
// kind (tray, menu, entry, surface) is carried by the caller.
//
// Implementations are not required to be safe for concurrent use. All calls
// must happen on the goroutine (usually the locked main thread) that created
// the tray.
package native

// Handle is an opaque pointer to an object owned by the native library.
type Handle uintptr

// Null reports whether h is the null handle.
func (h Handle) Null() bool {
	return h == 0
}

// Trampoline is a native-callable function allocated by [Library.NewTrampoline].
// The zero Trampoline means "no callback".
type Trampoline uintptr

// EntryFlags selects the kind of a tray entry and its initial state.
//
// Exactly one of [EntryButton], [EntryCheckbox] and [EntrySubmenu] must be
// set. [EntryDisabled] and [EntryChecked] are optional modifiers.
type EntryFlags uint32

const (
	EntryButton   EntryFlags = 0x00000001
	EntryCheckbox EntryFlags = 0x00000002
	EntrySubmenu  EntryFlags = 0x00000004
	EntryDisabled EntryFlags = 0x80000000
	EntryChecked  EntryFlags = 0x40000000
)

// KindMask covers the required kind bits.
const KindMask = EntryButton | EntryCheckbox | EntrySubmenu

// Kind returns the required kind bits of f.
func (f EntryFlags) Kind() EntryFlags {
	return f & KindMask
}

// Has reports whether all bits of flag are set in f.
func (f EntryFlags) Has(flag EntryFlags) bool {
	return f&flag == flag
}

// Append is the insert position that appends to the end of a menu.
const Append = -1

// Library is the set of native entry points used by package nativetray.
//
// Factory methods return the null handle on failure; the reason is available
// from [Library.Error] until the next native call.
type Library interface {
	// Error returns the process-global error string of the last failed call.
	Error() string

	// LoadSurface loads an image file into a transient surface.
	LoadSurface(path string) Handle
	DestroySurface(surface Handle)

	CreateTray(icon Handle, tooltip *string) Handle
	DestroyTray(tray Handle)
	SetTrayIcon(tray Handle, icon Handle)
	SetTrayTooltip(tray Handle, tooltip *string)

	CreateTrayMenu(tray Handle) Handle
	GetTrayMenu(tray Handle) Handle
	CreateTraySubmenu(entry Handle) Handle
	GetTraySubmenu(entry Handle) Handle

	// GetTrayEntries returns a copy of the menu's entry array.
	GetTrayEntries(menu Handle) []Handle
	InsertTrayEntryAt(menu Handle, pos int, label *string, flags EntryFlags) Handle
	RemoveTrayEntry(entry Handle)

	SetTrayEntryLabel(entry Handle, label *string)
	GetTrayEntryLabel(entry Handle) *string
	SetTrayEntryChecked(entry Handle, checked bool)
	GetTrayEntryChecked(entry Handle) bool
	SetTrayEntryEnabled(entry Handle, enabled bool)
	GetTrayEntryEnabled(entry Handle) bool

	// NewTrampoline allocates a native-callable function that calls fn with
	// the clicked entry. It must be released with FreeTrampoline.
	NewTrampoline(fn func(entry Handle)) Trampoline
	FreeTrampoline(t Trampoline)

	// SetTrayEntryCallback installs t as the click callback of entry. The zero
	// Trampoline removes the callback.
	SetTrayEntryCallback(entry Handle, t Trampoline)

	// ClickTrayEntry simulates a click. The entry's callback runs before
	// ClickTrayEntry returns.
	ClickTrayEntry(entry Handle)

	GetTrayEntryParent(entry Handle) Handle
	GetTrayMenuParentEntry(menu Handle) Handle
	GetTrayMenuParentTray(menu Handle) Handle
}

// Pumper is implemented by libraries that need their event queue drained
// periodically on the owning goroutine.
type Pumper interface {
	Pump()
}

// String returns a pointer to s, for optional string arguments.
func String(s string) *string {
	return &s
}
