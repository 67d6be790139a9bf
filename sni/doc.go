// Package sni shows native trays on Linux desktops through the
// [StatusNotifierItem] protocol over D-Bus.
//
// [Library] keeps the tray tree in memory and exports every tray as an
// org.kde.StatusNotifierItem object with a com.canonical.dbusmenu menu.
// Panel hosts such as KDE Plasma, waybar or the GNOME AppIndicator extension
// draw the icon and the menu; clicks come back as D-Bus events and are
// delivered to the tray callbacks by [Library.Pump].
//
// Example usage:
//
//	conn, err := dbus.ConnectSessionBus()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
//	lib, err := sni.New(conn, sni.WithEmbeddedWatcher())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer lib.Close()
//
//	tray, err := nativetray.New(lib, nativetray.Options{
//		Tooltip: "example",
//		Menu:    []nativetray.MenuItem{nativetray.Button("Quit", quit)},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer tray.Destroy()
//
//	for range time.Tick(50 * time.Millisecond) {
//		lib.Pump()
//	}
//
// [RegisteredItems] reads the items other processes registered with the
// StatusNotifierWatcher.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package sni
