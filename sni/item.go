package sni

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

// ItemCategory describes the nature of the application an item belongs to.
type ItemCategory string

// StatusNotifierItem categories.
const (
	// The item describes the status of a generic application, for instance the
	// current state of a media player.
	ItemCategoryApplicationStatus ItemCategory = "ApplicationStatus"

	// The item describes the status of communication oriented applications, like
	// an instant messenger or an email client.
	ItemCategoryCommunications ItemCategory = "Communications"

	// The item describes services of the system not seen as a stand alone
	// application by the user.
	ItemCategorySystemServices ItemCategory = "SystemServices"

	// The item describes the state and control of a particular hardware.
	ItemCategoryHardware ItemCategory = "Hardware"
)

// ItemStatus tells hosts how prominently to show an item.
type ItemStatus string

// StatusNotifierItem statuses.
const (
	ItemStatusPassive        ItemStatus = "Passive"
	ItemStatusActive         ItemStatus = "Active"
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
)

// Tooltip is the ToolTip property of an item, (sa(iiay)ss).
type Tooltip struct {
	IconName    string
	Icon        []Pixmap
	Title       string
	Description string
}

// item is one tray exported as a StatusNotifierItem. Every item owns a bus
// connection and a well-known name on it; the watcher forgets the item when
// that name goes away.
type item struct {
	lib  *Library
	tray native.Handle
	id   string
	name string
	conn *dbus.Conn

	path     dbus.ObjectPath
	menuPath dbus.ObjectPath
	menu     *menuObject

	props     *prop.Properties
	menuProps *prop.Properties
}

// itemObject carries the D-Bus methods of an item. They run on the
// connection's goroutines.
type itemObject struct {
	it *item
}

// Activate is called on a primary click. Trays are menu-only, so it only
// logs; hosts open the menu instead.
func (o itemObject) Activate(x, y int32) *dbus.Error {
	o.it.lib.log.Debug("item activated", "id", o.it.id, "x", x, "y", y)
	return nil
}

// SecondaryActivate is called on a middle click.
func (o itemObject) SecondaryActivate(x, y int32) *dbus.Error {
	o.it.lib.log.Debug("item secondary activated", "id", o.it.id, "x", x, "y", y)
	return nil
}

// ContextMenu is called by hosts that cannot show the dbusmenu themselves.
func (o itemObject) ContextMenu(x, y int32) *dbus.Error {
	o.it.lib.log.Debug("item context menu requested", "id", o.it.id, "x", x, "y", y)
	return nil
}

// Scroll is called on a mouse wheel event over the item.
func (o itemObject) Scroll(delta int32, orientation string) *dbus.Error {
	o.it.lib.log.Debug("item scrolled", "id", o.it.id, "delta", delta, "orientation", orientation)
	return nil
}

// itemProperties returns the StatusNotifierItem properties for state.
func (it *item) itemProperties(state headless.TrayState) map[string]any {
	tooltip := Tooltip{Icon: []Pixmap{}}
	if state.Tooltip != nil {
		tooltip.Title = *state.Tooltip
	}

	title := it.lib.title
	if title == "" {
		title = tooltip.Title
	}

	return map[string]any{
		"Category":            string(it.lib.category),
		"Id":                  it.id,
		"Title":               title,
		"Status":              string(ItemStatusActive),
		"WindowId":            int32(0),
		"IconName":            "",
		"IconPixmap":          pixmaps(state.Icon),
		"OverlayIconName":     "",
		"OverlayIconPixmap":   []Pixmap{},
		"AttentionIconName":   "",
		"AttentionIconPixmap": []Pixmap{},
		"AttentionMovieName":  "",
		"ToolTip":             tooltip,
		"ItemIsMenu":          true,
		"Menu":                it.menuPath,
	}
}

// export publishes the item and its menu on the bus and registers the item
// with the watcher.
func (it *item) export(conn *dbus.Conn, state headless.TrayState) error {
	if err := conn.Export(itemObject{it}, it.path, StatusNotifierItemInterface); err != nil {
		return fmt.Errorf("export %s: %w", StatusNotifierItemInterface, err)
	}

	props, err := prop.Export(conn, it.path, prop.Map{
		StatusNotifierItemInterface: readOnly(it.itemProperties(state)),
	})
	if err != nil {
		return fmt.Errorf("export item properties: %w", err)
	}
	it.props = props

	if err := conn.Export(it.menu, it.menuPath, MenuInterface); err != nil {
		return fmt.Errorf("export %s: %w", MenuInterface, err)
	}

	menuProps, err := prop.Export(conn, it.menuPath, prop.Map{
		MenuInterface: readOnly(it.menu.properties()),
	})
	if err != nil {
		return fmt.Errorf("export menu properties: %w", err)
	}
	it.menuProps = menuProps

	call := conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath).Call(
		StatusNotifierWatcherInterface+".RegisterStatusNotifierItem",
		0,
		it.name,
	)
	if call.Err != nil {
		return fmt.Errorf("register item: %w", call.Err)
	}

	return nil
}

// unexport removes the item and its menu from the bus.
func (it *item) unexport(conn *dbus.Conn) {
	for _, path := range []dbus.ObjectPath{it.path, it.menuPath} {
		conn.Export(nil, path, StatusNotifierItemInterface)
		conn.Export(nil, path, MenuInterface)
		conn.Export(nil, path, "org.freedesktop.DBus.Properties")
	}
}

// update publishes a new icon and tooltip.
func (it *item) update(state headless.TrayState) {
	props := it.itemProperties(state)

	if it.props != nil {
		for _, name := range []string{"Title", "IconPixmap", "ToolTip"} {
			it.props.SetMust(StatusNotifierItemInterface, name, props[name])
		}
	}

	it.emit(it.path, StatusNotifierItemInterface+".NewTitle")
	it.emit(it.path, StatusNotifierItemInterface+".NewIcon")
	it.emit(it.path, StatusNotifierItemInterface+".NewToolTip")
}

func (it *item) emit(path dbus.ObjectPath, name string, values ...any) {
	it.lib.emit(it.conn, path, name, values...)
}

func readOnly(values map[string]any) map[string]*prop.Prop {
	props := make(map[string]*prop.Prop, len(values))
	for name, value := range values {
		props[name] = &prop.Prop{
			Value:    value,
			Writable: false,
			Emit:     prop.EmitTrue,
		}
	}
	return props
}
