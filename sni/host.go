package sni

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const getProperty = "org.freedesktop.DBus.Properties.Get"

// RemoteItem describes a StatusNotifierItem registered with the watcher,
// read over the bus.
type RemoteItem struct {
	// Unique bus name of the process exporting the item.
	UniqueName string

	// Path of the item object.
	Path dbus.ObjectPath

	ID       string
	Title    string
	Category ItemCategory
	Status   ItemStatus
	Tooltip  string

	// Icon sizes offered in IconPixmap.
	Icons []Pixmap

	// Path of the com.canonical.dbusmenu object, if any.
	MenuPath dbus.ObjectPath
}

// RegisteredItems lists the items known to the StatusNotifierWatcher. Items
// that cannot be read are skipped.
func RegisteredItems(conn *dbus.Conn) ([]*RemoteItem, error) {
	watcher := conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)

	property, err := watcher.GetProperty(StatusNotifierWatcherInterface + ".RegisteredStatusNotifierItems")
	if err != nil {
		return nil, fmt.Errorf("read registered items: %w", err)
	}

	names, ok := property.Value().([]string)
	if !ok {
		return nil, fmt.Errorf("read registered items: unexpected type %s", property.Signature())
	}

	items := make([]*RemoteItem, 0, len(names))
	for _, name := range names {
		uniqueName, path := uniqueNameAndPathFromItemName(name)

		item, err := readItem(conn, uniqueName, path)
		if err != nil {
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

// readItem reads the properties of the item at path.
func readItem(conn *dbus.Conn, uniqueName string, path dbus.ObjectPath) (*RemoteItem, error) {
	obj := conn.Object(uniqueName, path)

	// Check whether properties can be retrieved.
	call := obj.Call(getProperty, dbus.Flags(64), StatusNotifierItemInterface, "Id")
	if call.Err != nil {
		return nil, fmt.Errorf("failed to resolve item: %w", call.Err)
	}

	item := &RemoteItem{
		UniqueName: uniqueName,
		Path:       path,
		Category:   ItemCategoryApplicationStatus,
		Status:     ItemStatusActive,
	}

	if id, err := obj.GetProperty(StatusNotifierItemInterface + ".Id"); err == nil {
		id.Store(&item.ID)
	}

	if title, err := obj.GetProperty(StatusNotifierItemInterface + ".Title"); err == nil {
		title.Store(&item.Title)
	}

	if category, err := obj.GetProperty(StatusNotifierItemInterface + ".Category"); err == nil {
		var value string
		if category.Store(&value) == nil {
			item.Category = ItemCategory(value)
		}
	}

	if status, err := obj.GetProperty(StatusNotifierItemInterface + ".Status"); err == nil {
		var value string
		if status.Store(&value) == nil {
			item.Status = ItemStatus(value)
		}
	}

	if tooltip, err := obj.GetProperty(StatusNotifierItemInterface + ".ToolTip"); err == nil {
		// Format of tooltip is as follows
		//
		//  [<icon-name>, <icon>, <title>, <description>]
		if value, ok := tooltip.Value().([]any); ok && len(value) >= 3 {
			item.Tooltip, _ = value[2].(string)
		}
	}

	if pixmap, err := obj.GetProperty(StatusNotifierItemInterface + ".IconPixmap"); err == nil {
		if values, ok := pixmap.Value().([][]any); ok {
			for _, value := range values {
				if icon, err := NewPixmapFromDBus(value); err == nil {
					item.Icons = append(item.Icons, icon)
				}
			}
		}
	}

	if menu, err := obj.GetProperty(StatusNotifierItemInterface + ".Menu"); err == nil {
		menu.Store(&item.MenuPath)
	}

	return item, nil
}

// Layout returns the whole menu of the item.
func (item *RemoteItem) Layout(conn *dbus.Conn) (*LayoutNode, error) {
	if item.MenuPath == "" {
		return nil, fmt.Errorf("item %s has no menu", item.ID)
	}

	call := conn.Object(item.UniqueName, item.MenuPath).Call(
		MenuInterface+".GetLayout",
		dbus.Flags(64),
		rootID, int32(-1), []string{},
	)
	if call.Err != nil {
		return nil, fmt.Errorf("layout: %w", call.Err)
	}

	if len(call.Body) != 2 {
		return nil, fmt.Errorf("layout: invalid response body format")
	}

	menu, err := NewLayoutNode(call.Body[1])
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	return menu, nil
}

// Click sends a clicked event for the menu node id.
func (item *RemoteItem) Click(conn *dbus.Conn, id int32) error {
	return conn.Object(item.UniqueName, item.MenuPath).Call(
		MenuInterface+".Event",
		dbus.Flags(64),
		id, "clicked", dbus.MakeVariant(""), uint32(0),
	).Err
}

// uniqueNameAndPathFromItemName returns unique name and object path of the
// StatusNotifierItem service from its item name. The returned object path
// starts with /.
//
// Format of item name is "<uniqueName>/<objectPath>",
// e.g. ":1.185/StatusNotifierItem".
func uniqueNameAndPathFromItemName(itemName string) (string, dbus.ObjectPath) {
	uniqueName, objectPath, ok := strings.Cut(itemName, "/")
	if !ok {
		return uniqueName, StatusNotifierItemPath
	}

	return uniqueName, dbus.ObjectPath("/" + objectPath)
}
