package sni

import (
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

const (
	MenuInterface = "com.canonical.dbusmenu"
	MenuPath      = "/MenuBar"
)

// menuVersion is the version of the com.canonical.dbusmenu interface.
const menuVersion uint32 = 3

// UpdatedProperties represents updated properties of a specific layout node,
// (ia{sv}).
type UpdatedProperties struct {
	// ID of the layout node.
	NodeID int32

	// Updated properties.
	Properties map[string]dbus.Variant
}

// RemovedProperties represents removed properties of a specific layout node,
// (ias).
type RemovedProperties struct {
	// ID of the layout node.
	NodeID int32

	// Removed properties.
	Properties []string
}

// menuEvent is an element of the EventGroup argument, (isvu).
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// menuObject exports the menu of one tray as com.canonical.dbusmenu. Its
// exported methods are the D-Bus methods; they run on the connection's
// goroutines, read the tree through snapshots, and queue clicks for the
// owning goroutine.
type menuObject struct {
	lib      *Library
	owner    *item
	tray     native.Handle
	path     dbus.ObjectPath
	revision atomic.Uint32
}

func newMenuObject(owner *item) *menuObject {
	m := &menuObject{lib: owner.lib, owner: owner, tray: owner.tray, path: owner.menuPath}
	m.revision.Store(1)
	return m
}

// node returns the properties and the submenu of the node id. ok is false
// if id does not name a node of this tray.
func (m *menuObject) node(id int32) (props map[string]dbus.Variant, submenu native.Handle, ok bool) {
	if id == rootID {
		state, ok := m.lib.Tray(m.tray)
		if !ok {
			return nil, 0, false
		}

		props := map[string]dbus.Variant{
			"children-display": dbus.MakeVariant("submenu"),
		}
		return props, state.Menu, true
	}

	h := native.Handle(id)
	if tray, ok := m.lib.EntryTray(h); !ok || tray != m.tray {
		return nil, 0, false
	}

	state, ok := m.lib.Entry(h)
	if !ok {
		return nil, 0, false
	}

	return entryProperties(state), state.Submenu, true
}

// GetLayout returns the subtree rooted at parentID, recursionDepth levels
// deep. A depth of -1 returns the whole subtree.
func (m *menuObject) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, layout, *dbus.Error) {
	props, submenu, ok := m.node(parentID)
	if !ok {
		return 0, layout{}, errUnknownID
	}

	return m.revision.Load(), buildLayout(m.lib.Library, parentID, props, submenu, recursionDepth, propertyNames), nil
}

// GetGroupProperties returns the properties of the nodes ids. An empty list
// returns every entry of the tray.
func (m *menuObject) GetGroupProperties(ids []int32, propertyNames []string) ([]UpdatedProperties, *dbus.Error) {
	if len(ids) == 0 {
		ids = m.allIDs()
	}

	result := make([]UpdatedProperties, 0, len(ids))
	for _, id := range ids {
		props, _, ok := m.node(id)
		if !ok {
			continue
		}

		result = append(result, UpdatedProperties{
			NodeID:     id,
			Properties: filterProperties(props, propertyNames),
		})
	}

	return result, nil
}

// GetProperty returns one property of the node id.
func (m *menuObject) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	props, _, ok := m.node(id)
	if !ok {
		return dbus.Variant{}, errUnknownID
	}

	value, ok := props[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(errUnknownProperty)
	}

	return value, nil
}

// Event handles an event on the node id. Only "clicked" has an effect: the
// click is queued and delivered by [Library.Pump].
func (m *menuObject) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if _, _, ok := m.node(id); !ok {
		return errUnknownID
	}

	m.handleEvent(id, eventID)

	return nil
}

// EventGroup handles several events and returns the ids that were not found.
func (m *menuObject) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	idErrors := []int32{}

	for _, ev := range events {
		if _, _, ok := m.node(ev.ID); !ok {
			idErrors = append(idErrors, ev.ID)
			continue
		}

		m.handleEvent(ev.ID, ev.EventID)
	}

	if len(events) > 0 && len(idErrors) == len(events) {
		return idErrors, errUnknownID
	}

	return idErrors, nil
}

// AboutToShow reports whether the layout of id must be fetched again. The
// layout is always current, so it never does.
func (m *menuObject) AboutToShow(id int32) (bool, *dbus.Error) {
	if _, _, ok := m.node(id); !ok {
		return false, errUnknownID
	}

	return false, nil
}

// AboutToShowGroup is the batched form of AboutToShow.
func (m *menuObject) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	idErrors := []int32{}

	for _, id := range ids {
		if _, _, ok := m.node(id); !ok {
			idErrors = append(idErrors, id)
		}
	}

	return []int32{}, idErrors, nil
}

func (m *menuObject) handleEvent(id int32, eventID string) {
	m.lib.log.Debug("menu event", "path", m.path, "id", id, "event", eventID)

	if eventID != "clicked" || id == rootID {
		return
	}

	h := native.Handle(id)
	m.lib.enqueue(func() {
		// The entry may have been removed or disabled since the event was
		// queued.
		state, ok := m.lib.Entry(h)
		if !ok || !state.Enabled || state.Separator() {
			return
		}

		m.lib.ClickTrayEntry(h)
	})
}

// allIDs returns the ids of every entry of the tray, depth first.
func (m *menuObject) allIDs() []int32 {
	state, ok := m.lib.Tray(m.tray)
	if !ok {
		return nil
	}

	var ids []int32
	var walk func(menu native.Handle)
	walk = func(menu native.Handle) {
		entries, _ := m.lib.Menu(menu)
		for _, e := range entries {
			ids = append(ids, int32(e.Handle))
			if !e.Submenu.Null() {
				walk(e.Submenu)
			}
		}
	}

	if !state.Menu.Null() {
		walk(state.Menu)
	}

	return ids
}

// layoutUpdated bumps the revision and emits LayoutUpdated for the subtree
// below parent.
func (m *menuObject) layoutUpdated(parent int32) {
	revision := m.revision.Add(1)
	m.owner.emit(m.path, MenuInterface+".LayoutUpdated", revision, parent)
}

// entryUpdated emits ItemsPropertiesUpdated with the properties of state.
// Toggling a checkbox back and forth never removes toggle-state, so the
// removed list is always empty.
func (m *menuObject) entryUpdated(state headless.EntryState) {
	m.owner.emit(m.path, MenuInterface+".ItemsPropertiesUpdated",
		[]UpdatedProperties{{NodeID: int32(state.Handle), Properties: entryProperties(state)}},
		[]RemovedProperties{},
	)
}

// properties returns the D-Bus properties of the menu object.
func (m *menuObject) properties() map[string]any {
	return map[string]any{
		"Version":       menuVersion,
		"TextDirection": "ltr",
		"Status":        "normal",
		"IconThemePath": []string{},
	}
}
