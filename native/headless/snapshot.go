package headless

import (
	"image"

	"github.com/shelepuginivan/nativetray/native"
)

// Observer receives notifications about changes of the tree. Notifications
// are delivered on the goroutine that made the change, after the library
// lock is released, so observers may call back into the library.
type Observer interface {
	TrayCreated(tray native.Handle)
	TrayDestroyed(tray native.Handle)

	// TrayChanged reports a new icon or tooltip.
	TrayChanged(tray native.Handle)

	// MenuChanged reports that entries of menu were inserted or removed, or
	// that menu itself was created.
	MenuChanged(tray, menu native.Handle)

	// EntryChanged reports a label, checked or enabled change.
	EntryChanged(tray, entry native.Handle)
}

// TrayState is a snapshot of a tray.
type TrayState struct {
	Icon    image.Image
	Tooltip *string
	Menu    native.Handle
}

// EntryState is a snapshot of an entry.
type EntryState struct {
	Handle  native.Handle
	Label   *string
	Flags   native.EntryFlags
	Checked bool
	Enabled bool
	Submenu native.Handle
}

// Separator reports whether the entry has no label.
func (s EntryState) Separator() bool {
	return s.Label == nil
}

// Tray returns a snapshot of the tray h.
func (l *Library) Tray(h native.Handle) (TrayState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.trays[h]
	if !ok {
		return TrayState{}, false
	}

	state := TrayState{
		Icon:    t.icon,
		Tooltip: cloneString(t.tooltip),
	}

	if t.menu != nil {
		state.Menu = t.menu.handle
	}

	return state, true
}

// Menu returns snapshots of the entries of the menu h, in order.
func (l *Library) Menu(h native.Handle) ([]EntryState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.menus[h]
	if !ok {
		return nil, false
	}

	states := make([]EntryState, len(m.entries))
	for i, e := range m.entries {
		states[i] = e.state()
	}

	return states, true
}

// Entry returns a snapshot of the entry h.
func (l *Library) Entry(h native.Handle) (EntryState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[h]
	if !ok {
		return EntryState{}, false
	}

	return e.state(), true
}

// EntryTray returns the tray the entry h belongs to.
func (l *Library) EntryTray(h native.Handle) (native.Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[h]
	if !ok {
		return 0, false
	}

	root := rootOf(e.parent)
	if root == nil {
		return 0, false
	}

	return root.handle, true
}

// MenuOwner returns the tray the menu h belongs to and, for a submenu, the
// entry that opens it. entry is zero for a top-level menu.
func (l *Library) MenuOwner(h native.Handle) (tray, entry native.Handle, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.menus[h]
	if !ok {
		return 0, 0, false
	}

	if root := rootOf(m); root != nil {
		tray = root.handle
	}

	if m.parentEntry != nil {
		entry = m.parentEntry.handle
	}

	return tray, entry, true
}

// Trampolines returns the number of allocated trampolines.
func (l *Library) Trampolines() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.trampolines)
}

// Objects returns the number of live trays, menus, entries and surfaces.
func (l *Library) Objects() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.trays) + len(l.menus) + len(l.entries) + len(l.surfaces)
}

func (e *entry) state() EntryState {
	s := EntryState{
		Handle:  e.handle,
		Label:   cloneString(e.label),
		Flags:   e.flags,
		Checked: e.checked,
		Enabled: e.enabled,
	}

	if e.submenu != nil {
		s.Submenu = e.submenu.handle
	}

	return s
}
