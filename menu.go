package nativetray

import (
	"fmt"

	"github.com/shelepuginivan/nativetray/native"
)

// Append is the insert position that appends an entry to a menu.
const Append = native.Append

// Menu is the top-level menu of a [Tray] or the submenu of an [Entry].
//
// A Menu does not cache its entries: native insertions and removals shift
// positions, so [Menu.Entries] queries the native library on every call.
type Menu struct {
	tray   *Tray
	handle native.Handle
	gen    uint64
}

// Handle returns the native menu handle.
func (m *Menu) Handle() native.Handle {
	return m.handle
}

// Tray returns the tray the menu belongs to.
func (m *Menu) Tray() *Tray {
	return m.tray
}

// Valid reports whether the native menu still exists.
func (m *Menu) Valid() bool {
	return m.tray.alive(m.handle, m.gen)
}

func (m *Menu) check(op string) error {
	if !m.Valid() {
		return &UseAfterDestroyError{Op: op}
	}
	return nil
}

// Entries returns the current entries of the menu, in order. It returns nil
// once the menu is no longer valid.
func (m *Menu) Entries() []*Entry {
	if !m.Valid() {
		return nil
	}

	handles := m.tray.lib.GetTrayEntries(m.handle)
	entries := make([]*Entry, len(handles))

	for i, h := range handles {
		entries[i] = m.tray.wrapEntry(h)
	}

	return entries
}

// InsertEntryAt inserts an entry with the given label at pos. Entries at pos
// and after shift down by one; [Append] adds the entry at the end.
//
// flags must select exactly one of [EntryButton], [EntryCheckbox] and
// [EntrySubmenu], optionally combined with [EntryDisabled] and
// [EntryChecked].
func (m *Menu) InsertEntryAt(pos int, label string, flags EntryFlags) (*Entry, error) {
	return m.insert(pos, &label, flags)
}

// InsertSeparatorAt inserts a separator at pos.
func (m *Menu) InsertSeparatorAt(pos int) (*Entry, error) {
	return m.insert(pos, nil, EntryButton)
}

func (m *Menu) insert(pos int, label *string, flags EntryFlags) (*Entry, error) {
	if err := m.check("insert entry"); err != nil {
		return nil, err
	}

	h := m.tray.lib.InsertTrayEntryAt(m.handle, pos, label, flags)
	if h.Null() {
		return nil, &InvalidPositionError{Pos: pos, Message: m.tray.lib.Error()}
	}

	return m.tray.wrapEntry(h), nil
}

// ParentEntry returns the entry owning the menu if it is a submenu, or nil
// for a top-level menu.
func (m *Menu) ParentEntry() *Entry {
	if !m.Valid() {
		return nil
	}

	h := m.tray.lib.GetTrayMenuParentEntry(m.handle)
	if h.Null() {
		return nil
	}

	return m.tray.wrapEntry(h)
}

// ParentTray returns the tray if the menu is its top-level menu, or nil for
// a submenu.
func (m *Menu) ParentTray() *Tray {
	if !m.Valid() {
		return nil
	}

	if m.tray.lib.GetTrayMenuParentTray(m.handle) != m.tray.handle {
		return nil
	}

	return m.tray
}

// Build populates the menu from a declarative description. Every item is
// resolved before the first native call, so an invalid description leaves
// the menu untouched. Actions are registered through the owning tray and
// submenus are built recursively.
//
// A menu can be built only once; later changes go through
// [Menu.InsertEntryAt] and [Entry.Remove].
func (m *Menu) Build(items []MenuItem) error {
	if err := m.check("build menu"); err != nil {
		return err
	}

	if m.tray.populated[m.handle] {
		return ErrMenuPopulated
	}

	resolved, err := ResolveAll(items)
	if err != nil {
		return err
	}

	m.tray.populated[m.handle] = true

	return m.materialize(resolved)
}

func (m *Menu) materialize(items []Resolved) error {
	for i, item := range items {
		entry, err := m.insert(item.Pos, item.Label, item.Flags)
		if err != nil {
			return fmt.Errorf("menu item %d: %w", i, err)
		}

		if item.Action != nil {
			if err := entry.SetCallback(item.Action, item.UserData); err != nil {
				return fmt.Errorf("menu item %d: %w", i, err)
			}
		}

		sub, ok := item.Kind.(SubmenuKind)
		if !ok {
			continue
		}

		submenu, err := entry.CreateSubmenu()
		if err != nil {
			return fmt.Errorf("menu item %d: %w", i, err)
		}

		m.tray.populated[submenu.handle] = true

		if err := submenu.materialize(sub.Items); err != nil {
			return fmt.Errorf("submenu of item %d: %w", i, err)
		}
	}

	return nil
}
