package nativetray

import (
	"github.com/shelepuginivan/nativetray/native"
)

// EntryFlags selects the kind and initial state of an entry.
type EntryFlags = native.EntryFlags

// Entry kinds. Exactly one must be set.
const (
	EntryButton   = native.EntryButton
	EntryCheckbox = native.EntryCheckbox
	EntrySubmenu  = native.EntrySubmenu
)

// Entry modifiers.
const (
	EntryDisabled = native.EntryDisabled
	EntryChecked  = native.EntryChecked
)

// Entry is a row of a [Menu]: a button, a checkbox, a submenu opener or a
// separator.
//
// A separator is an entry created without a label. The native library
// ignores label changes that would turn a separator into a labelled entry or
// the other way round, and this wrapper does not reject them.
type Entry struct {
	tray   *Tray
	handle native.Handle
	gen    uint64
}

// Handle returns the native entry handle.
func (e *Entry) Handle() native.Handle {
	return e.handle
}

// Tray returns the tray the entry belongs to.
func (e *Entry) Tray() *Tray {
	return e.tray
}

// Valid reports whether the native entry still exists. It is false after
// [Entry.Remove], after removal of an ancestor entry, and after
// [Tray.Destroy].
func (e *Entry) Valid() bool {
	return e.tray.alive(e.handle, e.gen)
}

func (e *Entry) check(op string) error {
	if !e.Valid() {
		return &UseAfterDestroyError{Op: op}
	}
	return nil
}

// Label returns the label of the entry. It is empty for separators.
func (e *Entry) Label() string {
	if !e.Valid() {
		return ""
	}

	label := e.tray.lib.GetTrayEntryLabel(e.handle)
	if label == nil {
		return ""
	}

	return *label
}

// IsSeparator reports whether the entry was created without a label.
func (e *Entry) IsSeparator() bool {
	if !e.Valid() {
		return false
	}

	return e.tray.lib.GetTrayEntryLabel(e.handle) == nil
}

// SetLabel changes the label. It has no effect on separators.
func (e *Entry) SetLabel(label string) {
	if !e.Valid() {
		return
	}

	e.tray.lib.SetTrayEntryLabel(e.handle, &label)
}

// Checked reports whether a checkbox entry is checked. It is always false
// for other kinds of entries.
func (e *Entry) Checked() bool {
	if !e.Valid() {
		return false
	}

	return e.tray.lib.GetTrayEntryChecked(e.handle)
}

// SetChecked checks or unchecks a checkbox entry. The native library
// ignores it for other kinds of entries.
func (e *Entry) SetChecked(checked bool) {
	if !e.Valid() {
		return
	}

	e.tray.lib.SetTrayEntryChecked(e.handle, checked)
}

// Enabled reports whether the entry can be clicked by the user.
func (e *Entry) Enabled() bool {
	if !e.Valid() {
		return false
	}

	return e.tray.lib.GetTrayEntryEnabled(e.handle)
}

// SetEnabled enables or disables the entry.
func (e *Entry) SetEnabled(enabled bool) {
	if !e.Valid() {
		return
	}

	e.tray.lib.SetTrayEntryEnabled(e.handle, enabled)
}

// CreateSubmenu creates the submenu of an entry inserted with
// [EntrySubmenu]. A second call fails: the native library refuses to
// replace an existing submenu.
func (e *Entry) CreateSubmenu() (*Menu, error) {
	if err := e.check("create submenu"); err != nil {
		return nil, err
	}

	h := e.tray.lib.CreateTraySubmenu(e.handle)
	if h.Null() {
		return nil, creationError(e.tray.lib, "create submenu")
	}

	return e.tray.wrapMenu(h), nil
}

// Submenu returns the submenu created by [Entry.CreateSubmenu], or nil.
func (e *Entry) Submenu() *Menu {
	if !e.Valid() {
		return nil
	}

	h := e.tray.lib.GetTraySubmenu(e.handle)
	if h.Null() {
		return nil
	}

	return e.tray.wrapMenu(h)
}

// Parent returns the menu containing the entry.
func (e *Entry) Parent() *Menu {
	if !e.Valid() {
		return nil
	}

	return e.tray.wrapMenu(e.tray.lib.GetTrayEntryParent(e.handle))
}

// SetCallback registers cb as the click callback through the owning tray.
// See [Tray.RegisterCallback].
func (e *Entry) SetCallback(cb Callback, userdata any) error {
	return e.tray.RegisterCallback(e, cb, userdata)
}

// Remove removes the entry from its menu. The trampolines registered for
// the entry and for every entry of its submenus are retired, and all their
// wrappers become invalid.
func (e *Entry) Remove() error {
	if err := e.check("remove entry"); err != nil {
		return err
	}

	e.tray.retireSubtree(e.handle)
	e.tray.lib.RemoveTrayEntry(e.handle)

	return nil
}

// Click simulates a click on the entry. A checkbox is toggled, then the
// registered callback, if any, runs before Click returns.
func (e *Entry) Click() error {
	if err := e.check("click entry"); err != nil {
		return err
	}

	e.tray.lib.ClickTrayEntry(e.handle)

	return nil
}
