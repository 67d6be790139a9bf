package nativetray

import (
	"fmt"
	"math/bits"

	"github.com/shelepuginivan/nativetray/native"
)

// EntryType names an entry kind in a [MenuItem].
type EntryType string

const (
	TypeButton    EntryType = "button"
	TypeCheckbox  EntryType = "checkbox"
	TypeSubmenu   EntryType = "submenu"
	TypeSeparator EntryType = "separator"
)

// MenuItem is a declarative description of one entry, as written by hand or
// loaded from a configuration file. Several fields can imply the entry kind;
// [MenuItem.Resolve] settles it once.
type MenuItem struct {
	// Insert position. Nil appends.
	Pos *int

	// Label of the entry. Nil makes a separator.
	Label *string

	// Kind of the entry. Empty means it is inferred.
	Type EntryType

	// Raw flags. At most one kind bit may be set.
	Flags EntryFlags

	// Initial state of a checkbox. A non-nil value implies a checkbox.
	Checked *bool

	Disabled bool

	// Click callback and the userdata passed to it.
	Action   Callback
	UserData any

	// Entries of the submenu. A non-nil value implies a submenu.
	Submenu []MenuItem
}

// Button returns an item for a button entry.
func Button(label string, action Callback) MenuItem {
	return MenuItem{Label: &label, Type: TypeButton, Action: action}
}

// Checkbox returns an item for a checkbox entry.
func Checkbox(label string, checked bool, action Callback) MenuItem {
	return MenuItem{Label: &label, Type: TypeCheckbox, Checked: &checked, Action: action}
}

// Submenu returns an item for an entry opening a submenu with items.
func Submenu(label string, items ...MenuItem) MenuItem {
	if items == nil {
		items = []MenuItem{}
	}
	return MenuItem{Label: &label, Type: TypeSubmenu, Submenu: items}
}

// Separator returns an item for a separator.
func Separator() MenuItem {
	return MenuItem{}
}

// EntryKind is the resolved kind of an entry: [ButtonKind], [CheckboxKind],
// [SubmenuKind] or [SeparatorKind].
type EntryKind interface {
	flags() EntryFlags
}

type ButtonKind struct{}

type CheckboxKind struct {
	Checked bool
}

type SubmenuKind struct {
	Items []Resolved
}

type SeparatorKind struct{}

func (ButtonKind) flags() EntryFlags { return EntryButton }

func (k CheckboxKind) flags() EntryFlags {
	if k.Checked {
		return EntryCheckbox | EntryChecked
	}
	return EntryCheckbox
}

func (SubmenuKind) flags() EntryFlags { return EntrySubmenu }

// Separators are buttons without a label.
func (SeparatorKind) flags() EntryFlags { return EntryButton }

// Resolved is a [MenuItem] with its kind and flags settled.
type Resolved struct {
	Pos      int
	Label    *string
	Kind     EntryKind
	Flags    EntryFlags
	Action   Callback
	UserData any
}

// Resolve settles the kind of the item and computes its native flags. The
// kind comes from Type, then from the kind bit of Flags, then from the
// presence of Submenu (submenu) or Checked (checkbox); otherwise the item is
// a button. An item with no label, flags, type or action is a separator.
//
// Submenu items are resolved recursively.
func (it MenuItem) Resolve() (Resolved, error) {
	r := Resolved{
		Pos:      native.Append,
		Label:    it.Label,
		Action:   it.Action,
		UserData: it.UserData,
	}

	if it.Pos != nil {
		r.Pos = *it.Pos
	}

	kind, err := it.kind()
	if err != nil {
		return Resolved{}, err
	}

	switch kind {
	case TypeSeparator:
		if it.Label != nil || it.Action != nil || it.Checked != nil || it.Submenu != nil || it.Disabled {
			return Resolved{}, fmt.Errorf("%w: separator with label, state, action or submenu", ErrInvalidItem)
		}
		r.Kind = SeparatorKind{}
		r.Flags = r.Kind.flags()
		return r, nil
	case TypeButton:
		r.Kind = ButtonKind{}
	case TypeCheckbox:
		checked := it.Flags.Has(EntryChecked)
		if it.Checked != nil {
			checked = *it.Checked
		}
		r.Kind = CheckboxKind{Checked: checked}
	case TypeSubmenu:
		items, err := ResolveAll(it.Submenu)
		if err != nil {
			return Resolved{}, fmt.Errorf("submenu: %w", err)
		}
		r.Kind = SubmenuKind{Items: items}
	}

	if it.Label == nil {
		return Resolved{}, fmt.Errorf("%w: %s entry without a label", ErrInvalidItem, kind)
	}

	if kind != TypeCheckbox && (it.Checked != nil || it.Flags.Has(EntryChecked)) {
		return Resolved{}, fmt.Errorf("%w: checked state on a %s entry", ErrInvalidItem, kind)
	}

	if kind != TypeSubmenu && it.Submenu != nil {
		return Resolved{}, fmt.Errorf("%w: submenu on a %s entry", ErrInvalidItem, kind)
	}

	r.Flags = r.Kind.flags()
	if it.Disabled || it.Flags.Has(EntryDisabled) {
		r.Flags |= EntryDisabled
	}

	return r, nil
}

// kind returns the kind requested or implied by the item.
func (it MenuItem) kind() (EntryType, error) {
	bitsKind := it.Flags.Kind()
	if bits.OnesCount32(uint32(bitsKind)) > 1 {
		return "", fmt.Errorf("%w: flags %#x select more than one kind", ErrInvalidItem, uint32(it.Flags))
	}

	var fromFlags EntryType
	switch bitsKind {
	case EntryButton:
		fromFlags = TypeButton
	case EntryCheckbox:
		fromFlags = TypeCheckbox
	case EntrySubmenu:
		fromFlags = TypeSubmenu
	}

	switch it.Type {
	case "":
	case TypeButton, TypeCheckbox, TypeSubmenu, TypeSeparator:
		if fromFlags != "" && fromFlags != it.Type && !(it.Type == TypeSeparator && fromFlags == TypeButton) {
			return "", fmt.Errorf("%w: type %s conflicts with flags %#x", ErrInvalidItem, it.Type, uint32(it.Flags))
		}
		return it.Type, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidItem, it.Type)
	}

	switch {
	case fromFlags != "":
		return fromFlags, nil
	case it.Label == nil && it.Flags == 0 && it.Action == nil && it.Checked == nil && it.Submenu == nil && !it.Disabled:
		return TypeSeparator, nil
	case it.Submenu != nil:
		return TypeSubmenu, nil
	case it.Checked != nil:
		return TypeCheckbox, nil
	default:
		return TypeButton, nil
	}
}

// ResolveAll resolves a list of items. Errors name the index of the
// offending item.
func ResolveAll(items []MenuItem) ([]Resolved, error) {
	resolved := make([]Resolved, len(items))

	for i, item := range items {
		r, err := item.Resolve()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		resolved[i] = r
	}

	return resolved, nil
}

// String returns a pointer to s, for the optional fields of [MenuItem].
func String(s string) *string {
	return &s
}

// Int returns a pointer to i, for [MenuItem.Pos].
func Int(i int) *int {
	return &i
}
