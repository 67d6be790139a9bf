package sni

import (
	"fmt"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

// rootID is the dbusmenu id of the top-level menu. Entries use their native
// handle as id, which is never zero.
const rootID int32 = 0

// layout is the wire form of a dbusmenu layout node, (ia{sv}av).
type layout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// LayoutNode is a decoded dbusmenu layout node, as returned by GetLayout of
// a remote menu.
type LayoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*LayoutNode
}

// Label returns the label property of the node, if any.
func (n *LayoutNode) Label() string {
	label, _ := n.Properties["label"].(string)
	return strings.ReplaceAll(label, "__", "_")
}

// Separator reports whether the node is a separator.
func (n *LayoutNode) Separator() bool {
	return n.Properties["type"] == "separator"
}

// NewLayoutNode decodes a layout node from the body of a GetLayout reply.
// Malformed children are skipped.
func NewLayoutNode(data any) (*LayoutNode, error) {
	arr, ok := data.([]any)
	if !ok || len(arr) != 3 {
		return nil, fmt.Errorf("menu node: invalid format")
	}

	id, ok := arr[0].(int32)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid id")
	}

	props, ok := arr[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid props")
	}

	children, ok := arr[2].([]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("menu node: invalid children")
	}

	root := &LayoutNode{
		ID:         id,
		Properties: make(map[string]any, len(props)),
		Children:   make([]*LayoutNode, 0, len(children)),
	}

	for key, value := range props {
		root.Properties[key] = value.Value()
	}

	for _, child := range children {
		childNode, err := NewLayoutNode(child.Value())
		if err != nil {
			continue
		}

		root.Children = append(root.Children, childNode)
	}

	return root, nil
}

// entryProperties returns the dbusmenu properties of an entry.
func entryProperties(s headless.EntryState) map[string]dbus.Variant {
	if s.Separator() {
		return map[string]dbus.Variant{
			"type":    dbus.MakeVariant("separator"),
			"visible": dbus.MakeVariant(true),
		}
	}

	props := map[string]dbus.Variant{
		// Underscores mark access keys in dbusmenu labels.
		"label":   dbus.MakeVariant(strings.ReplaceAll(*s.Label, "_", "__")),
		"enabled": dbus.MakeVariant(s.Enabled),
		"visible": dbus.MakeVariant(true),
	}

	switch s.Flags.Kind() {
	case native.EntryCheckbox:
		state := int32(0)
		if s.Checked {
			state = 1
		}
		props["toggle-type"] = dbus.MakeVariant("checkmark")
		props["toggle-state"] = dbus.MakeVariant(state)
	case native.EntrySubmenu:
		props["children-display"] = dbus.MakeVariant("submenu")
	}

	return props
}

// filterProperties keeps the properties listed in names. An empty list
// keeps everything.
func filterProperties(props map[string]dbus.Variant, names []string) map[string]dbus.Variant {
	if len(names) == 0 {
		return props
	}

	filtered := make(map[string]dbus.Variant, len(names))
	for key, value := range props {
		if slices.Contains(names, key) {
			filtered[key] = value
		}
	}

	return filtered
}

// buildLayout returns the node id with the entries of menu as children,
// descending depth levels. A negative depth has no limit.
func buildLayout(lib *headless.Library, id int32, props map[string]dbus.Variant, menu native.Handle, depth int32, names []string) layout {
	node := layout{
		ID:         id,
		Properties: filterProperties(props, names),
		Children:   []dbus.Variant{},
	}

	if depth == 0 || menu.Null() {
		return node
	}

	entries, ok := lib.Menu(menu)
	if !ok {
		return node
	}

	for _, e := range entries {
		child := buildLayout(lib, int32(e.Handle), entryProperties(e), e.Submenu, depth-1, names)
		node.Children = append(node.Children, dbus.MakeVariant(child))
	}

	return node
}
