package nativetray_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/nativetray"
)

func labels(entries []*nativetray.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label()
	}
	return out
}

func TestInsertEntryAtAppends(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{})
	menu := tray.Menu()

	cases := []struct {
		label string
		flags nativetray.EntryFlags
	}{
		{"button", nativetray.EntryButton},
		{"checkbox", nativetray.EntryCheckbox},
		{"checked", nativetray.EntryCheckbox | nativetray.EntryChecked},
		{"submenu", nativetray.EntrySubmenu},
		{"disabled", nativetray.EntryButton | nativetray.EntryDisabled},
		{"", nativetray.EntryButton},
	}

	for i, c := range cases {
		entry, err := menu.InsertEntryAt(nativetray.Append, c.label, c.flags)
		require.NoError(t, err)

		entries := menu.Entries()
		require.Len(t, entries, i+1)
		assert.Equal(t, entry.Handle(), entries[i].Handle())
		assert.Equal(t, c.label, entries[i].Label())
	}
}

func TestInsertEntryAtShiftsEntries(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{})
	menu := tray.Menu()

	for _, label := range []string{"a", "c"} {
		_, err := menu.InsertEntryAt(nativetray.Append, label, nativetray.EntryButton)
		require.NoError(t, err)
	}

	_, err := menu.InsertEntryAt(1, "b", nativetray.EntryButton)
	require.NoError(t, err)
	_, err = menu.InsertEntryAt(0, "start", nativetray.EntryButton)
	require.NoError(t, err)
	_, err = menu.InsertEntryAt(4, "end", nativetray.EntryButton)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "a", "b", "c", "end"}, labels(menu.Entries()))
}

func TestInsertEntryAtInvalidPosition(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{})
	menu := tray.Menu()

	for _, pos := range []int{1, 7, -2} {
		_, err := menu.InsertEntryAt(pos, "x", nativetray.EntryButton)

		var posErr *nativetray.InvalidPositionError
		require.ErrorAs(t, err, &posErr)
		assert.Equal(t, pos, posErr.Pos)
		assert.Equal(t, "Invalid entry position", posErr.Message)
	}

	assert.Empty(t, menu.Entries())
}

func TestInsertSeparatorAt(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Button("a", nil),
		nativetray.Button("b", nil),
	})
	menu := tray.Menu()

	sep, err := menu.InsertSeparatorAt(1)
	require.NoError(t, err)
	assert.True(t, sep.IsSeparator())

	assert.Equal(t, []string{"a", "", "b"}, labels(menu.Entries()))
}

func TestEntriesReflectRemoval(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Button("a", nil),
		nativetray.Button("b", nil),
		nativetray.Button("c", nil),
	})
	menu := tray.Menu()

	before := menu.Entries()
	removed := before[1]
	require.NoError(t, removed.Remove())

	after := menu.Entries()
	require.Len(t, after, len(before)-1)

	for _, e := range after {
		assert.NotEqual(t, removed.Handle(), e.Handle())
	}
	assert.Equal(t, []string{"a", "c"}, labels(after))
}

func TestBuildOnce(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Button("a", nil),
	})

	err := tray.Menu().Build([]nativetray.MenuItem{nativetray.Button("b", nil)})
	require.ErrorIs(t, err, nativetray.ErrMenuPopulated)
}

func TestBuildInvalidItemLeavesMenuUntouched(t *testing.T) {
	_, tray := newTray(t, nil)

	menu, err := tray.CreateMenu()
	require.NoError(t, err)

	err = menu.Build([]nativetray.MenuItem{
		nativetray.Button("a", nil),
		nativetray.Submenu("sub", nativetray.MenuItem{Type: "slider", Label: nativetray.String("x")}),
	})
	require.ErrorIs(t, err, nativetray.ErrInvalidItem)
	assert.Empty(t, menu.Entries())

	// Nothing was materialized, so the menu can still be built.
	require.NoError(t, menu.Build([]nativetray.MenuItem{nativetray.Button("a", nil)}))
	assert.Equal(t, []string{"a"}, labels(menu.Entries()))
}

func TestBuildPositions(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Button("b", nil),
		{Label: nativetray.String("a"), Pos: nativetray.Int(0)},
		nativetray.Button("c", nil),
	})

	assert.Equal(t, []string{"a", "b", "c"}, labels(tray.Menu().Entries()))
}

func TestMenuParents(t *testing.T) {
	_, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Submenu("sub", nativetray.Button("inner", nil)),
	})

	top := tray.Menu()
	assert.Same(t, tray, top.ParentTray())
	assert.Nil(t, top.ParentEntry())

	entry := top.Entries()[0]
	sub := entry.Submenu()
	require.NotNil(t, sub)

	assert.Nil(t, sub.ParentTray())
	require.NotNil(t, sub.ParentEntry())
	assert.Equal(t, entry.Handle(), sub.ParentEntry().Handle())

	inner := sub.Entries()[0]
	assert.Equal(t, sub.Handle(), inner.Parent().Handle())
	assert.Equal(t, top.Handle(), entry.Parent().Handle())
}

func TestRemoveInvalidatesSubmenu(t *testing.T) {
	lib, tray := newTray(t, []nativetray.MenuItem{
		nativetray.Submenu("sub",
			nativetray.Button("one", func(*nativetray.Entry, any) {}),
			nativetray.Submenu("deeper",
				nativetray.Button("two", func(*nativetray.Entry, any) {}),
			),
		),
		nativetray.Button("keep", func(*nativetray.Entry, any) {}),
	})

	entry := tray.Menu().Entries()[0]
	sub := entry.Submenu()
	deeper := sub.Entries()[1].Submenu()
	two := deeper.Entries()[0]

	require.Equal(t, 3, tray.Callbacks())
	require.NoError(t, entry.Remove())

	assert.Equal(t, 1, tray.Callbacks())
	assert.Equal(t, 1, lib.Trampolines())

	assert.False(t, sub.Valid())
	assert.False(t, deeper.Valid())
	assert.False(t, two.Valid())
	assert.Nil(t, sub.Entries())

	var destroyed *nativetray.UseAfterDestroyError
	require.ErrorAs(t, two.Click(), &destroyed)
	assert.Equal(t, []string{"keep"}, labels(tray.Menu().Entries()))
}
