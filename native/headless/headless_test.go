package headless_test

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

func newMenu(t *testing.T, lib *headless.Library) (native.Handle, native.Handle) {
	t.Helper()

	tray := lib.CreateTray(0, nil)
	require.False(t, tray.Null())

	menu := lib.CreateTrayMenu(tray)
	require.False(t, menu.Null())

	return tray, menu
}

func TestInsertPositions(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	assert.True(t, lib.InsertTrayEntryAt(menu, 1, native.String("x"), native.EntryButton).Null())
	assert.Equal(t, "Invalid entry position", lib.Error())

	assert.True(t, lib.InsertTrayEntryAt(menu, -2, native.String("x"), native.EntryButton).Null())

	a := lib.InsertTrayEntryAt(menu, 0, native.String("a"), native.EntryButton)
	b := lib.InsertTrayEntryAt(menu, native.Append, native.String("b"), native.EntryButton)
	c := lib.InsertTrayEntryAt(menu, 1, native.String("c"), native.EntryButton)

	assert.Equal(t, []native.Handle{a, c, b}, lib.GetTrayEntries(menu))
}

func TestInsertInvalidFlags(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	for _, flags := range []native.EntryFlags{0, native.EntryDisabled, native.EntryButton | native.EntrySubmenu} {
		assert.True(t, lib.InsertTrayEntryAt(menu, native.Append, native.String("x"), flags).Null())
		assert.Equal(t, "Invalid entry flags", lib.Error())
	}
}

func TestSeparatorKeepsNullLabel(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	sep := lib.InsertTrayEntryAt(menu, native.Append, nil, native.EntryButton)
	lib.SetTrayEntryLabel(sep, native.String("label"))
	assert.Nil(t, lib.GetTrayEntryLabel(sep))

	button := lib.InsertTrayEntryAt(menu, native.Append, native.String("b"), native.EntryButton)
	lib.SetTrayEntryLabel(button, nil)
	require.NotNil(t, lib.GetTrayEntryLabel(button))
	assert.Equal(t, "b", *lib.GetTrayEntryLabel(button))
}

func TestLabelIsCopied(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	label := "before"
	e := lib.InsertTrayEntryAt(menu, native.Append, &label, native.EntryButton)
	label = "after"

	assert.Equal(t, "before", *lib.GetTrayEntryLabel(e))
}

func TestClickTogglesBeforeCallback(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	e := lib.InsertTrayEntryAt(menu, native.Append, native.String("c"), native.EntryCheckbox)

	var seen []bool
	tr := lib.NewTrampoline(func(h native.Handle) {
		assert.Equal(t, e, h)
		seen = append(seen, lib.GetTrayEntryChecked(h))
	})
	lib.SetTrayEntryCallback(e, tr)

	lib.ClickTrayEntry(e)
	lib.ClickTrayEntry(e)

	assert.Equal(t, []bool{true, false}, seen)
}

func TestTrampolineMisuse(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	e := lib.InsertTrayEntryAt(menu, native.Append, native.String("b"), native.EntryButton)
	tr := lib.NewTrampoline(func(native.Handle) {})
	lib.SetTrayEntryCallback(e, tr)
	lib.FreeTrampoline(tr)

	assert.Panics(t, func() { lib.ClickTrayEntry(e) })
	assert.Panics(t, func() { lib.FreeTrampoline(tr) })
	assert.Equal(t, 0, lib.Trampolines())
}

func TestSubmenuRules(t *testing.T) {
	lib := headless.New()
	tray, menu := newMenu(t, lib)

	assert.True(t, lib.CreateTrayMenu(tray).Null())
	assert.Equal(t, "Tray menu already exists", lib.Error())

	button := lib.InsertTrayEntryAt(menu, native.Append, native.String("b"), native.EntryButton)
	assert.True(t, lib.CreateTraySubmenu(button).Null())

	opener := lib.InsertTrayEntryAt(menu, native.Append, native.String("s"), native.EntrySubmenu)
	sub := lib.CreateTraySubmenu(opener)
	require.False(t, sub.Null())

	assert.True(t, lib.CreateTraySubmenu(opener).Null())
	assert.Equal(t, "Tray entry submenu already exists", lib.Error())

	assert.Equal(t, opener, lib.GetTrayMenuParentEntry(sub))
	assert.True(t, lib.GetTrayMenuParentTray(sub).Null())
	assert.Equal(t, tray, lib.GetTrayMenuParentTray(menu))
	assert.Equal(t, menu, lib.GetTrayEntryParent(opener))
}

func TestRemoveFreesSubtree(t *testing.T) {
	lib := headless.New()
	tray, menu := newMenu(t, lib)

	opener := lib.InsertTrayEntryAt(menu, native.Append, native.String("s"), native.EntrySubmenu)
	sub := lib.CreateTraySubmenu(opener)
	inner := lib.InsertTrayEntryAt(sub, native.Append, native.String("i"), native.EntryButton)

	// tray, menu, opener, submenu, inner
	assert.Equal(t, 5, lib.Objects())

	lib.RemoveTrayEntry(opener)
	assert.Equal(t, 2, lib.Objects())

	_, ok := lib.Entry(inner)
	assert.False(t, ok)
	_, ok = lib.Menu(sub)
	assert.False(t, ok)

	lib.DestroyTray(tray)
	assert.Equal(t, 0, lib.Objects())
}

func TestCheckedRequiresCheckbox(t *testing.T) {
	lib := headless.New()
	_, menu := newMenu(t, lib)

	e := lib.InsertTrayEntryAt(menu, native.Append, native.String("b"), native.EntryButton|native.EntryChecked)
	assert.False(t, lib.GetTrayEntryChecked(e))

	lib.SetTrayEntryChecked(e, true)
	assert.Equal(t, "Cannot update check for entry not created with SDL_TRAYENTRY_CHECKBOX", lib.Error())
}

type event struct {
	kind   string
	handle native.Handle
}

type recordingObserver struct {
	lib    *headless.Library
	events []event
}

func (o *recordingObserver) TrayCreated(tray native.Handle) {
	o.events = append(o.events, event{"created", tray})
}

func (o *recordingObserver) TrayDestroyed(tray native.Handle) {
	o.events = append(o.events, event{"destroyed", tray})
}

func (o *recordingObserver) TrayChanged(tray native.Handle) {
	// Observers may read the tree during a notification.
	o.lib.Tray(tray)
	o.events = append(o.events, event{"tray", tray})
}

func (o *recordingObserver) MenuChanged(_, menu native.Handle) {
	o.lib.Menu(menu)
	o.events = append(o.events, event{"menu", menu})
}

func (o *recordingObserver) EntryChanged(_, entry native.Handle) {
	o.lib.GetTrayEntryLabel(entry)
	o.events = append(o.events, event{"entry", entry})
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	lib := headless.New(headless.WithObserver(obs))
	obs.lib = lib

	tray, menu := newMenu(t, lib)
	lib.SetTrayTooltip(tray, native.String("tip"))

	e := lib.InsertTrayEntryAt(menu, native.Append, native.String("a"), native.EntryButton)
	lib.SetTrayEntryEnabled(e, false)
	lib.RemoveTrayEntry(e)

	lib.DestroyTray(tray)

	assert.Equal(t, []event{
		{"created", tray},
		{"menu", menu},
		{"tray", tray},
		{"menu", menu},
		{"entry", e},
		{"menu", menu},
		{"destroyed", tray},
	}, obs.events)
}

func TestSnapshots(t *testing.T) {
	lib := headless.New()
	tray, menu := newMenu(t, lib)

	e := lib.InsertTrayEntryAt(menu, native.Append, native.String("c"), native.EntryCheckbox|native.EntryChecked|native.EntryDisabled)
	sep := lib.InsertTrayEntryAt(menu, native.Append, nil, native.EntryButton)

	state, ok := lib.Tray(tray)
	require.True(t, ok)
	assert.Equal(t, menu, state.Menu)
	assert.Nil(t, state.Tooltip)

	entries, ok := lib.Menu(menu)
	require.True(t, ok)
	require.Len(t, entries, 2)

	assert.Equal(t, e, entries[0].Handle)
	assert.True(t, entries[0].Checked)
	assert.False(t, entries[0].Enabled)
	assert.False(t, entries[0].Separator())

	assert.Equal(t, sep, entries[1].Handle)
	assert.True(t, entries[1].Separator())
}

func writeImage(t *testing.T, name string, encode func(*os.File, image.Image) error) string {
	t.Helper()

	img := image.NewPaletted(image.Rect(0, 0, 8, 4), color.Palette{color.Black, color.White})

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, encode(f, img))

	return path
}

func TestLoadSurface(t *testing.T) {
	lib := headless.New()

	paths := []string{
		writeImage(t, "icon.gif", func(f *os.File, img image.Image) error { return gif.Encode(f, img, nil) }),
		// The extension does not matter, the content does.
		writeImage(t, "icon.png", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }),
	}

	for _, path := range paths {
		h := lib.LoadSurface(path)
		require.False(t, h.Null(), lib.Error())

		tray := lib.CreateTray(h, nil)
		lib.DestroySurface(h)

		state, ok := lib.Tray(tray)
		require.True(t, ok)
		require.NotNil(t, state.Icon)
		assert.Equal(t, image.Rect(0, 0, 8, 4), state.Icon.Bounds())

		lib.DestroyTray(tray)
	}

	assert.Equal(t, 0, lib.Objects())
}

func TestLoadSurfaceErrors(t *testing.T) {
	lib := headless.New()

	assert.True(t, lib.LoadSurface(filepath.Join(t.TempDir(), "missing.png")).Null())
	assert.Contains(t, lib.Error(), "Couldn't open")

	text := filepath.Join(t.TempDir(), "icon.png")
	require.NoError(t, os.WriteFile(text, []byte("not an image"), 0o644))

	assert.True(t, lib.LoadSurface(text).Null())
	assert.Equal(t, "Unsupported image format", lib.Error())
}

func TestUnsupportedTray(t *testing.T) {
	lib := headless.New(headless.WithTraySupport(false))

	assert.True(t, lib.CreateTray(0, nil).Null())
	assert.Equal(t, "System tray is not supported on this platform", lib.Error())
}
