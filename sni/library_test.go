package sni

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/nativetray"
	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

type signal struct {
	path dbus.ObjectPath
	name string
	body []any
}

// newOffline returns a library that exports nothing and records emitted
// signals.
func newOffline(t *testing.T, opts ...Option) (*Library, *[]signal) {
	t.Helper()

	signals := &[]signal{}
	l := newLibrary(opts...)
	l.emit = func(_ *dbus.Conn, path dbus.ObjectPath, name string, values ...any) {
		*signals = append(*signals, signal{path, name, values})
	}

	return l, signals
}

func newTray(t *testing.T, l *Library, items ...nativetray.MenuItem) *nativetray.Tray {
	t.Helper()

	tray, err := nativetray.New(l, nativetray.Options{Tooltip: "tip", Menu: items})
	require.NoError(t, err)
	t.Cleanup(tray.Destroy)

	return tray
}

func names(signals []signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.name
	}
	return out
}

func TestItemPerTray(t *testing.T) {
	l, _ := newOffline(t, WithIDPrefix("test-"))

	first := newTray(t, l)
	second := newTray(t, l)

	name, ok := l.ItemName(first.Handle())
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("org.kde.StatusNotifierItem-%d-1", os.Getpid()), name)

	name, ok = l.ItemName(second.Handle())
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("org.kde.StatusNotifierItem-%d-2", os.Getpid()), name)

	id, ok := l.ItemID(first.Handle())
	require.True(t, ok)
	assert.Regexp(t, `^test-[0-9a-f-]{36}$`, id)

	other, _ := l.ItemID(second.Handle())
	assert.NotEqual(t, id, other)

	handle := first.Handle()
	first.Destroy()

	_, ok = l.ItemID(handle)
	assert.False(t, ok)
}

func TestMenuSignals(t *testing.T) {
	l, signals := newOffline(t)
	tray := newTray(t, l, nativetray.Checkbox("check", false, nil))

	*signals = nil

	entry := tray.Menu().Entries()[0]
	entry.SetChecked(true)

	require.Len(t, *signals, 1)
	s := (*signals)[0]
	assert.Equal(t, dbus.ObjectPath(MenuPath), s.path)
	assert.Equal(t, MenuInterface+".ItemsPropertiesUpdated", s.name)

	updated := s.body[0].([]UpdatedProperties)
	require.Len(t, updated, 1)
	assert.Equal(t, int32(entry.Handle()), updated[0].NodeID)
	assert.Equal(t, int32(1), updated[0].Properties["toggle-state"].Value())

	it, _ := l.item(tray.Handle())
	revision := it.menu.revision.Load()

	*signals = nil
	_, err := tray.Menu().InsertEntryAt(nativetray.Append, "new", nativetray.EntryButton)
	require.NoError(t, err)

	require.Len(t, *signals, 1)
	assert.Equal(t, MenuInterface+".LayoutUpdated", (*signals)[0].name)
	assert.Equal(t, []any{revision + 1, rootID}, (*signals)[0].body)
}

func TestSubmenuLayoutSignal(t *testing.T) {
	l, signals := newOffline(t)
	tray := newTray(t, l, nativetray.Submenu("more"))

	sub := tray.Menu().Entries()[0].Submenu()
	require.NotNil(t, sub)

	*signals = nil
	_, err := sub.InsertEntryAt(nativetray.Append, "inner", nativetray.EntryButton)
	require.NoError(t, err)

	require.Len(t, *signals, 1)
	assert.Equal(t, int32(tray.Menu().Entries()[0].Handle()), (*signals)[0].body[1])
}

func TestTraySignals(t *testing.T) {
	l, signals := newOffline(t)
	tray := newTray(t, l)

	*signals = nil
	tray.SetTooltip("new")

	assert.Equal(t, []string{
		StatusNotifierItemInterface + ".NewTitle",
		StatusNotifierItemInterface + ".NewIcon",
		StatusNotifierItemInterface + ".NewToolTip",
	}, names(*signals))
}

func TestItemProperties(t *testing.T) {
	l, _ := newOffline(t, WithCategory(ItemCategoryHardware))
	tray := newTray(t, l)

	it, ok := l.item(tray.Handle())
	require.True(t, ok)

	state, ok := l.Tray(tray.Handle())
	require.True(t, ok)

	props := it.itemProperties(state)
	assert.Equal(t, "Hardware", props["Category"])
	assert.Equal(t, "tip", props["Title"])
	assert.Equal(t, true, props["ItemIsMenu"])
	assert.Equal(t, dbus.ObjectPath(MenuPath), props["Menu"])
	assert.Equal(t, Tooltip{Icon: []Pixmap{}, Title: "tip"}, props["ToolTip"])
	assert.Equal(t, []Pixmap{}, props["IconPixmap"])

	l.title = "fixed"
	assert.Equal(t, "fixed", it.itemProperties(state)["Title"])
}

func TestEventsRunOnPump(t *testing.T) {
	l, _ := newOffline(t)

	var clicks int
	tray := newTray(t, l,
		nativetray.Checkbox("check", false, func(*nativetray.Entry, any) { clicks++ }),
		nativetray.MenuItem{Label: nativetray.String("off"), Disabled: true, Action: func(*nativetray.Entry, any) { clicks++ }},
	)

	it, _ := l.item(tray.Handle())
	entries := tray.Menu().Entries()

	require.Nil(t, it.menu.Event(int32(entries[0].Handle()), "clicked", dbus.MakeVariant(""), 0))
	require.Nil(t, it.menu.Event(int32(entries[0].Handle()), "hovered", dbus.MakeVariant(""), 0))
	require.Nil(t, it.menu.Event(int32(entries[1].Handle()), "clicked", dbus.MakeVariant(""), 0))

	assert.Equal(t, 0, clicks)
	assert.False(t, entries[0].Checked())

	l.Pump()

	assert.Equal(t, 1, clicks)
	assert.True(t, entries[0].Checked())

	l.Pump()
	assert.Equal(t, 1, clicks)
}

func TestEventForRemovedEntry(t *testing.T) {
	l, _ := newOffline(t)

	var clicks int
	tray := newTray(t, l, nativetray.Button("b", func(*nativetray.Entry, any) { clicks++ }))

	it, _ := l.item(tray.Handle())
	entry := tray.Menu().Entries()[0]

	require.Nil(t, it.menu.Event(int32(entry.Handle()), "clicked", dbus.MakeVariant(""), 0))
	require.NoError(t, entry.Remove())

	assert.NotPanics(t, l.Pump)
	assert.Equal(t, 0, clicks)
}

func TestEventUnknownID(t *testing.T) {
	l, _ := newOffline(t)
	first := newTray(t, l, nativetray.Button("a", nil))
	second := newTray(t, l, nativetray.Button("b", nil))

	it, _ := l.item(first.Handle())
	foreign := second.Menu().Entries()[0].Handle()

	assert.Equal(t, errUnknownID, it.menu.Event(int32(foreign), "clicked", dbus.MakeVariant(""), 0))
	assert.Equal(t, errUnknownID, it.menu.Event(999, "clicked", dbus.MakeVariant(""), 0))

	idErrors, err := it.menu.EventGroup([]menuEvent{
		{ID: int32(first.Menu().Entries()[0].Handle()), EventID: "clicked"},
		{ID: int32(foreign), EventID: "clicked"},
	})
	assert.Nil(t, err)
	assert.Equal(t, []int32{int32(foreign)}, idErrors)
}

func TestLibraryImplementsPumper(t *testing.T) {
	var lib native.Library = newLibrary()

	_, ok := lib.(native.Pumper)
	assert.True(t, ok)
}

// fakeBus tracks the names held by published items.
type fakeBus struct {
	owned    []string
	released []string
	fail     error
}

func (b *fakeBus) publish(it *item, _ headless.TrayState) error {
	if b.fail != nil {
		return b.fail
	}
	b.owned = append(b.owned, it.name)
	return nil
}

func (b *fakeBus) withdraw(it *item) error {
	b.owned = slices.DeleteFunc(b.owned, func(name string) bool { return name == it.name })
	b.released = append(b.released, it.name)
	return nil
}

func TestDestroyReleasesItemName(t *testing.T) {
	l, _ := newOffline(t)
	bus := &fakeBus{}
	l.bus = bus

	first := newTray(t, l)
	second := newTray(t, l)

	firstName, _ := l.ItemName(first.Handle())
	secondName, _ := l.ItemName(second.Handle())
	assert.Equal(t, []string{firstName, secondName}, bus.owned)

	first.Destroy()

	assert.Equal(t, []string{secondName}, bus.owned)
	assert.Equal(t, []string{firstName}, bus.released)

	third := newTray(t, l)
	thirdName, _ := l.ItemName(third.Handle())
	assert.NotEqual(t, firstName, thirdName)
}

func TestPublishFailureKeepsTray(t *testing.T) {
	l, _ := newOffline(t)
	l.bus = &fakeBus{fail: errors.New("name taken")}

	tray := newTray(t, l, nativetray.Button("a", nil))

	_, ok := l.ItemName(tray.Handle())
	assert.True(t, ok)
	assert.Len(t, tray.Menu().Entries(), 1)
}

func TestDestroyUnregistersFromWatcher(t *testing.T) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("no session bus: %v", err)
	}
	defer conn.Close()

	l, err := New(conn, WithEmbeddedWatcher())
	require.NoError(t, err)
	defer l.Close()

	tray, err := nativetray.New(l, nativetray.Options{Tooltip: "watched"})
	require.NoError(t, err)

	name, ok := l.ItemName(tray.Handle())
	require.True(t, ok)
	identifier := name + StatusNotifierItemPath

	watcher := conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)
	registered := func() bool {
		property, err := watcher.GetProperty(StatusNotifierWatcherInterface + ".RegisteredStatusNotifierItems")
		if err != nil {
			return false
		}
		items, _ := property.Value().([]string)
		return slices.Contains(items, identifier)
	}

	require.Eventually(t, registered, 5*time.Second, 50*time.Millisecond)

	tray.Destroy()

	assert.Eventually(t, func() bool { return !registered() }, 5*time.Second, 50*time.Millisecond)
}
