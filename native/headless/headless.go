// Package headless implements [native.Library] in memory.
//
// The tree behaves like the SDL3 tray implementation: positions are checked,
// separators keep their null label, clicking a checkbox toggles it before the
// callback runs, and removing an entry frees its submenu. Nothing is drawn.
// The library is used by tests, by headless runs, and as the model behind the
// D-Bus backend in package sni.
//
// Unlike a real native library, Library is safe for concurrent reads: a
// mutex guards the tree so that snapshot accessors can be called from other
// goroutines.
package headless

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/shelepuginivan/nativetray/native"
)

// Errors reported through [Library.Error].
const (
	errInvalidParam       = "Parameter '%s' is invalid"
	errTrayUnsupported    = "System tray is not supported on this platform"
	errMenuExists         = "Tray menu already exists"
	errSubmenuExists      = "Tray entry submenu already exists"
	errNotSubmenu         = "Cannot create submenu for entry not created with SDL_TRAYENTRY_SUBMENU"
	errNotCheckbox        = "Cannot update check for entry not created with SDL_TRAYENTRY_CHECKBOX"
	errInvalidPosition    = "Invalid entry position"
	errInvalidEntryFlags  = "Invalid entry flags"
	errUnsupportedSurface = "Unsupported image format"
)

type tray struct {
	handle  native.Handle
	icon    image.Image
	tooltip *string
	menu    *menu
}

type menu struct {
	handle      native.Handle
	tray        *tray
	parentEntry *entry
	entries     []*entry
}

type entry struct {
	handle   native.Handle
	parent   *menu
	label    *string
	flags    native.EntryFlags
	checked  bool
	enabled  bool
	submenu  *menu
	callback native.Trampoline
}

// Library is an in-memory native tray library.
type Library struct {
	mu            sync.Mutex
	traySupported bool
	observer      Observer
	log           *slog.Logger
	pending       []func(Observer)
	lastErr       string
	next          native.Handle

	surfaces    map[native.Handle]image.Image
	trays       map[native.Handle]*tray
	menus       map[native.Handle]*menu
	entries     map[native.Handle]*entry
	trampolines map[native.Trampoline]func(native.Handle)
	nextTramp   native.Trampoline
}

var _ native.Library = (*Library)(nil)

// Option configures a [Library].
type Option func(*Library)

// WithTraySupport sets whether CreateTray succeeds. It defaults to true.
func WithTraySupport(supported bool) Option {
	return func(l *Library) {
		l.traySupported = supported
	}
}

// WithObserver registers an observer of tree changes.
func WithObserver(o Observer) Option {
	return func(l *Library) {
		l.observer = o
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.log = logger
	}
}

// New returns an empty [Library].
func New(opts ...Option) *Library {
	l := &Library{
		traySupported: true,
		log:           slog.New(slog.DiscardHandler),
		surfaces:      make(map[native.Handle]image.Image),
		trays:         make(map[native.Handle]*tray),
		menus:         make(map[native.Handle]*menu),
		entries:       make(map[native.Handle]*entry),
		trampolines:   make(map[native.Trampoline]func(native.Handle)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// lock and unlock bracket every access to the tree. unlock delivers the
// notifications queued while the lock was held.
func (l *Library) lock() {
	l.mu.Lock()
}

func (l *Library) unlock() {
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	if l.observer == nil {
		return
	}

	for _, notify := range pending {
		notify(l.observer)
	}
}

func (l *Library) notify(fn func(Observer)) {
	if l.observer != nil {
		l.pending = append(l.pending, fn)
	}
}

func (l *Library) setError(format string, args ...any) {
	l.lastErr = fmt.Sprintf(format, args...)
}

func (l *Library) allocHandle() native.Handle {
	l.next++
	return l.next
}

// rootOf returns the tray a menu ultimately belongs to.
func rootOf(m *menu) *tray {
	for m != nil {
		if m.tray != nil {
			return m.tray
		}
		if m.parentEntry == nil {
			return nil
		}
		m = m.parentEntry.parent
	}
	return nil
}

func (l *Library) Error() string {
	l.lock()
	defer l.unlock()

	return l.lastErr
}

func (l *Library) CreateTray(icon native.Handle, tooltip *string) native.Handle {
	l.lock()
	defer l.unlock()

	if !l.traySupported {
		l.setError(errTrayUnsupported)
		return 0
	}

	t := &tray{
		handle:  l.allocHandle(),
		tooltip: cloneString(tooltip),
	}

	if !icon.Null() {
		t.icon = l.surfaces[icon]
	}

	l.trays[t.handle] = t
	l.log.Debug("tray created", "tray", t.handle)
	l.notify(func(o Observer) { o.TrayCreated(t.handle) })

	return t.handle
}

func (l *Library) DestroyTray(h native.Handle) {
	l.lock()
	defer l.unlock()

	t, ok := l.trays[h]
	if !ok {
		l.setError(errInvalidParam, "tray")
		return
	}

	if t.menu != nil {
		l.freeMenu(t.menu)
	}

	delete(l.trays, h)
	l.log.Debug("tray destroyed", "tray", h)
	l.notify(func(o Observer) { o.TrayDestroyed(h) })
}

func (l *Library) SetTrayIcon(h native.Handle, icon native.Handle) {
	l.lock()
	defer l.unlock()

	t, ok := l.trays[h]
	if !ok {
		l.setError(errInvalidParam, "tray")
		return
	}

	t.icon = nil
	if !icon.Null() {
		t.icon = l.surfaces[icon]
	}

	l.notify(func(o Observer) { o.TrayChanged(h) })
}

func (l *Library) SetTrayTooltip(h native.Handle, tooltip *string) {
	l.lock()
	defer l.unlock()

	t, ok := l.trays[h]
	if !ok {
		l.setError(errInvalidParam, "tray")
		return
	}

	t.tooltip = cloneString(tooltip)
	l.notify(func(o Observer) { o.TrayChanged(h) })
}

func (l *Library) CreateTrayMenu(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	t, ok := l.trays[h]
	if !ok {
		l.setError(errInvalidParam, "tray")
		return 0
	}

	if t.menu != nil {
		l.setError(errMenuExists)
		return 0
	}

	m := &menu{handle: l.allocHandle(), tray: t}
	l.menus[m.handle] = m
	t.menu = m

	l.notify(func(o Observer) { o.MenuChanged(h, m.handle) })

	return m.handle
}

func (l *Library) GetTrayMenu(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	t, ok := l.trays[h]
	if !ok {
		l.setError(errInvalidParam, "tray")
		return 0
	}

	if t.menu == nil {
		return 0
	}

	return t.menu.handle
}

func (l *Library) CreateTraySubmenu(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return 0
	}

	if e.submenu != nil {
		l.setError(errSubmenuExists)
		return 0
	}

	if !e.flags.Has(native.EntrySubmenu) {
		l.setError(errNotSubmenu)
		return 0
	}

	m := &menu{handle: l.allocHandle(), parentEntry: e}
	l.menus[m.handle] = m
	e.submenu = m

	if root := rootOf(e.parent); root != nil {
		l.notify(func(o Observer) { o.MenuChanged(root.handle, m.handle) })
	}

	return m.handle
}

func (l *Library) GetTraySubmenu(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return 0
	}

	if e.submenu == nil {
		return 0
	}

	return e.submenu.handle
}

func (l *Library) GetTrayEntries(h native.Handle) []native.Handle {
	l.lock()
	defer l.unlock()

	m, ok := l.menus[h]
	if !ok {
		l.setError(errInvalidParam, "menu")
		return nil
	}

	handles := make([]native.Handle, len(m.entries))
	for i, e := range m.entries {
		handles[i] = e.handle
	}

	return handles
}

func (l *Library) InsertTrayEntryAt(h native.Handle, pos int, label *string, flags native.EntryFlags) native.Handle {
	l.lock()
	defer l.unlock()

	m, ok := l.menus[h]
	if !ok {
		l.setError(errInvalidParam, "menu")
		return 0
	}

	if pos < native.Append || pos > len(m.entries) {
		l.setError(errInvalidPosition)
		return 0
	}

	switch flags.Kind() {
	case native.EntryButton, native.EntryCheckbox, native.EntrySubmenu:
	default:
		l.setError(errInvalidEntryFlags)
		return 0
	}

	e := &entry{
		handle:  l.allocHandle(),
		parent:  m,
		label:   cloneString(label),
		flags:   flags,
		checked: flags.Has(native.EntryChecked),
		enabled: !flags.Has(native.EntryDisabled),
	}

	if pos == native.Append {
		pos = len(m.entries)
	}

	m.entries = slices.Insert(m.entries, pos, e)
	l.entries[e.handle] = e

	if root := rootOf(m); root != nil {
		l.notify(func(o Observer) { o.MenuChanged(root.handle, m.handle) })
	}

	return e.handle
}

func (l *Library) RemoveTrayEntry(h native.Handle) {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return
	}

	m := e.parent
	root := rootOf(m)

	m.entries = slices.DeleteFunc(m.entries, func(other *entry) bool {
		return other == e
	})
	l.freeEntry(e)

	if root != nil {
		l.notify(func(o Observer) { o.MenuChanged(root.handle, m.handle) })
	}
}

// freeMenu and freeEntry drop a subtree from the handle tables. Trampolines
// are not freed: they belong to the caller.
func (l *Library) freeMenu(m *menu) {
	for _, e := range m.entries {
		l.freeEntry(e)
	}
	m.entries = nil
	delete(l.menus, m.handle)
}

func (l *Library) freeEntry(e *entry) {
	if e.submenu != nil {
		l.freeMenu(e.submenu)
	}
	delete(l.entries, e.handle)
}

func (l *Library) SetTrayEntryLabel(h native.Handle, label *string) {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return
	}

	// A separator stays a separator, and a labelled entry cannot become one.
	if (e.label == nil) != (label == nil) {
		return
	}

	e.label = cloneString(label)
	l.entryChanged(e)
}

func (l *Library) GetTrayEntryLabel(h native.Handle) *string {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return nil
	}

	return cloneString(e.label)
}

func (l *Library) SetTrayEntryChecked(h native.Handle, checked bool) {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return
	}

	if !e.flags.Has(native.EntryCheckbox) {
		l.setError(errNotCheckbox)
		return
	}

	e.checked = checked
	l.entryChanged(e)
}

func (l *Library) GetTrayEntryChecked(h native.Handle) bool {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return false
	}

	if !e.flags.Has(native.EntryCheckbox) {
		l.setError(errNotCheckbox)
		return false
	}

	return e.checked
}

func (l *Library) SetTrayEntryEnabled(h native.Handle, enabled bool) {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return
	}

	e.enabled = enabled
	l.entryChanged(e)
}

func (l *Library) GetTrayEntryEnabled(h native.Handle) bool {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return false
	}

	return e.enabled
}

func (l *Library) entryChanged(e *entry) {
	if root := rootOf(e.parent); root != nil {
		l.notify(func(o Observer) { o.EntryChanged(root.handle, e.handle) })
	}
}

func (l *Library) NewTrampoline(fn func(native.Handle)) native.Trampoline {
	l.lock()
	defer l.unlock()

	l.nextTramp++
	l.trampolines[l.nextTramp] = fn

	return l.nextTramp
}

// FreeTrampoline releases t. Releasing an unknown trampoline panics, as a
// double free would abort a native process.
func (l *Library) FreeTrampoline(t native.Trampoline) {
	l.lock()
	defer l.unlock()

	if _, ok := l.trampolines[t]; !ok {
		panic(fmt.Sprintf("headless: free of unknown trampoline %d", t))
	}

	delete(l.trampolines, t)
}

func (l *Library) SetTrayEntryCallback(h native.Handle, t native.Trampoline) {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return
	}

	e.callback = t
}

// ClickTrayEntry toggles a checkbox entry and then runs its callback on the
// calling goroutine. Calling through a freed trampoline panics.
func (l *Library) ClickTrayEntry(h native.Handle) {
	l.lock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		l.unlock()
		return
	}

	if e.flags.Has(native.EntryCheckbox) {
		e.checked = !e.checked
		l.entryChanged(e)
	}

	var fn func(native.Handle)
	if e.callback != 0 {
		fn, ok = l.trampolines[e.callback]
		if !ok {
			t := e.callback
			l.unlock()
			panic(fmt.Sprintf("headless: call through freed trampoline %d", t))
		}
	}

	l.unlock()

	if fn != nil {
		fn(h)
	}
}

func (l *Library) GetTrayEntryParent(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	e, ok := l.entries[h]
	if !ok {
		l.setError(errInvalidParam, "entry")
		return 0
	}

	return e.parent.handle
}

func (l *Library) GetTrayMenuParentEntry(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	m, ok := l.menus[h]
	if !ok {
		l.setError(errInvalidParam, "menu")
		return 0
	}

	if m.parentEntry == nil {
		return 0
	}

	return m.parentEntry.handle
}

func (l *Library) GetTrayMenuParentTray(h native.Handle) native.Handle {
	l.lock()
	defer l.unlock()

	m, ok := l.menus[h]
	if !ok {
		l.setError(errInvalidParam, "menu")
		return 0
	}

	if m.tray == nil {
		return 0
	}

	return m.tray.handle
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
