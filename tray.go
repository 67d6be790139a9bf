package nativetray

import (
	"fmt"
	"log/slog"

	"github.com/shelepuginivan/nativetray/native"
)

// Options describes a tray to create.
type Options struct {
	// Path of the icon image. Empty means no icon.
	Icon string

	// Text shown when hovering the tray icon. Empty means no tooltip.
	Tooltip string

	// Top-level menu of the tray. A nil slice creates no menu; an empty
	// non-nil slice creates an empty one.
	Menu []MenuItem

	// Logger for lifecycle events. Defaults to a logger that discards
	// everything.
	Logger *slog.Logger
}

// Tray is the root of the tray tree. It owns the native tray handle, the
// top-level menu and the trampolines of every registered callback.
type Tray struct {
	lib       native.Library
	handle    native.Handle
	destroyed bool
	log       *slog.Logger
	callbacks *registry

	// Generation of every handle wrapped so far. A wrapper is valid while
	// its generation matches; freed handles are dropped so that a reused
	// native address gets a new generation.
	gens    map[native.Handle]uint64
	nextGen uint64

	// Menus built with [Menu.Build].
	populated map[native.Handle]bool
}

// New creates a native tray. If opts.Menu is not nil the top-level menu is
// created and built from it; if that fails the tray is destroyed again.
func New(lib native.Library, opts Options) (*Tray, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var icon native.Handle
	if opts.Icon != "" {
		icon = lib.LoadSurface(opts.Icon)
		if icon.Null() {
			logger.Warn("failed to load tray icon", "path", opts.Icon, "error", lib.Error())
		}
	}

	handle := lib.CreateTray(icon, optional(opts.Tooltip))

	var err error
	if handle.Null() {
		err = creationError(lib, "create tray")
	}

	if !icon.Null() {
		lib.DestroySurface(icon)
	}

	if err != nil {
		return nil, err
	}

	t := &Tray{
		lib:       lib,
		handle:    handle,
		log:       logger,
		callbacks: newRegistry(lib),
		gens:      make(map[native.Handle]uint64),
		populated: make(map[native.Handle]bool),
	}

	logger.Debug("tray created", "tray", handle)

	if opts.Menu == nil {
		return t, nil
	}

	menu, err := t.CreateMenu()
	if err != nil {
		t.Destroy()
		return nil, err
	}

	if err := menu.Build(opts.Menu); err != nil {
		t.Destroy()
		return nil, fmt.Errorf("build tray menu: %w", err)
	}

	return t, nil
}

// Handle returns the native tray handle, or the null handle after
// [Tray.Destroy].
func (t *Tray) Handle() native.Handle {
	return t.handle
}

// Destroyed reports whether [Tray.Destroy] was called.
func (t *Tray) Destroyed() bool {
	return t.destroyed
}

// CreateMenu creates the top-level menu. It must be called at most once;
// the native library rejects a second call.
func (t *Tray) CreateMenu() (*Menu, error) {
	if t.destroyed {
		return nil, &UseAfterDestroyError{Op: "create tray menu"}
	}

	h := t.lib.CreateTrayMenu(t.handle)
	if h.Null() {
		return nil, creationError(t.lib, "create tray menu")
	}

	return t.wrapMenu(h), nil
}

// Menu returns the top-level menu, or nil if none was created.
func (t *Tray) Menu() *Menu {
	if t.destroyed {
		return nil
	}

	h := t.lib.GetTrayMenu(t.handle)
	if h.Null() {
		return nil
	}

	return t.wrapMenu(h)
}

// SetIcon replaces the tray icon with the image at path. An empty path
// removes the icon. If the image cannot be loaded the icon is left
// unchanged.
func (t *Tray) SetIcon(path string) error {
	if t.destroyed {
		return &UseAfterDestroyError{Op: "set tray icon"}
	}

	if path == "" {
		t.lib.SetTrayIcon(t.handle, 0)
		return nil
	}

	icon := t.lib.LoadSurface(path)
	if icon.Null() {
		return fmt.Errorf("load tray icon %s: %s", path, t.lib.Error())
	}

	t.lib.SetTrayIcon(t.handle, icon)
	t.lib.DestroySurface(icon)

	return nil
}

// SetTooltip replaces the tooltip. An empty text removes it.
func (t *Tray) SetTooltip(text string) {
	if t.destroyed {
		return
	}

	t.lib.SetTrayTooltip(t.handle, optional(text))
}

// RegisterCallback installs cb as the click callback of entry. A callback
// previously registered for the same entry is retired first, so an entry
// never holds more than one trampoline. A nil cb only retires the previous
// callback.
func (t *Tray) RegisterCallback(entry *Entry, cb Callback, userdata any) error {
	if err := entry.check("register callback"); err != nil {
		return err
	}

	if entry.tray != t {
		return fmt.Errorf("register callback: entry %d belongs to another tray", entry.handle)
	}

	if cb == nil {
		t.callbacks.retire(entry.handle, true)
		return nil
	}

	t.callbacks.register(entry.handle, cb, userdata, t.invoke)

	return nil
}

// invoke runs a registered callback for the clicked entry.
func (t *Tray) invoke(h native.Handle, rec *registration) {
	rec.callback(t.wrapEntry(h), rec.userdata)
}

// Callbacks returns the number of live trampolines registered in the tray.
func (t *Tray) Callbacks() int {
	return t.callbacks.len()
}

// Destroy destroys the native tray and retires every trampoline registered
// for its entries. All wrappers obtained from the tray become invalid.
// Calling Destroy again does nothing.
func (t *Tray) Destroy() {
	if t.destroyed {
		return
	}

	// The native tree goes first: destroying it does not call back into
	// trampolines, and afterwards nothing native references them.
	t.lib.DestroyTray(t.handle)
	retired := t.callbacks.retireAll()

	t.log.Debug("tray destroyed", "tray", t.handle, "callbacks", retired)

	t.handle = 0
	t.destroyed = true
	clear(t.gens)
	clear(t.populated)
}

// track returns the generation of h, assigning a new one on first use.
func (t *Tray) track(h native.Handle) uint64 {
	if gen, ok := t.gens[h]; ok {
		return gen
	}

	t.nextGen++
	t.gens[h] = t.nextGen

	return t.nextGen
}

// alive reports whether a wrapper of h created at generation gen is still
// valid.
func (t *Tray) alive(h native.Handle, gen uint64) bool {
	if t.destroyed || h.Null() {
		return false
	}

	current, ok := t.gens[h]
	return ok && current == gen
}

// release invalidates every wrapper of h.
func (t *Tray) release(h native.Handle) {
	delete(t.gens, h)
	delete(t.populated, h)
}

// retireSubtree retires the trampolines of entry and of every entry below
// it, and invalidates their wrappers. It must run before the entry is
// removed natively, while the subtree can still be walked.
func (t *Tray) retireSubtree(entry native.Handle) {
	if sub := t.lib.GetTraySubmenu(entry); !sub.Null() {
		for _, child := range t.lib.GetTrayEntries(sub) {
			t.retireSubtree(child)
		}
		t.release(sub)
	}

	t.callbacks.retire(entry, true)
	t.release(entry)
}

func (t *Tray) wrapMenu(h native.Handle) *Menu {
	return &Menu{tray: t, handle: h, gen: t.track(h)}
}

func (t *Tray) wrapEntry(h native.Handle) *Entry {
	return &Entry{tray: t, handle: h, gen: t.track(h)}
}

// optional maps an empty string to a null native string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
