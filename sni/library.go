package sni

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
)

var (
	errUnknownID       = dbus.NewError(MenuInterface+".Error.UnknownId", []any{"unknown menu item id"})
	errUnknownProperty = errors.New("unknown menu item property")
)

// Library is a [native.Library] that shows trays through the
// StatusNotifierItem protocol. The tray tree lives in an embedded
// [headless.Library]; every change to it is mirrored on the bus.
//
// D-Bus calls arrive on the connection's goroutines. Menu events they carry
// are queued and delivered by [Library.Pump], so callbacks always run on the
// goroutine that owns the trays.
type Library struct {
	*headless.Library

	conn     *dbus.Conn
	dial     func() (*dbus.Conn, error)
	bus      itemBus
	log      *slog.Logger
	emit     func(conn *dbus.Conn, path dbus.ObjectPath, name string, values ...any)
	title    string
	category ItemCategory
	idPrefix string

	embedWatcher bool
	watcher      *Watcher

	mu     sync.Mutex
	items  map[native.Handle]*item
	next   int
	events []func()
}

var (
	_ native.Library    = (*Library)(nil)
	_ native.Pumper     = (*Library)(nil)
	_ headless.Observer = (*Library)(nil)
)

// Option configures a [Library].
type Option func(*Library)

// WithLogger sets the logger of the library and of its headless tree.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.log = logger
	}
}

// WithTitle sets the Title property of exported items. It defaults to the
// tooltip of the tray.
func WithTitle(title string) Option {
	return func(l *Library) {
		l.title = title
	}
}

// WithCategory sets the Category property of exported items.
func WithCategory(category ItemCategory) Option {
	return func(l *Library) {
		l.category = category
	}
}

// WithIDPrefix sets the prefix of item ids. Ids are the prefix followed by
// a random UUID.
func WithIDPrefix(prefix string) Option {
	return func(l *Library) {
		l.idPrefix = prefix
	}
}

// WithDialer sets how the connection of each item is opened. It defaults to
// a new session bus connection per item.
func WithDialer(dial func() (*dbus.Conn, error)) Option {
	return func(l *Library) {
		l.dial = dial
	}
}

// WithEmbeddedWatcher starts an in-process StatusNotifierWatcher if the bus
// has none.
func WithEmbeddedWatcher() Option {
	return func(l *Library) {
		l.embedWatcher = true
	}
}

// New returns a [Library] exporting trays on the bus of conn, usually the
// session bus. conn hosts the embedded watcher; each tray is exported on a
// connection of its own, see [WithDialer].
func New(conn *dbus.Conn, opts ...Option) (*Library, error) {
	l := newLibrary(opts...)
	l.conn = conn

	dial := l.dial
	if dial == nil {
		dial = func() (*dbus.Conn, error) {
			return dbus.ConnectSessionBus()
		}
	}
	l.bus = sessionBus{dial: dial}

	if l.embedWatcher {
		if err := l.startWatcher(); err != nil {
			return nil, err
		}
	}

	return l, nil
}

func newLibrary(opts ...Option) *Library {
	l := &Library{
		log:      slog.New(slog.DiscardHandler),
		category: ItemCategoryApplicationStatus,
		idPrefix: "nativetray-",
		items:    make(map[native.Handle]*item),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.emit = func(conn *dbus.Conn, path dbus.ObjectPath, name string, values ...any) {
		if conn == nil {
			return
		}
		if err := conn.Emit(path, name, values...); err != nil {
			l.log.Warn("failed to emit signal", "path", path, "signal", name, "error", err)
		}
	}

	l.Library = headless.New(
		headless.WithObserver(l),
		headless.WithLogger(l.log),
	)

	return l
}

// startWatcher starts a [Watcher] unless another process owns the watcher
// name.
func (l *Library) startWatcher() error {
	var owned bool

	err := l.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, StatusNotifierWatcherInterface).Store(&owned)
	if err != nil {
		return fmt.Errorf("look up watcher: %w", err)
	}

	if owned {
		l.log.Debug("using running watcher")
		return nil
	}

	w := NewWatcher(l.conn, l.log)
	if err := w.Listen(); err != nil {
		return err
	}

	l.watcher = w
	l.log.Info("started embedded watcher")

	return nil
}

// Close stops the embedded watcher, if any. Trays must be destroyed first.
func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}

	return l.watcher.Close()
}

// Pump delivers the menu events received since the last call. It must be
// called on the goroutine that owns the trays.
func (l *Library) Pump() {
	l.mu.Lock()
	events := l.events
	l.events = nil
	l.mu.Unlock()

	for _, event := range events {
		event()
	}
}

func (l *Library) enqueue(event func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
}

// ItemID returns the StatusNotifierItem id of tray.
func (l *Library) ItemID(tray native.Handle) (string, bool) {
	it, ok := l.item(tray)
	if !ok {
		return "", false
	}
	return it.id, true
}

// ItemName returns the well-known bus name tray is registered under.
func (l *Library) ItemName(tray native.Handle) (string, bool) {
	it, ok := l.item(tray)
	if !ok {
		return "", false
	}
	return it.name, true
}

func (l *Library) item(tray native.Handle) (*item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[tray]
	return it, ok
}

func (l *Library) TrayCreated(tray native.Handle) {
	l.mu.Lock()
	l.next++
	n := l.next
	l.mu.Unlock()

	it := &item{
		lib:      l,
		tray:     tray,
		id:       l.idPrefix + uuid.NewString(),
		name:     fmt.Sprintf("%s-%d-%d", StatusNotifierItemInterface, os.Getpid(), n),
		path:     StatusNotifierItemPath,
		menuPath: MenuPath,
	}
	it.menu = newMenuObject(it)

	l.mu.Lock()
	l.items[tray] = it
	l.mu.Unlock()

	if l.bus == nil {
		return
	}

	state, _ := l.Tray(tray)
	if err := l.bus.publish(it, state); err != nil {
		l.log.Warn("failed to export tray", "id", it.id, "error", err)
		return
	}

	l.log.Info("tray exported", "id", it.id, "name", it.name)
}

func (l *Library) TrayDestroyed(tray native.Handle) {
	l.mu.Lock()
	it, ok := l.items[tray]
	delete(l.items, tray)
	l.mu.Unlock()

	if !ok {
		return
	}

	if l.bus != nil {
		if err := l.bus.withdraw(it); err != nil {
			l.log.Warn("failed to withdraw tray", "id", it.id, "error", err)
		}
	}

	l.log.Info("tray unexported", "id", it.id, "name", it.name)
}

func (l *Library) TrayChanged(tray native.Handle) {
	it, ok := l.item(tray)
	if !ok {
		return
	}

	state, ok := l.Tray(tray)
	if !ok {
		return
	}

	it.update(state)
}

func (l *Library) MenuChanged(tray, menu native.Handle) {
	it, ok := l.item(tray)
	if !ok {
		return
	}

	parent := rootID
	if _, entry, ok := l.MenuOwner(menu); ok && !entry.Null() {
		parent = int32(entry)
	}

	it.menu.layoutUpdated(parent)
}

func (l *Library) EntryChanged(tray, entry native.Handle) {
	it, ok := l.item(tray)
	if !ok {
		return
	}

	state, ok := l.Entry(entry)
	if !ok {
		return
	}

	it.menu.entryUpdated(state)
}
