package sni

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// nameOwnerChanged matches the NameOwnerChanged signal for one bus name.
func nameOwnerChanged(name string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	}
}

// Watcher implements [StatusNotifierWatcher]. Library starts one when the
// session has no watcher of its own, so that hosts started later can find
// the exported items.
//
// [StatusNotifierWatcher]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierWatcher/
type Watcher struct {
	closed  bool
	conn    *dbus.Conn
	log     *slog.Logger
	mu      sync.Mutex
	signals chan *dbus.Signal
	props   *prop.Properties
	hosts   []string
	items   []string
}

// NewWatcher returns a new [Watcher].
func NewWatcher(conn *dbus.Conn, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		conn:    conn,
		log:     logger,
		signals: make(chan *dbus.Signal, 64),
		hosts:   []string{},
		items:   []string{},
	}
}

// Listen requests the watcher name and exports the watcher.
func (w *Watcher) Listen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("listen: watcher is closed")
	}

	reply, err := w.conn.RequestName(StatusNotifierWatcherInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", StatusNotifierWatcherInterface, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", StatusNotifierWatcherInterface)
	}

	methods := map[string]any{
		"RegisterStatusNotifierItem": w.registerItem,
		"RegisterStatusNotifierHost": w.registerHost,
	}

	if err := w.conn.ExportMethodTable(methods, StatusNotifierWatcherPath, StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("listen: failed to export %s: %w", StatusNotifierWatcherInterface, err)
	}

	props, err := prop.Export(w.conn, StatusNotifierWatcherPath, prop.Map{
		StatusNotifierWatcherInterface: map[string]*prop.Prop{
			"RegisteredStatusNotifierItems":  {Value: []string{}, Emit: prop.EmitTrue},
			"IsStatusNotifierHostRegistered": {Value: false, Emit: prop.EmitTrue},
			"ProtocolVersion":                {Value: int32(0), Emit: prop.EmitTrue},
		},
	})
	if err != nil {
		return fmt.Errorf("listen: failed to export properties: %w", err)
	}
	w.props = props

	w.conn.Signal(w.signals)
	go w.watchOwners()

	w.log.Debug("watcher listening", "name", StatusNotifierWatcherInterface)

	return nil
}

// Close releases the watcher name and stops tracking owners.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if _, err := w.conn.ReleaseName(StatusNotifierWatcherInterface); err != nil {
		return err
	}

	for _, host := range w.hosts {
		w.conn.RemoveMatchSignal(nameOwnerChanged(host)...)
	}

	for _, item := range w.items {
		uniqueName, _ := uniqueNameAndPathFromItemName(item)
		w.conn.RemoveMatchSignal(nameOwnerChanged(uniqueName)...)
	}

	w.conn.Export(nil, StatusNotifierWatcherPath, StatusNotifierWatcherInterface)
	w.conn.RemoveSignal(w.signals)
	close(w.signals)

	w.closed = true

	return nil
}

// Items returns the registered items as "<unique name><object path>".
func (w *Watcher) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.items)
}

// registerItem handles RegisterStatusNotifierItem. name is either a bus
// name, for items exported at the default path, or an object path on the
// sender's connection.
func (w *Watcher) registerItem(sender dbus.Sender, name string) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	owner := name
	identifier := name + StatusNotifierItemPath

	if strings.HasPrefix(name, "/") {
		owner = string(sender)
		identifier = string(sender) + name
	}

	if slices.Contains(w.items, identifier) {
		return nil
	}

	w.items = append(w.items, identifier)

	// Whenever the owner disappears, D-Bus sends NameOwnerChanged with an
	// empty new owner and the item is unregistered.
	w.conn.AddMatchSignal(nameOwnerChanged(owner)...)

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemRegistered", identifier)
	w.updateProperties()

	w.log.Debug("item registered", "item", identifier)

	return nil
}

// registerHost handles RegisterStatusNotifierHost.
func (w *Watcher) registerHost(name string) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.hosts, name) {
		return nil
	}

	w.hosts = append(w.hosts, name)
	w.conn.AddMatchSignal(nameOwnerChanged(name)...)

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostRegistered")
	w.updateProperties()

	w.log.Debug("host registered", "host", name)

	return nil
}

func (w *Watcher) watchOwners() {
	for signal := range w.signals {
		if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(signal.Body) < 3 {
			continue
		}

		name, ok := signal.Body[0].(string)
		if !ok {
			continue
		}

		newOwner, ok := signal.Body[2].(string)
		if !ok || newOwner != "" {
			continue
		}

		w.nameVanished(name)
	}
}

// nameVanished unregisters the hosts and items owned by name.
func (w *Watcher) nameVanished(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.conn.RemoveMatchSignal(nameOwnerChanged(name)...)

	w.hosts = slices.DeleteFunc(w.hosts, func(host string) bool {
		return host == name
	})

	w.items = slices.DeleteFunc(w.items, func(item string) bool {
		uniqueName, _ := uniqueNameAndPathFromItemName(item)
		if uniqueName != name {
			return false
		}

		w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemUnregistered", item)
		w.log.Debug("item unregistered", "item", item)

		return true
	})

	w.updateProperties()
}

func (w *Watcher) updateProperties() {
	if w.props == nil {
		return
	}

	w.props.SetMust(StatusNotifierWatcherInterface, "RegisteredStatusNotifierItems", slices.Clone(w.items))
	w.props.SetMust(StatusNotifierWatcherInterface, "IsStatusNotifierHostRegistered", len(w.hosts) > 0)
}
