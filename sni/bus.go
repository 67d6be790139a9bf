package sni

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/nativetray/native/headless"
)

// itemBus puts items on the bus and takes them off again.
type itemBus interface {
	publish(it *item, state headless.TrayState) error
	withdraw(it *item) error
}

// sessionBus gives every item its own connection, so that the watcher sees
// the item's name vanish when the tray is destroyed. The StatusNotifierItem
// protocol has no unregister call.
type sessionBus struct {
	dial func() (*dbus.Conn, error)
}

func (b sessionBus) publish(it *item, state headless.TrayState) error {
	conn, err := b.dial()
	if err != nil {
		return fmt.Errorf("connect item %s: %w", it.name, err)
	}

	reply, err := conn.RequestName(it.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("request name %s: %w", it.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("name %s is already taken", it.name)
	}

	it.conn = conn

	if err := it.export(conn, state); err != nil {
		it.conn = nil
		conn.Close()
		return err
	}

	return nil
}

func (b sessionBus) withdraw(it *item) error {
	conn := it.conn
	if conn == nil {
		return nil
	}
	it.conn = nil

	it.unexport(conn)

	_, err := conn.ReleaseName(it.name)
	if err != nil {
		err = fmt.Errorf("release name %s: %w", it.name, err)
	}

	return errors.Join(err, conn.Close())
}
