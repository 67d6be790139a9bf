package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/headless"
	"github.com/shelepuginivan/nativetray/sni"
)

const (
	backendSNI      = "sni"
	backendSDL      = "sdl"
	backendHeadless = "headless"
)

// openBackend returns the native library named by opts and a function
// releasing it.
func openBackend(opts runOptions, logger *slog.Logger) (native.Library, func() error, error) {
	switch opts.backend {
	case backendHeadless:
		return headless.New(headless.WithLogger(logger)), func() error { return nil }, nil
	case backendSNI:
		return openSNI(opts, logger)
	case backendSDL:
		return openSDL(opts, logger)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

func openSNI(opts runOptions, logger *slog.Logger) (native.Library, func() error, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("connect to session bus: %w", err)
	}

	snOpts := []sni.Option{sni.WithLogger(logger)}
	if opts.title != "" {
		snOpts = append(snOpts, sni.WithTitle(opts.title))
	}
	if opts.embedWatcher {
		snOpts = append(snOpts, sni.WithEmbeddedWatcher())
	}

	lib, err := sni.New(conn, snOpts...)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		return errors.Join(lib.Close(), conn.Close())
	}

	return lib, closeFn, nil
}
