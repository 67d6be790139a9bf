//go:build !(darwin || linux || freebsd)

package commands

import (
	"errors"
	"log/slog"

	"github.com/shelepuginivan/nativetray/native"
)

func openSDL(runOptions, *slog.Logger) (native.Library, func() error, error) {
	return nil, nil, errors.New("sdl backend is not supported on this platform")
}
