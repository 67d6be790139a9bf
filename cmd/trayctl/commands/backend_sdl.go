//go:build darwin || linux || freebsd

package commands

import (
	"log/slog"

	"github.com/shelepuginivan/nativetray/native"
	"github.com/shelepuginivan/nativetray/native/sdl"
)

func openSDL(opts runOptions, logger *slog.Logger) (native.Library, func() error, error) {
	lib, err := sdl.Open(opts.sdlLibrary, sdl.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	return lib, lib.Close, nil
}
