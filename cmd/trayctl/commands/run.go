package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelepuginivan/nativetray"
	"github.com/shelepuginivan/nativetray/config"
	"github.com/shelepuginivan/nativetray/native"
)

type runOptions struct {
	backend      string
	watch        bool
	pumpInterval time.Duration
	sdlLibrary   string
	embedWatcher bool
	title        string
}

func defaultBackend() string {
	if runtime.GOOS == "linux" {
		return backendSNI
	}
	return backendSDL
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run CONFIG",
		Short: "Show the tray described by a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, args[0], opts, slog.Default())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.backend, "backend", defaultBackend(), "tray backend: sni, sdl or headless")
	flags.BoolVar(&opts.watch, "watch", false, "rebuild the tray when the config file changes")
	flags.DurationVar(&opts.pumpInterval, "pump-interval", 50*time.Millisecond, "how often pending tray events are processed")
	flags.StringVar(&opts.sdlLibrary, "sdl-library", "", "path of libSDL3 (sdl backend)")
	flags.BoolVar(&opts.embedWatcher, "embed-watcher", false, "serve org.kde.StatusNotifierWatcher if no one else does (sni backend)")
	flags.StringVar(&opts.title, "title", "", "item title shown by hosts (sni backend)")

	return cmd
}

func run(ctx context.Context, path string, opts runOptions, logger *slog.Logger) error {
	f, err := config.Load(path)
	if err != nil {
		return err
	}

	lib, closeLib, err := openBackend(opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLib(); err != nil {
			logger.Warn("failed to close backend", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := newSession(lib, &config.Binder{Logger: logger, Quit: cancel}, logger)
	if err := s.rebuild(f); err != nil {
		return err
	}
	defer s.close()

	var changes <-chan *config.File
	if opts.watch {
		w, err := config.NewWatcher(path, config.WithWatcherLogger(logger))
		if err != nil {
			return err
		}
		defer w.Close()
		changes = w.Changes()
	}

	logger.Info("tray running", "backend", opts.backend, "config", path)

	pumper, _ := lib.(native.Pumper)

	ticker := time.NewTicker(opts.pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("tray stopped")
			return nil
		case f := <-changes:
			if err := s.rebuild(f); err != nil {
				logger.Error("failed to rebuild tray, keeping the old one", "error", err)
			}
		case <-ticker.C:
			if pumper != nil {
				pumper.Pump()
			}
		}
	}
}

// session owns the tray shown by run. Menus cannot be re-populated, so a new
// description replaces the whole tray.
type session struct {
	lib    native.Library
	binder *config.Binder
	log    *slog.Logger
	tray   *nativetray.Tray
}

func newSession(lib native.Library, binder *config.Binder, logger *slog.Logger) *session {
	return &session{lib: lib, binder: binder, log: logger}
}

// rebuild creates a tray for f and destroys the previous one. On failure the
// previous tray stays.
func (s *session) rebuild(f *config.File) error {
	opts, err := f.Options(s.binder)
	if err != nil {
		return err
	}

	tray, err := nativetray.New(s.lib, opts)
	if err != nil {
		return fmt.Errorf("create tray: %w", err)
	}

	if s.tray != nil {
		s.tray.Destroy()
	}
	s.tray = tray

	s.log.Debug("tray built", "config", f.Path(), "entries", len(f.Menu))

	return nil
}

func (s *session) close() {
	if s.tray != nil {
		s.tray.Destroy()
	}
}
