package config

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/shelepuginivan/nativetray"
)

// Binder turns the actions of a description into entry callbacks.
type Binder struct {
	Logger *slog.Logger

	// Quit is called by quit actions.
	Quit func()

	// Start launches the command of an exec action. The default starts it
	// and reaps it in the background.
	Start func(cmd *exec.Cmd) error
}

func (b *Binder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Items converts items to menu items. A nil slice stays nil.
func (b *Binder) Items(items []Item) ([]nativetray.MenuItem, error) {
	if items == nil {
		return nil, nil
	}

	out := make([]nativetray.MenuItem, len(items))

	for i, it := range items {
		mi, err := b.item(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = mi
	}

	return out, nil
}

func (b *Binder) item(it Item) (nativetray.MenuItem, error) {
	mi := nativetray.MenuItem{
		Pos:      it.Pos,
		Label:    it.Label,
		Type:     nativetray.EntryType(it.Type),
		Checked:  it.Checked,
		Disabled: it.Disabled,
	}

	if it.Data != "" {
		mi.UserData = it.Data
	}

	action, err := b.action(it)
	if err != nil {
		return nativetray.MenuItem{}, err
	}
	mi.Action = action

	if it.Submenu != nil {
		sub, err := b.Items(it.Submenu)
		if err != nil {
			return nativetray.MenuItem{}, fmt.Errorf("submenu: %w", err)
		}
		mi.Submenu = sub
	}

	return mi, nil
}

func (b *Binder) action(it Item) (nativetray.Callback, error) {
	switch it.Action {
	case ActionNone:
		return nil, nil
	case ActionQuit:
		return func(*nativetray.Entry, any) {
			b.logger().Info("quit requested from tray menu")
			if b.Quit != nil {
				b.Quit()
			}
		}, nil
	case ActionLog:
		return func(e *nativetray.Entry, data any) {
			b.logger().Info("tray entry clicked",
				"label", e.Label(),
				"checked", e.Checked(),
				"data", data)
		}, nil
	case ActionExec:
		args, err := it.args()
		if err != nil {
			return nil, err
		}
		return func(e *nativetray.Entry, data any) {
			b.exec(e, data, args)
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", it.Action)
	}
}

// exec runs args with the entry state in the environment.
func (b *Binder) exec(e *nativetray.Entry, data any, args []string) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = append(os.Environ(),
		"NATIVETRAY_LABEL="+e.Label(),
		"NATIVETRAY_CHECKED="+strconv.FormatBool(e.Checked()),
	)
	if s, ok := data.(string); ok {
		cmd.Env = append(cmd.Env, "NATIVETRAY_DATA="+s)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := b.Start
	if start == nil {
		start = startDetached
	}

	if err := start(cmd); err != nil {
		b.logger().Error("failed to run command", "command", args, "error", err)
		return
	}

	b.logger().Debug("command started", "command", args)
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	go cmd.Wait()

	return nil
}
