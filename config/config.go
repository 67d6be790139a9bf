// Package config loads tray descriptions from YAML or TOML files and turns
// them into [nativetray.Options].
//
// A description names the icon, the tooltip and the menu of one tray:
//
//	icon: icons/app.png
//	tooltip: My app
//	menu:
//	  - label: Open
//	    action: exec
//	    command: xdg-open https://example.org
//	  - {}
//	  - label: Quit
//	    action: quit
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shelepuginivan/nativetray"
)

// ErrUnsupportedFormat is returned by [Load] for files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Action names.
const (
	ActionNone = ""
	ActionQuit = "quit"
	ActionLog  = "log"
	ActionExec = "exec"
)

// File is a tray description.
type File struct {
	// Icon path. Relative paths are resolved against the directory of the
	// description file.
	Icon    string `yaml:"icon" toml:"icon"`
	Tooltip string `yaml:"tooltip" toml:"tooltip"`
	Menu    []Item `yaml:"menu" toml:"menu"`

	path string
}

// Item describes one menu entry. An empty item is a separator.
type Item struct {
	Label    *string `yaml:"label" toml:"label"`
	Type     string  `yaml:"type" toml:"type"`
	Pos      *int    `yaml:"pos" toml:"pos"`
	Checked  *bool   `yaml:"checked" toml:"checked"`
	Disabled bool    `yaml:"disabled" toml:"disabled"`

	// Action run on click: quit, log or exec.
	Action string `yaml:"action" toml:"action"`

	// Command line of an exec action, split with shell quoting rules.
	Command string `yaml:"command" toml:"command"`

	// Data is passed to the action as userdata.
	Data string `yaml:"data" toml:"data"`

	Submenu []Item `yaml:"submenu" toml:"submenu"`
}

// Path returns the file the description was loaded from.
func (f *File) Path() string {
	return f.path
}

// Load reads the description at path. The format is chosen by extension:
// .yaml and .yml for YAML, .toml for TOML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	f.path = path
	if f.Icon != "" && !filepath.IsAbs(f.Icon) {
		f.Icon = filepath.Join(filepath.Dir(path), f.Icon)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &f, nil
}

func (f *File) validate() error {
	if err := validateItems(f.Menu); err != nil {
		return err
	}

	items, err := new(Binder).Items(f.Menu)
	if err != nil {
		return err
	}

	_, err = nativetray.ResolveAll(items)
	return err
}

func validateItems(items []Item) error {
	for i, it := range items {
		if err := it.validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if err := validateItems(it.Submenu); err != nil {
			return fmt.Errorf("item %d: submenu: %w", i, err)
		}
	}
	return nil
}

func (it Item) validate() error {
	switch it.Action {
	case ActionNone, ActionQuit, ActionLog:
		if it.Command != "" {
			return fmt.Errorf("command without exec action")
		}
	case ActionExec:
		if _, err := it.args(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown action %q", it.Action)
	}
	return nil
}

// args splits the command line of an exec action.
func (it Item) args() ([]string, error) {
	args, err := shellwords.Parse(it.Command)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", it.Command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("exec action without a command")
	}
	return args, nil
}

// Options returns the tray options described by f, with actions bound by b.
func (f *File) Options(b *Binder) (nativetray.Options, error) {
	items, err := b.Items(f.Menu)
	if err != nil {
		return nativetray.Options{}, err
	}

	return nativetray.Options{
		Icon:    f.Icon,
		Tooltip: f.Tooltip,
		Menu:    items,
		Logger:  b.logger(),
	}, nil
}
