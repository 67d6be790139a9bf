package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/nativetray"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const yamlConfig = `
icon: icons/app.png
tooltip: Example
menu:
  - label: Open
    action: exec
    command: xdg-open "https://example.org/a b"
  - {}
  - label: Dark mode
    checked: true
    action: log
    data: theme
  - label: More
    submenu:
      - label: About
        disabled: true
  - label: Quit
    action: quit
`

const tomlConfig = `
tooltip = "Example"

[[menu]]
label = "Open"
action = "log"

[[menu]]
type = "separator"

[[menu]]
label = "More"

[[menu.submenu]]
label = "About"
checked = false
`

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "tray.yaml", yamlConfig)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, f.Path())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "icons", "app.png"), f.Icon)
	assert.Equal(t, "Example", f.Tooltip)
	require.Len(t, f.Menu, 5)

	assert.Nil(t, f.Menu[1].Label)
	assert.Equal(t, "theme", f.Menu[2].Data)
	require.NotNil(t, f.Menu[2].Checked)
	assert.True(t, *f.Menu[2].Checked)
	assert.True(t, f.Menu[3].Submenu[0].Disabled)

	args, err := f.Menu[0].args()
	require.NoError(t, err)
	assert.Equal(t, []string{"xdg-open", "https://example.org/a b"}, args)
}

func TestLoadTOML(t *testing.T) {
	f, err := Load(writeFile(t, "tray.toml", tomlConfig))
	require.NoError(t, err)

	require.Len(t, f.Menu, 3)
	assert.Equal(t, "separator", f.Menu[1].Type)
	require.Len(t, f.Menu[2].Submenu, 1)
	assert.Equal(t, "About", *f.Menu[2].Submenu[0].Label)

	items, err := new(Binder).Items(f.Menu)
	require.NoError(t, err)

	resolved, err := nativetray.ResolveAll(items)
	require.NoError(t, err)
	assert.IsType(t, nativetray.SeparatorKind{}, resolved[1].Kind)
	assert.IsType(t, nativetray.SubmenuKind{}, resolved[2].Kind)
	assert.Equal(t, nativetray.CheckboxKind{}, resolved[2].Kind.(nativetray.SubmenuKind).Items[0].Kind)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		name    string
		content string
		want    string
	}{
		"format":         {"tray.json", `{}`, "unsupported config format"},
		"syntax":         {"tray.yaml", "menu: [", "failed to parse"},
		"unknown action": {"tray.yaml", "menu:\n  - label: a\n    action: dance\n", `item 0: unknown action "dance"`},
		"empty command":  {"tray.yaml", "menu:\n  - label: a\n    action: exec\n", "exec action without a command"},
		"bad quoting":    {"tray.yaml", "menu:\n  - label: a\n    action: exec\n    command: 'echo \"x'\n", "command"},
		"stray command":  {"tray.yaml", "menu:\n  - label: a\n    command: ls\n", "command without exec action"},
		"nested":         {"tray.yaml", "menu:\n  - label: a\n    submenu:\n      - action: quit\n", "item 0: submenu: item 0"},
		"kind conflict":  {"tray.yaml", "menu:\n  - label: a\n    type: button\n    checked: true\n", "checked state"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.name, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithoutMenu(t *testing.T) {
	f, err := Load(writeFile(t, "tray.yml", "tooltip: bare\n"))
	require.NoError(t, err)

	opts, err := f.Options(&Binder{})
	require.NoError(t, err)
	assert.Nil(t, opts.Menu)
	assert.Equal(t, "bare", opts.Tooltip)
	assert.Empty(t, opts.Icon)
}
