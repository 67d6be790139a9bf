package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelepuginivan/nativetray"
	"github.com/shelepuginivan/nativetray/config"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG",
		Short: "Check a tray description and print its menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(args[0])
			if err != nil {
				return err
			}

			items, err := new(config.Binder).Items(f.Menu)
			if err != nil {
				return err
			}

			resolved, err := nativetray.ResolveAll(items)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "icon: %s\n", orNone(f.Icon))
			fmt.Fprintf(w, "tooltip: %s\n", orNone(f.Tooltip))
			if f.Menu == nil {
				fmt.Fprintln(w, "menu: none")
				return nil
			}

			fmt.Fprintln(w, "menu:")
			printTree(w, f.Menu, resolved, 1)

			return nil
		},
	}
}

// printTree writes one line per entry: kind, label, state and action.
func printTree(w io.Writer, items []config.Item, resolved []nativetray.Resolved, depth int) {
	indent := strings.Repeat("  ", depth)

	for i, r := range resolved {
		it := items[i]

		var b strings.Builder
		b.WriteString(indent)

		switch k := r.Kind.(type) {
		case nativetray.SeparatorKind:
			b.WriteString("---")
		case nativetray.ButtonKind:
			fmt.Fprintf(&b, "button %q", *r.Label)
		case nativetray.CheckboxKind:
			mark := " "
			if k.Checked {
				mark = "x"
			}
			fmt.Fprintf(&b, "[%s] %q", mark, *r.Label)
		case nativetray.SubmenuKind:
			fmt.Fprintf(&b, "submenu %q", *r.Label)
		}

		if r.Flags.Has(nativetray.EntryDisabled) {
			b.WriteString(" (disabled)")
		}
		if r.Pos != nativetray.Append {
			fmt.Fprintf(&b, " at %d", r.Pos)
		}
		if it.Action != config.ActionNone {
			fmt.Fprintf(&b, " -> %s", it.Action)
			if it.Command != "" {
				fmt.Fprintf(&b, " %s", it.Command)
			}
		}

		fmt.Fprintln(w, b.String())

		if k, ok := r.Kind.(nativetray.SubmenuKind); ok {
			printTree(w, it.Submenu, k.Items, depth+1)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
