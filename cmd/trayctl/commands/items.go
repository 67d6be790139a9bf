package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/shelepuginivan/nativetray/sni"
)

func newItemsCommand() *cobra.Command {
	var showMenu bool

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the tray items registered on the session bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dbus.ConnectSessionBus()
			if err != nil {
				return fmt.Errorf("connect to session bus: %w", err)
			}
			defer conn.Close()

			items, err := sni.RegisteredItems(conn)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, item := range items {
				printItem(w, item)

				if !showMenu || item.MenuPath == "" {
					continue
				}

				menu, err := item.Layout(conn)
				if err != nil {
					fmt.Fprintf(w, "  menu: %v\n", err)
					continue
				}
				printLayout(w, menu.Children, 1)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showMenu, "menu", false, "print the menu of every item")

	return cmd
}

func printItem(w io.Writer, item *sni.RemoteItem) {
	fmt.Fprintf(w, "%s%s %s [%s, %s]", item.UniqueName, item.Path, item.ID, item.Category, item.Status)
	if title := item.Title; title != "" {
		fmt.Fprintf(w, " %q", title)
	}
	fmt.Fprintln(w)
}

func printLayout(w io.Writer, nodes []*sni.LayoutNode, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, n := range nodes {
		if n.Separator() {
			fmt.Fprintf(w, "%s---\n", indent)
			continue
		}

		fmt.Fprintf(w, "%s%d %q\n", indent, n.ID, n.Label())
		printLayout(w, n.Children, depth+1)
	}
}

func newClickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "click ITEM-ID NODE-ID",
		Short: "Click a menu entry of a registered tray item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid node id %q", args[1])
			}

			conn, err := dbus.ConnectSessionBus()
			if err != nil {
				return fmt.Errorf("connect to session bus: %w", err)
			}
			defer conn.Close()

			items, err := sni.RegisteredItems(conn)
			if err != nil {
				return err
			}

			for _, item := range items {
				if item.ID == args[0] {
					return item.Click(conn, int32(node))
				}
			}

			return fmt.Errorf("no registered item with id %q", args[0])
		},
	}
}
