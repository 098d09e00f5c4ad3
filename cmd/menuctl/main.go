// Command menuctl manages the menu from a terminal through the REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"menu-admin/client"
	"menu-admin/models"
	"menu-admin/validation"
)

type options struct {
	server   string
	username string
	password string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "menuctl",
		Short:        "Manage restaurant menu items",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("MENU_SERVER", "http://localhost:8080"), "menu API base URL")
	root.PersistentFlags().StringVar(&opts.username, "username", envOr("ADMIN_USERNAME", "admin"), "admin username")
	root.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password")

	root.AddCommand(
		newListCmd(opts),
		newToggleCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
	)
	return root
}

// connect loads the menu, logging in first when a password is given.
func connect(ctx context.Context, opts *options, login bool) (*client.Controller, error) {
	cl := client.New(opts.server)
	if login {
		if opts.password == "" {
			return nil, errors.New("--password (or ADMIN_PASSWORD) is required for changes")
		}
		if err := cl.Login(ctx, opts.username, opts.password); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
	}
	c := client.NewController(cl)
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	return c, nil
}

func newListCmd(opts *options) *cobra.Command {
	var category int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List menu items grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if category != 0 {
				return printItems(out, c.Filter(category))
			}
			for _, g := range c.Grouped() {
				fmt.Fprintf(out, "%s (%d)\n", g.Category.Name, len(g.Items))
				if err := printItems(out, g.Items); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&category, "category", 0, "only show items in this category id")
	return cmd
}

func newToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip an item's availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			item, err := c.ToggleAvailability(cmd.Context(), id)
			if err != nil {
				return describe(err)
			}
			return printItems(cmd.OutOrStdout(), []models.MenuItem{item})
		},
	}
}

type itemFlags struct {
	name        string
	description string
	price       string
	imageURL    string
	available   bool
	categoryID  int64
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "item name")
	cmd.Flags().StringVar(&f.description, "description", "", "item description")
	cmd.Flags().StringVar(&f.price, "price", "", "price, e.g. 12.99")
	cmd.Flags().StringVar(&f.imageURL, "image-url", "", "image URL")
	cmd.Flags().BoolVar(&f.available, "available", true, "whether the item can be ordered")
	cmd.Flags().Int64Var(&f.categoryID, "category", 0, "category id")
}

// apply copies the flags the user set onto in. With all=true every flag is
// copied, defaults included.
func (f *itemFlags) apply(cmd *cobra.Command, in *models.MenuItemInput, all bool) {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if set("name") {
		in.Name = f.name
	}
	if set("description") {
		in.Description = f.description
	}
	if set("price") {
		in.Price = models.RawPrice(f.price)
	}
	if set("image-url") {
		url := f.imageURL
		in.ImageURL = &url
	}
	if set("available") {
		available := f.available
		in.IsAvailable = &available
	}
	if set("category") {
		in.CategoryID = f.categoryID
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	f := &itemFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a menu item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			var form client.Form
			f.apply(cmd, &form.MenuItemInput, true)
			item, err := c.SaveItem(cmd.Context(), form)
			if err != nil {
				return describe(err)
			}
			return printItems(cmd.OutOrStdout(), []models.MenuItem{item})
		},
	}
	f.register(cmd)
	return cmd
}

func newUpdateCmd(opts *options) *cobra.Command {
	f := &itemFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a menu item; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context(), opts, true)
			if err != nil {
				return err
			}
			form, err := c.EditForm(id)
			if err != nil {
				return describe(err)
			}
			f.apply(cmd, &form.MenuItemInput, false)
			item, err := c.SaveItem(cmd.Context(), form)
			if err != nil {
				return describe(err)
			}
			return printItems(cmd.OutOrStdout(), []models.MenuItem{item})
		},
	}
	f.register(cmd)
	return cmd
}

func printItems(out io.Writer, items []models.MenuItem) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tAVAILABLE")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", it.ID, it.Name, it.Price.StringFixed(2), it.CategoryName, it.IsAvailable)
	}
	return w.Flush()
}

// describe turns field violations into one line per field.
func describe(err error) error {
	var v validation.Violations
	if !errors.As(err, &v) {
		var ae *client.APIError
		if !errors.As(err, &ae) || len(ae.Fields) == 0 {
			return err
		}
		v = ae.Fields
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msg := "menu item rejected:"
	for _, f := range fields {
		msg += "\n  " + validation.Message(f, v[f])
	}
	return errors.New(msg)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
