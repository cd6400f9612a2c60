package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rufas/internal/app"
	"rufas/internal/rufas"
)

type bundleView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Master      bool     `json:"master"`
	Files       []string `json:"files"`
	Status      string   `json:"status"`
	Created     string   `json:"created"`
	LastExport  string   `json:"lastExport"`
	Added       []string `json:"added,omitempty"`
	Removed     []string `json:"removed,omitempty"`
	Modified    []string `json:"modified,omitempty"`
}

func newBundleView(s rufas.BundleStatus) bundleView {
	v := bundleView{
		ID:          s.Bundle.ID,
		Name:        s.Bundle.Name,
		Description: s.Bundle.Description,
		Master:      s.Bundle.IsMaster,
		Files:       s.Bundle.FileIDs,
		Status:      string(s.Freshness),
		Created:     formatMillis(s.Bundle.CreatedAt),
		Added:       s.Changes.Added,
		Removed:     s.Changes.Removed,
		Modified:    s.Changes.Modified,
	}
	if s.Bundle.LastExport != nil {
		v.LastExport = formatMillis(s.Bundle.LastExport.Timestamp)
	}
	return v
}

// bundle command
var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Manage bundles",
}

var bundleCreateCmd = &cobra.Command{
	Use:   "create NAME PATH...",
	Short: "Create a bundle from files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		master, _ := cmd.Flags().GetBool("master")

		a, err := newApp(cmd.Context(), "CreateBundle", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.CreateBundle(cmd.Context(), args[0], description, master, args[1:])
		if err != nil {
			return fmt.Errorf("creating bundle: %w", err)
		}
		fmt.Printf("Created bundle %s (%s) with %d file(s)\n", b.Name, b.ID, len(b.FileIDs))
		return nil
	},
}

var bundleEditCmd = &cobra.Command{
	Use:   "edit BUNDLE",
	Short: "Change a bundle's fields or members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit app.BundleEdit
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			edit.Name = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			edit.Description = &v
		}
		if cmd.Flags().Changed("master") {
			v, _ := cmd.Flags().GetBool("master")
			edit.IsMaster = &v
		}
		edit.Add, _ = cmd.Flags().GetStringSlice("add")
		edit.Remove, _ = cmd.Flags().GetStringSlice("remove")

		a, err := newApp(cmd.Context(), "EditBundle", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.EditBundle(cmd.Context(), args[0], edit)
		if err != nil {
			return fmt.Errorf("editing bundle: %w", err)
		}
		fmt.Printf("Updated bundle %s (%s), %d file(s)\n", b.Name, b.ID, len(b.FileIDs))
		return nil
	},
}

var bundleDeleteCmd = &cobra.Command{
	Use:   "delete BUNDLE",
	Short: "Delete a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteBundle", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.DeleteBundle(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("deleting bundle: %w", err)
		}
		fmt.Printf("Deleted bundle %s\n", b.Name)
		return nil
	},
}

var bundleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundles with their freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListBundles", "", false)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.BundleStatuses(cmd.Context())
		if err != nil {
			return err
		}

		views := make([]bundleView, 0, len(statuses))
		for _, s := range statuses {
			views = append(views, newBundleView(s))
		}

		if outputJSON || outputTOON {
			return printStructured(cmd, views)
		}
		if len(views) == 0 {
			fmt.Println("No bundles.")
			return nil
		}

		t := newTable(cmd, table.Row{"ID", "Name", "Master", "Files", "Status", "Last Export"})
		for _, v := range views {
			master := ""
			if v.Master {
				master = "yes"
			}
			t.AppendRow(table.Row{v.ID, v.Name, master, len(v.Files), v.Status, v.LastExport})
		}
		t.Render()
		return nil
	},
}

var bundleStatusCmd = &cobra.Command{
	Use:   "status [BUNDLE]",
	Short: "Show what changed since each bundle's last export",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "BundleStatus", strings.Join(args, " "), false)
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.BundleStatuses(cmd.Context())
		if err != nil {
			return err
		}

		var views []bundleView
		for _, s := range statuses {
			if len(args) == 1 && s.Bundle.ID != args[0] && !strings.EqualFold(s.Bundle.Name, args[0]) {
				continue
			}
			views = append(views, newBundleView(s))
		}
		if len(args) == 1 && len(views) == 0 {
			return &rufas.NotFoundError{Kind: "bundle", ID: args[0]}
		}

		if outputJSON || outputTOON {
			return printStructured(cmd, views)
		}

		for _, v := range views {
			fmt.Printf("%s (%s): %s\n", v.Name, v.ID, v.Status)
			for _, p := range v.Added {
				fmt.Printf("  A %s\n", p)
			}
			for _, p := range v.Removed {
				fmt.Printf("  D %s\n", p)
			}
			for _, p := range v.Modified {
				fmt.Printf("  M %s\n", p)
			}
		}
		return nil
	},
}

var bundleExportCmd = &cobra.Command{
	Use:   "export BUNDLE",
	Short: "Export a bundle as a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ExportBundle", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ExportBundle(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("exporting bundle: %w", err)
		}

		for _, p := range res.Failed {
			fmt.Printf("warning: could not read %s\n", p)
		}
		fmt.Printf("Exported %d file(s) to %s\n", len(res.Document.Sections)-len(res.Failed), res.Location)
		return nil
	},
}

func init() {
	bundleCmd.AddCommand(bundleCreateCmd)
	bundleCreateCmd.Flags().StringP("description", "d", "", "Bundle description")
	bundleCreateCmd.Flags().Bool("master", false, "Mark as a master bundle (never stale)")

	bundleCmd.AddCommand(bundleEditCmd)
	bundleEditCmd.Flags().StringP("name", "n", "", "New name")
	bundleEditCmd.Flags().StringP("description", "d", "", "New description")
	bundleEditCmd.Flags().Bool("master", false, "Set or clear the master flag")
	bundleEditCmd.Flags().StringSlice("add", nil, "Files to add")
	bundleEditCmd.Flags().StringSlice("remove", nil, "Files to remove")

	bundleCmd.AddCommand(bundleDeleteCmd)
	bundleCmd.AddCommand(bundleListCmd)
	bundleCmd.AddCommand(bundleStatusCmd)
	bundleCmd.AddCommand(bundleExportCmd)
}
