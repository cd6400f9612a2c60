package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rufas/internal/rufas"
)

type fileView struct {
	Path     string   `json:"path"`
	Tags     []string `json:"tags"`
	Bundles  []string `json:"bundles"`
	Modified string   `json:"modified"`
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the folder and show its tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Scan", "", false)
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.Workspace().Entries()
		if outputJSON || outputTOON {
			return printStructured(cmd, entries)
		}

		printTree(cmd, entries, "")
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d file(s) in %s\n", len(rufas.FlattenEntries(entries)), a.Root())
		return nil
	},
}

func printTree(cmd *cobra.Command, entries []rufas.Entry, indent string) {
	for _, e := range entries {
		if e.Type == rufas.EntryDirectory {
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s/\n", indent, e.Name)
			printTree(cmd, e.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", indent, e.Name)
	}
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the registry in sync until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "Watch", "", true)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", a.Root())
		if err := a.Watch(ctx); err != nil {
			return fmt.Errorf("watch stopped: %w", err)
		}
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List registered files with their tags and bundles",
	RunE: func(cmd *cobra.Command, args []string) error {
		tagFilter, _ := cmd.Flags().GetString("tag")

		a, err := newApp(cmd.Context(), "ListFiles", tagFilter, false)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		return listFiles(cmd, snap, tagFilter)
	},
}

func listFiles(cmd *cobra.Command, snap *rufas.Snapshot, tagFilter string) error {
	tags := tagNames(snap.Tags)
	bundles := bundleNames(snap.Bundles)

	views := make([]fileView, 0, len(snap.Files))
	for _, f := range snap.Files {
		fileTags := names(f.TagIDs, tags)
		if tagFilter != "" && !containsFold(fileTags, tagFilter) {
			continue
		}
		views = append(views, fileView{
			Path:     f.Path,
			Tags:     fileTags,
			Bundles:  names(f.BundleIDs, bundles),
			Modified: formatMillis(f.LastModified),
		})
	}

	if outputJSON || outputTOON {
		return printStructured(cmd, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files found.")
		return nil
	}

	t := newTable(cmd, table.Row{"Path", "Tags", "Bundles", "Modified"})
	for _, v := range views {
		t.AppendRow(table.Row{v.Path, strings.Join(v.Tags, ", "), strings.Join(v.Bundles, ", "), v.Modified})
	}
	t.Render()
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func init() {
	filesCmd.Flags().StringP("tag", "t", "", "Only show files with this tag name")
}
