package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Inspect exported documents",
}

var exportShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print an exported document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ShowExport", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.Encrypted(args[0]) {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		doc, err := a.OpenExport(cmd.Context(), args[0], passphrase)
		if err != nil {
			return fmt.Errorf("opening export: %w", err)
		}

		if outputJSON || outputTOON {
			return printStructured(cmd, doc)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", doc.Header.Title, doc.Header.BundleID)
		if doc.Header.Description != "" {
			fmt.Fprintln(out, doc.Header.Description)
		}
		fmt.Fprintf(out, "Exported %s\n", formatTime(doc.Header.CreatedAt))
		for _, s := range doc.Sections {
			fmt.Fprintf(out, "\n== %d. %s", s.Index, s.Source)
			if s.Type != "" {
				fmt.Fprintf(out, " [%s]", s.Type)
			}
			if len(s.Tags) > 0 {
				fmt.Fprintf(out, " (%s)", strings.Join(s.Tags, ", "))
			}
			fmt.Fprintln(out)
			if s.Failed() {
				fmt.Fprintf(out, "error: %s\n", s.Error)
				continue
			}
			fmt.Fprintln(out, s.Content)
		}
		return nil
	},
}

func init() {
	exportCmd.AddCommand(exportShowCmd)
}
