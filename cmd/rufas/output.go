package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rufas/internal/rufas"
)

// printStructured writes v as JSON or TOON, whichever flag is set.
func printStructured(cmd *cobra.Command, v any) error {
	if outputTOON {
		output, err := gotoon.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(cmd *cobra.Command, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

// readPassphrase prompts on stderr and reads a line without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("a terminal is required to read the passphrase")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return rufas.FromMillis(ms).Local().Format("2006-01-02 15:04:05")
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// names maps ids to display names, keeping unknown ids as-is.
func names(ids []string, byID map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		} else {
			out = append(out, id)
		}
	}
	return out
}

func tagNames(tags []rufas.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.ID] = t.Name
	}
	return m
}

func bundleNames(bundles []rufas.Bundle) map[string]string {
	m := make(map[string]string, len(bundles))
	for _, b := range bundles {
		m[b.ID] = b.Name
	}
	return m
}
