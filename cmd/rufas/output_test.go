package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rufas/internal/rufas"
)

func TestNames(t *testing.T) {
	byID := tagNames([]rufas.Tag{{ID: "t_1", Name: "doc"}, {ID: "t_2", Name: "core"}})
	got := names([]string{"t_2", "t_gone", "t_1"}, byID)
	if strings.Join(got, ",") != "core,t_gone,doc" {
		t.Errorf("names() = %v", got)
	}
	if !containsFold(got, "DOC") || containsFold(got, "issue") {
		t.Error("containsFold() mismatch")
	}
}

func TestPrintStructured(t *testing.T) {
	views := []tagView{{ID: "t_1", Name: "doc", Color: "#3B82F6", Files: 2}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)
		if err := printStructured(cmd, views); err != nil {
			t.Fatalf("printStructured() error = %v", err)
		}
		if !strings.Contains(buf.String(), `"name": "doc"`) || !strings.Contains(buf.String(), `"files": 2`) {
			t.Errorf("json output = %s", buf.String())
		}
	})

	t.Run("toon", func(t *testing.T) {
		outputTOON = true
		defer func() { outputTOON = false }()

		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)
		if err := printStructured(cmd, views); err != nil {
			t.Fatalf("printStructured() error = %v", err)
		}
		if !strings.Contains(buf.String(), "doc") || strings.Contains(buf.String(), `"name":`) {
			t.Errorf("toon output = %s", buf.String())
		}
	})
}

func TestNewBundleView(t *testing.T) {
	s := rufas.BundleStatus{
		Bundle: rufas.Bundle{
			ID:         "b_1",
			Name:       "API",
			FileIDs:    []string{"a.ts"},
			CreatedAt:  1,
			LastExport: &rufas.ExportSnapshot{Timestamp: 2, FileIDs: []string{"a.ts"}},
		},
		Freshness: rufas.Stale,
		Changes:   rufas.Changes{Modified: []string{"a.ts"}},
	}
	v := newBundleView(s)
	if v.Status != "stale" || v.LastExport == "" || len(v.Modified) != 1 {
		t.Errorf("newBundleView() = %+v", v)
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	tw := newTable(cmd, table.Row{"ID", "Name"})
	tw.AppendRow(table.Row{v.ID, v.Name})
	tw.Render()
	if !strings.Contains(buf.String(), "b_1") || !strings.Contains(buf.String(), "API") {
		t.Errorf("table = %s", buf.String())
	}
}
