package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"rufas/internal/app"
	"rufas/internal/rufas"
)

// DefaultTagColor is used when `tag create` gets no --color.
const DefaultTagColor = "#3B82F6"

type tagView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Files       int    `json:"files"`
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		color, _ := cmd.Flags().GetString("color")

		a, err := newApp(cmd.Context(), "CreateTag", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.CreateTag(cmd.Context(), rufas.TagInput{Name: args[0], Description: description, Color: color})
		if err != nil {
			return fmt.Errorf("creating tag: %w", err)
		}
		fmt.Printf("Created tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	},
}

var tagEditCmd = &cobra.Command{
	Use:   "edit TAG",
	Short: "Change a tag's name, description or color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var edit app.TagEdit
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			edit.Name = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			edit.Description = &v
		}
		if cmd.Flags().Changed("color") {
			v, _ := cmd.Flags().GetString("color")
			edit.Color = &v
		}

		a, err := newApp(cmd.Context(), "EditTag", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.EditTag(cmd.Context(), args[0], edit)
		if err != nil {
			return fmt.Errorf("editing tag: %w", err)
		}
		fmt.Printf("Updated tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	},
}

var tagAssignCmd = &cobra.Command{
	Use:   "assign TAG PATH...",
	Short: "Tag one or more files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "AssignTag", strings.Join(args, " "), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.AssignTag(cmd.Context(), args[0], args[1:]); err != nil {
			return fmt.Errorf("assigning tag: %w", err)
		}
		fmt.Printf("Tagged %d file(s) with %s\n", len(args)-1, args[0])
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove TAG PATH",
	Short: "Remove a tag from a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "RemoveTag", strings.Join(args, " "), false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveTag(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("removing tag: %w", err)
		}
		fmt.Printf("Removed %s from %s\n", args[0], args[1])
		return nil
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete TAG",
	Short: "Delete a tag and remove it from every file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteTag", args[0], false)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.DeleteTag(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("deleting tag: %w", err)
		}
		fmt.Printf("Deleted tag %s (%d file(s) untagged)\n", tag.Name, len(tag.FileIDs))
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListTags", "", false)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		views := make([]tagView, 0, len(snap.Tags))
		for _, t := range snap.Tags {
			views = append(views, tagView{
				ID:          t.ID,
				Name:        t.Name,
				Description: t.Description,
				Color:       t.Color,
				Files:       len(t.FileIDs),
			})
		}

		if outputJSON || outputTOON {
			return printStructured(cmd, views)
		}
		if len(views) == 0 {
			fmt.Println("No tags.")
			return nil
		}

		t := newTable(cmd, table.Row{"ID", "Name", "Color", "Files", "Description"})
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Description", WidthMax: 50}})
		for _, v := range views {
			t.AppendRow(table.Row{v.ID, v.Name, v.Color, v.Files, v.Description})
		}
		t.Render()
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagCreateCmd)
	tagCreateCmd.Flags().StringP("description", "d", "", "Tag description")
	tagCreateCmd.Flags().StringP("color", "c", DefaultTagColor, "Tag color as #RRGGBB")

	tagCmd.AddCommand(tagEditCmd)
	tagEditCmd.Flags().StringP("name", "n", "", "New name")
	tagEditCmd.Flags().StringP("description", "d", "", "New description")
	tagEditCmd.Flags().StringP("color", "c", "", "New color as #RRGGBB")

	tagCmd.AddCommand(tagAssignCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagListCmd)
}
