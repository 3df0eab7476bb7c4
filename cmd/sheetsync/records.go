package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"sheetsync/internal/app"
	"sheetsync/internal/present"
	"sheetsync/internal/record"

	"github.com/spf13/cobra"
)

// fieldsFromFlags collects --set assignments and an optional --photo file.
func fieldsFromFlags(cmd *cobra.Command, kind record.Kind) (record.Fields, error) {
	sets, _ := cmd.Flags().GetStringArray("set")
	photo, _ := cmd.Flags().GetString("photo")

	f, err := app.ParseAssignments(kind, sets)
	if err != nil {
		return nil, err
	}
	if photo != "" {
		uri, err := photoField(photo)
		if err != nil {
			return nil, err
		}
		f["photoUrl"] = uri
	}
	return f, nil
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		sortField, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("desc")

		a, err := newApp(cmd, "List", args)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.List(cmd.Context(), app.ListOptions{Search: search, Sort: sortField, Desc: desc})
		if err != nil {
			return err
		}
		sel, err := a.Selection()
		if err != nil {
			return err
		}
		return present.RenderTable(os.Stdout, a.Kind(), c, present.TableOptions{
			Selection: sel,
			InFlight:  a.Store().InFlight(),
		})
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show every field of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Show", args)
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return present.RenderDetails(os.Stdout, a.Kind(), r)
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Add", args)
		if err != nil {
			return err
		}
		defer a.Close()

		fields, err := fieldsFromFlags(cmd, a.Kind())
		if err != nil {
			return err
		}
		r, err := a.Add(cmd.Context(), fields)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s %s (%s)\n", a.Kind().Noun, r.ID, a.Kind().Title(r))
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change fields of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Edit", args)
		if err != nil {
			return err
		}
		defer a.Close()

		patch, err := fieldsFromFlags(cmd, a.Kind())
		if err != nil {
			return err
		}
		r, err := a.Edit(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s %s (%s)\n", a.Kind().Noun, r.ID, a.Kind().Title(r))
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp(cmd, "Delete", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if !yes {
			r, err := a.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !confirm(fmt.Sprintf("Delete %s %s (%s)?", a.Kind().Noun, r.ID, a.Kind().Title(r))) {
				fmt.Println("Cancelled.")
				return nil
			}
		}
		if err := a.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s %s\n", a.Kind().Noun, record.CanonicalID(args[0]))
		return nil
	},
}

// select command
var selectCmd = &cobra.Command{
	Use:   "select [ID...]",
	Short: "Add records to the bulk selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		toggle, _ := cmd.Flags().GetBool("toggle")
		search, _ := cmd.Flags().GetString("search")
		if all == (len(args) > 0) {
			return errors.New("give either record ids or --all")
		}
		if all && toggle {
			return errors.New("--toggle takes record ids, not --all")
		}

		a, err := newApp(cmd, "Select", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var sel *present.Selection
		switch {
		case all:
			sel, err = a.SelectAll(cmd.Context(), search)
		case toggle:
			sel, err = a.Toggle(cmd.Context(), args)
		default:
			sel, err = a.Select(cmd.Context(), args)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d %s selected\n", sel.Len(), a.Kind().Name)
		return nil
	},
}

// deselect command
var deselectCmd = &cobra.Command{
	Use:   "deselect [ID...]",
	Short: "Remove records from the bulk selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		search, _ := cmd.Flags().GetString("search")
		if all == (len(args) > 0) {
			return errors.New("give either record ids or --all")
		}

		a, err := newApp(cmd, "Deselect", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var sel *present.Selection
		if all {
			sel, err = a.DeselectAll(cmd.Context(), search)
		} else {
			sel, err = a.Deselect(args)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d %s selected\n", sel.Len(), a.Kind().Name)
		return nil
	},
}

var selectedCmd = &cobra.Command{
	Use:   "selected",
	Short: "List the selected records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Selected", args)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Selected(cmd.Context())
		if err != nil {
			return err
		}
		return present.RenderTable(os.Stdout, a.Kind(), c, present.TableOptions{})
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Stats", args)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Total:      %d\n", st.Total)
		if a.Kind().DateField != "" {
			fmt.Printf("Scheduled:  %d\n", st.Scheduled)
			fmt.Printf("Upcoming:   %d\n", st.Upcoming)
			fmt.Printf("Unassigned: %d\n", st.Unassigned)
		}
		if len(st.TopDays) > 0 {
			fmt.Println("\nBusiest days:")
			for _, d := range st.TopDays {
				fmt.Printf("  %s  %3d  %3d%%\n", d.Day.Format("Mon 2006-01-02"), d.Count, d.Percent)
			}
		}
		if len(st.Recent) > 0 {
			fmt.Println("\nMost recent:")
			for _, r := range st.Recent {
				fmt.Printf("  %-10s %s\n", r.ID, a.Kind().Title(r))
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View journaled mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History", args)
		if err != nil {
			return err
		}
		defer a.Close()

		ms, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ms) == 0 {
			fmt.Println("No mutations recorded.")
			return nil
		}

		for _, m := range ms {
			duration := ""
			if m.FinishedAt != nil {
				duration = m.FinishedAt.Sub(m.StartedAt).Truncate(time.Millisecond).String()
			}
			id := m.RecordID
			if id == "" {
				id = m.TempID
			}
			fmt.Printf("#%d  %-8s  %-6s  %-12s  %s  %-11s  %s  %s\n",
				m.ID,
				m.Kind,
				m.Op,
				id,
				m.StartedAt.In(a.Location()).Format("2006-01-02 15:04:05"),
				m.Status,
				duration,
				m.Error,
			)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("search", "s", "", "Only show records matching this text")
	listCmd.Flags().String("sort", "", "Sort by field, id or createdAt")
	listCmd.Flags().Bool("desc", false, "Sort descending")

	addCmd.Flags().StringArray("set", nil, "Field assignment field=value (repeatable)")
	addCmd.Flags().String("photo", "", "Image file to upload as the photo")
	editCmd.Flags().StringArray("set", nil, "Field assignment field=value (repeatable)")
	editCmd.Flags().String("photo", "", "Image file to replace the photo with")
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	selectCmd.Flags().Bool("all", false, "Select every record matching --search")
	selectCmd.Flags().StringP("search", "s", "", "Restrict --all to matching records")
	selectCmd.Flags().BoolP("toggle", "t", false, "Flip the selection state of each given record")
	deselectCmd.Flags().Bool("all", false, "Deselect every record matching --search")
	deselectCmd.Flags().StringP("search", "s", "", "Restrict --all to matching records")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of mutations to show")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(deselectCmd)
	rootCmd.AddCommand(selectedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
}
