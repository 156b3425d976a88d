package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
	"github.com/sadopc/pomolist/internal/validate"
)

func (a *app) addCmd() *cobra.Command {
	var date, cats string
	var units int

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task; it is ranked after the tasks dated on or before its date",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := validate.Date(date, a.now(), time.Local)
			if err != nil {
				return err
			}
			d, err := validate.Draft(taskstore.Draft{
				Date:          day,
				Title:         strings.Join(args, " "),
				Categories:    validate.Categories(cats),
				DurationUnits: units,
			})
			if err != nil {
				return err
			}

			t, err := a.svc.CreateTask(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s (%s)\n", t.Rank(), t.Title, shortID(t.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "day the task is planned for (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVarP(&cats, "cat", "c", "", "comma-separated categories")
	cmd.Flags().IntVarP(&units, "units", "u", 1, "planned pomodoros")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var done bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks by rank, or completed ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.svc.ListActive(cmd.Context(), done)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(l.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}
			if done {
				a.printDone(out, l.Tasks)
			} else {
				a.printActive(out, l.Tasks)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&done, "done", false, "show completed tasks")
	return cmd
}

// printActive walks the ranking and starts a new heading whenever the date
// changes, so a task moved out of its date block stays where it is ranked.
func (a *app) printActive(w io.Writer, tasks []*store.Task) {
	now := a.now()
	var day string
	for _, t := range tasks {
		if d := t.Date.Format("2006-01-02"); d != day {
			day = d
			fmt.Fprintf(w, "%s\n", t.Date.Format("Mon, Jan 02"))
		}
		line := fmt.Sprintf("  %2d. %-40s %s", t.Rank(), t.Title, strings.Repeat("●", t.DurationUnits))
		if len(t.Categories) > 0 {
			line += " [" + strings.Join(t.Categories, ", ") + "]"
		}
		fmt.Fprintf(w, "%s  %s  added %s\n", line, shortID(t.ID), humanize.RelTime(t.CreatedAt, now, "ago", "from now"))
	}
}

func (a *app) printDone(w io.Writer, tasks []*store.Task) {
	var total time.Duration
	for _, t := range tasks {
		total += t.Focused()
		fmt.Fprintf(w, "  %s  %-40s %8s  %s\n",
			t.Date.Format("2006-01-02"), t.Title, t.Focused().Round(time.Second), shortID(t.ID))
	}
	fmt.Fprintf(w, "%s done, %s focused\n", humanize.Comma(int64(len(tasks))), total.Round(time.Second))
}

func (a *app) editCmd() *cobra.Command {
	var title, date, cats string
	var units int

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's fields; its rank is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}

			var p taskstore.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("date") {
				day, err := validate.Date(date, a.now(), time.Local)
				if err != nil {
					return err
				}
				p.Date = &day
			}
			if flags.Changed("cat") {
				c := validate.Categories(cats)
				p.Categories = &c
			}
			if flags.Changed("units") {
				p.DurationUnits = &units
			}
			if p == (taskstore.Patch{}) {
				return fmt.Errorf("nothing to change; pass --title, --date, --cat or --units")
			}
			if p, err = validate.Patch(p); err != nil {
				return err
			}

			updated, err := a.svc.UpdateTask(ctx, t.ID, p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s (%s)\n", updated.Title, shortID(updated.ID))
			if updated.Active() && !updated.Date.Equal(t.Date) {
				fmt.Fprintf(out, "Date changed; still ranked #%d. Use move to re-rank it.\n", updated.Rank())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date")
	cmd.Flags().StringVarP(&cats, "cat", "c", "", "new comma-separated categories")
	cmd.Flags().IntVarP(&units, "units", "u", 1, "new planned pomodoros")
	return cmd
}

func (a *app) doneCmd() *cobra.Command {
	var focused time.Duration

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task and record its focus time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("focused") {
				focused = time.Duration(t.DurationUnits) * a.cfg.Pomodoro.Unit()
			}

			done, err := a.svc.CompleteTask(ctx, t.ID, focused)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s (%s focused)\n", done.Title, done.Focused().Round(time.Second))
			return nil
		},
	}

	cmd.Flags().DurationVarP(&focused, "focused", "f", 0, "focus time spent (default planned pomodoros)")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteTask(ctx, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", t.Title)
			return nil
		},
	}
}

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move the task ranked <from> to rank <to>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[0])
			if err != nil {
				return &taskstore.ValidationError{Field: "order", Reason: fmt.Sprintf("%q is not a number", args[0])}
			}
			to, err := strconv.Atoi(args[1])
			if err != nil {
				return &taskstore.ValidationError{Field: "order", Reason: fmt.Sprintf("%q is not a number", args[1])}
			}
			if err := a.svc.ReorderTask(cmd.Context(), from, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved #%d to #%d\n", from, to)
			return nil
		},
	}
}
