package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomolist/internal/export"
	"github.com/sadopc/pomolist/internal/validate"
)

func (a *app) sweepCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the rollover and retention sweeps now",
		Long: `Drop unfinished tasks dated before the current day and delete tasks older
than the retention window. The day starts at sweep.rollover_hour; --at runs the
sweeps as of the start of another day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			if cmd.Flags().Changed("at") {
				day, err := validate.Date(at, now, time.Local)
				if err != nil {
					return err
				}
				now = day.Add(time.Duration(a.cfg.Sweep.RolloverHour) * time.Hour)
			}

			res, err := a.sched.RunAll(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Day %s: dropped %d unfinished, deleted %d stale\n",
				res.BusinessDay.Format("2006-01-02"), res.Unfinished, res.Stale)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "run as of this day (YYYY-MM-DD)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks to a CSV or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = fmt.Sprintf("pomolist-export-%s.%s", a.now().Format("2006-01-02"), format)
			}
			tasks, err := a.everything(cmd.Context())
			if err != nil {
				return err
			}

			switch format {
			case "csv":
				err = export.ToCSV(tasks, out)
			case "json":
				err = export.ToJSON(tasks, out)
			default:
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(tasks), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default pomolist-export-<date>.<format>)")
	return cmd
}

func (a *app) repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Renumber active tasks 1..N if the ranking has gaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.Repair(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Ranking is already dense.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renumbered %d tasks.\n", n)
			return nil
		},
	}
}
