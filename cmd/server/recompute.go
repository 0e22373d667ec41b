package main

import (
	"errors"
	"fmt"
	"time"

	"time-tracking-api/internal/database"
	"time-tracking-api/internal/models"
	"time-tracking-api/internal/summary"

	"github.com/spf13/cobra"
)

var (
	recomputeUser string
	recomputeDate string
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild one user's daily summary from stored time logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recomputeUser == "" {
			return errors.New("--user is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.InitDB(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
			return err
		}

		s, err := summary.NewService(database.GetDB(), nil).Recompute(cmd.Context(), recomputeUser, recomputeDate)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d tasks, %s tracked (completed %d, in progress %d, pending %d)\n",
			s.UserID, s.Date, len(s.Tasks), time.Duration(s.TotalTimeSpent)*time.Millisecond,
			s.CompletedTasks, s.InProgressTasks, s.PendingTasks)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeUser, "user", "", "User ID")
	recomputeCmd.Flags().StringVar(&recomputeDate, "date", models.DayKey(time.Now()), "Day to rebuild (YYYY-MM-DD)")
}
