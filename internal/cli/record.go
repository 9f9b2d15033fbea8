package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/domain"
)

func init() {
	recordCmd.Flags().StringVar(&recordDay, "day", "", "Day to record (YYYY-MM-DD, default today)")
	recordCmd.Flags().IntVar(&recordHabits, "habits", 0, "Habit completions")
	recordCmd.Flags().IntVar(&recordUnique, "unique-habits", 0, "Distinct habits touched")
	recordCmd.Flags().IntVar(&recordEntries, "journal", 0, "Journal entries written")
	recordCmd.Flags().IntVar(&recordChars, "journal-chars", 0, "Journal characters written")
	recordCmd.Flags().IntVar(&recordGoalEvents, "goal-events", 0, "Goal progress events")
	recordCmd.Flags().IntVar(&recordGoalsDone, "goals-done", 0, "Goals completed")
	rootCmd.AddCommand(recordCmd)
}

var (
	recordDay        string
	recordHabits     int
	recordUnique     int
	recordEntries    int
	recordChars      int
	recordGoalEvents int
	recordGoalsDone  int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a day's activity counts",
	Long: `Record one day of upstream activity. Re-recording a day replaces its
counts; challenge progress and the streak are refreshed immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		day := recordDay
		if day == "" {
			day = time.Now().Format(domain.DayFormat)
		}

		rec := domain.DailyActivityRecord{
			Day:                day,
			HabitCompletions:   recordHabits,
			UniqueHabits:       recordUnique,
			JournalEntries:     recordEntries,
			JournalChars:       recordChars,
			GoalProgressEvents: recordGoalEvents,
			GoalsCompleted:     recordGoalsDone,
		}
		if err := d.Engine.RecordActivity(context.Background(), rec); err != nil {
			return err
		}
		fmt.Printf("Recorded %s.\n", day)
		return nil
	},
}
