package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	streakCmd.AddCommand(streakPayCmd)
	rootCmd.AddCommand(streakCmd)
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the consistency streak and outstanding debt",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := context.Background()
		st, err := d.Engine.Streaks.Refresh(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Current streak: %d day(s)\n", st.CurrentStreak)
		fmt.Printf("Longest streak: %d day(s)\n", st.LongestStreak)
		if st.IsFrozen {
			fmt.Printf("Frozen: yes (was %d before the freeze)\n", st.StreakBeforeFreeze)
		}
		if st.StreakStartDate != "" {
			fmt.Printf("Started: %s\n", st.StreakStartDate)
		}
		fmt.Printf("Milestone days: tier1=%d tier2=%d tier3=%d\n",
			st.TierCounts[0], st.TierCounts[1], st.TierCounts[2])

		debt, err := d.Engine.Streaks.Debt()
		if err != nil {
			return err
		}
		if debt.MissedDays == 0 {
			fmt.Println("Debt: none")
		} else {
			fmt.Printf("Debt: %d missed day(s), %d recovery action(s) owed\n",
				debt.MissedDays, debt.RecoveryActions)
			fmt.Println("Pay with 'habitloop streak pay <YYYY-MM-DD>'.")
		}
		return nil
	},
}

var streakPayCmd = &cobra.Command{
	Use:   "pay <day>",
	Short: "Pay warm-up debt for a missed day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		st, err := d.Engine.Streaks.PayWarmUp(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Paid warm-up for %s. Streak is now %d day(s).\n", args[0], st.CurrentStreak)
		return nil
	},
}
