package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/domain"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show this month's progression at a glance",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	snap, err := d.Engine.Snapshot(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Month: %s\n", snap.Month)
	if snap.Lifecycle != nil {
		fmt.Printf("Phase: %s\n", snap.Lifecycle.Phase)
	}

	if snap.Challenge != nil {
		ch := snap.Challenge
		fmt.Printf("\nChallenge: %s (%s, %s)\n", ch.Title, ch.Category, stars(ch.StarLevel))
		fmt.Printf("Progress:  %.0f%% — %s\n", ch.Progress, ch.Status)
		for _, req := range ch.Requirements {
			fmt.Printf("  %-7s %d / %d (%s)\n", req.Type, req.Current, req.Target, req.TrackingKey)
		}
	} else {
		fmt.Println("\nNo challenge yet. Run 'habitloop challenge generate'.")
	}

	fmt.Printf("\nStreak: %d day(s)", snap.Streak.CurrentStreak)
	if snap.Streak.IsFrozen {
		fmt.Print(" (frozen)")
	}
	fmt.Printf("  longest: %d\n", snap.Streak.LongestStreak)
	if snap.Debt.MissedDays > 0 {
		fmt.Printf("Debt:   %d missed day(s), %d recovery action(s) owed\n",
			snap.Debt.MissedDays, snap.Debt.RecoveryActions)
	}

	fmt.Printf("\nRatings (overall %.1f, %s):\n", snap.Report.Overall, snap.Report.Trend)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range domain.CoreCategories() {
		fmt.Fprintf(w, "  %s\t%s\n", c, stars(snap.Report.Ratings[c]))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nLifetime XP: %d\n", snap.Report.LifetimeXP)
	return nil
}

// stars renders a 1-5 rating as filled and empty stars.
func stars(n int) string {
	s := ""
	for i := 1; i <= domain.MaxRating; i++ {
		if i <= n {
			s += "★"
		} else {
			s += "☆"
		}
	}
	return s
}
