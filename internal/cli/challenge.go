package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/domain"
)

func init() {
	challengeCmd.AddCommand(challengeGenerateCmd)
	challengeCmd.AddCommand(challengeShowCmd)
	challengeCmd.AddCommand(challengeCloseCmd)
	challengeCmd.AddCommand(challengePreviewCmd)
	rootCmd.AddCommand(challengeCmd)
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Manage the monthly challenge",
}

var challengeGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate this month's challenge (no-op if it already exists)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		month := time.Now().Format(domain.MonthFormat)
		res, err := d.Engine.StartMonth(context.Background(), month)
		if err != nil {
			return err
		}

		printChallenge(res.Challenge)
		for _, warn := range res.Warnings {
			fmt.Printf("  note: %s\n", warn)
		}
		if res.Elapsed > 0 {
			fmt.Printf("  generated in %s\n", res.Elapsed.Round(time.Millisecond))
		}
		return nil
	},
}

var challengeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show this month's challenge and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		month := time.Now().Format(domain.MonthFormat)
		ch, _, err := d.Engine.Tracker.Sync(context.Background(), month)
		if err != nil {
			return err
		}
		if ch == nil {
			fmt.Printf("No challenge for %s. Run 'habitloop challenge generate'.\n", month)
			return nil
		}
		printChallenge(ch)
		return nil
	},
}

var challengeCloseCmd = &cobra.Command{
	Use:   "close [month]",
	Short: "Finalize a month's challenge and apply rating/XP outcomes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		month := time.Now().Format(domain.MonthFormat)
		if len(args) == 1 {
			month = args[0]
		}
		if _, err := time.Parse(domain.MonthFormat, month); err != nil {
			return fmt.Errorf("invalid month %q (want YYYY-MM)", month)
		}

		ch, err := d.Engine.CloseMonth(context.Background(), month)
		if err != nil {
			return err
		}
		fmt.Printf("Closed %s: %s — %s at %.0f%%\n", month, ch.Title, ch.Status, ch.Progress)
		return nil
	},
}

var challengePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate a preview of next month's challenge",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		month := time.Now().Format(domain.MonthFormat)
		res, err := d.Engine.PreviewNext(context.Background(), month)
		if err != nil {
			return err
		}
		fmt.Println("Next month's preview:")
		printChallenge(res.Challenge)
		return nil
	},
}

func printChallenge(ch *domain.MonthlyChallenge) {
	if ch == nil {
		return
	}
	fmt.Printf("%s — %s (%s, %s)\n", ch.Month, ch.Title, ch.Category, stars(ch.StarLevel))
	fmt.Printf("  status: %s  progress: %.0f%%  reward: %d XP  target via %s\n",
		ch.Status, ch.Progress, ch.XPReward, ch.TargetMethod)
	for _, req := range ch.Requirements {
		fmt.Printf("  %-7s %d / %d (%s)\n", req.Type, req.Current, req.Target, req.TrackingKey)
	}
}
