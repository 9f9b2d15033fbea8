package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	xpCmd.Flags().IntVar(&xpLimit, "limit", 10, "Ledger entries to show")
	rootCmd.AddCommand(xpCmd)
}

var xpLimit int

var xpCmd = &cobra.Command{
	Use:   "xp",
	Short: "Show the XP balance and recent ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer d.Close()

		balance, err := d.Engine.Rewards.Lifetime()
		if err != nil {
			return err
		}
		fmt.Printf("Lifetime XP: %d\n", balance)

		entries, err := d.Engine.Rewards.History(xpLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tAMOUNT\tBALANCE\tDESCRIPTION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t+%d\t%d\t%s\n",
				e.Timestamp.Format("2006-01-02 15:04"), e.Amount, e.Balance, e.Description)
		}
		return w.Flush()
	},
}
