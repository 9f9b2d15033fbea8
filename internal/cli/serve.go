package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "Enable the /metrics endpoint")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost    string
	servePort    int
	serveMetrics bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HabitLoop API server",
	Long:  `Start the local REST API server at localhost:7419.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		d.Config.API.Host = serveHost
	}
	if servePort > 0 {
		d.Config.API.Port = servePort
	}
	if serveMetrics {
		d.Server.EnableMetrics()
	}

	return d.Serve(context.Background())
}
