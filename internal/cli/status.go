package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/dispatch/internal/core/config"
	"github.com/vietddude/dispatch/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the error-tracking status of a running pipeline",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("http://localhost:%d/health/detailed", cfg.Server.Port)
	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to query pipeline", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode health report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("status: %s\ntracked error records: %d\n\n", report.Status, report.TrackedRecords)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "QUEUE\tDEPTH")
	for name, depth := range report.QueueDepths {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, depth)
	}
	_ = w.Flush()

	if len(report.TrackedIDs) > 0 {
		fmt.Println("\ntracked message ids:")
		for _, id := range report.TrackedIDs {
			fmt.Printf("  %s\n", id)
		}
	}
}
