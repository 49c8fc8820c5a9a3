package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the per-step state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	videoID, err := parseJobID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	doc, err := database.FetchStatus(ctx, videoID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("no status recorded for job %s", videoID)
	}

	report := steps.BuildReport(videoID, doc, loc)
	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeStatus(cmd.OutOrStdout(), report)
}

// writeStatus renders report as a table
func writeStatus(w io.Writer, report steps.JobReport) error {
	_, _ = fmt.Fprintf(w, "Job %s: %s (%d/%d steps completed)\n\n",
		report.VideoID, report.Status, report.Summary.Completed, report.Summary.Total)

	rows := make([][]string, 0, len(report.Steps))
	for _, s := range report.Steps {
		rows = append(rows, []string{
			s.Step,
			s.State,
			formatTime(s.StartTime),
			formatTime(s.EndTime),
			formatTime(s.ErrorTime),
			formatSeconds(s.ExecutionSeconds),
		})
	}
	table := renderTable(
		[]string{"Step", "State", "Started", "Ended", "Failed", "Seconds"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}

	if len(report.Available) > 0 {
		_, _ = fmt.Fprintf(w, "\nRunnable: %s\n", strings.Join(report.Available, ", "))
	}
	return nil
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.Format(time.RFC3339)
}

func formatSeconds(secs *float64) string {
	if secs == nil {
		return "-"
	}
	return strconv.FormatFloat(*secs, 'f', 2, 64)
}
