package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/mq"
	"github.com/jonathan/scene-narrator/internal/pipeline"
	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
)

func newFlagCommand(t *testing.T) *cobra.Command {
	t.Helper()
	saved := rootOpts
	t.Cleanup(func() { rootOpts = saved })

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&rootOpts.configPath, "config", "", "")
	cmd.Flags().StringVar(&rootOpts.databaseURL, "db-url", "", "")
	cmd.Flags().StringVar(&rootOpts.baseDir, "base-dir", "", "")
	cmd.Flags().StringVar(&rootOpts.timezone, "timezone", "", "")
	return cmd
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/narrator")
	t.Setenv("BASE_DIR", "/env")
	cmd := newFlagCommand(t)
	require.NoError(t, cmd.Flags().Set("db-url", "postgres://flag/narrator"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/narrator", cfg.DatabaseURL)
	assert.Equal(t, "/env", cfg.BaseDir)
}

func TestLoadConfig_InvalidTimezoneFlag(t *testing.T) {
	cmd := newFlagCommand(t)
	require.NoError(t, cmd.Flags().Set("timezone", "Nowhere/Special"))

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestParseJobID(t *testing.T) {
	id := uuid.New()
	got, err := parseJobID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseJobID("job-1")
	assert.Error(t, err)
}

func TestWriteStatus(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := &db.StatusDocument{}
	doc.Apply(db.NewStatusUpdate().
		SetFlag(steps.CompletedKey(steps.StepPreprocess), true).
		SetTimestamp(steps.StartTimeKey(steps.StepPreprocess), start).
		SetTimestamp(steps.EndTimeKey(steps.StepPreprocess), start.Add(2*time.Second)).
		SetExecutionTime(steps.StepPreprocess, 2))
	report := steps.BuildReport(uuid.New(), doc, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "pending (1/7 steps completed)")
	assert.Contains(t, out, "2024-05-01T10:00:00Z")
	assert.Contains(t, out, "2.00")
	assert.Contains(t, out, "Runnable: fetch-transcription")
	assert.Contains(t, out, "╭")

	// header plus one row per step
	rowLines := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "│") {
			rowLines++
		}
	}
	assert.Equal(t, 1+7, rowLines)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Step", "Seconds"}, [][]string{{"preprocess", "2.00"}, {"make-scenes"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "preprocess")
	assert.Contains(t, out, "make-scenes")
	assert.Contains(t, out, "SECONDS")
	assert.Equal(t, 6, len(strings.Split(out, "\n")))

	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestWriteErrors(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []db.PipelineError{
		{StepName: steps.StepMakeScenes, ErrorLogs: "invalid scene list\nstack line 1", ErrorTimestamp: at},
		{StepName: steps.StepExtractClips, ErrorLogs: "ffmpeg exited", ErrorTimestamp: at},
	}

	var buf bytes.Buffer
	writeErrors(&buf, entries, steps.StepMakeScenes, false, time.UTC)
	assert.Contains(t, buf.String(), "invalid scene list")
	assert.NotContains(t, buf.String(), "stack line 1")
	assert.NotContains(t, buf.String(), "ffmpeg")

	buf.Reset()
	writeErrors(&buf, entries, "", true, time.UTC)
	assert.Contains(t, buf.String(), "stack line 1")
	assert.Contains(t, buf.String(), "ffmpeg exited")

	buf.Reset()
	writeErrors(&buf, nil, "", false, time.UTC)
	assert.Equal(t, "No errors recorded\n", buf.String())
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	printer := progressPrinter(&buf, true)
	printer(pipeline.ProgressEvent{
		Step:     steps.StepExtractClips,
		Category: steps.CategoryMedia,
		Message:  "extracted 2 clips",
		Content:  []string{"a.mp4", "b.mp4"},
	})

	assert.Contains(t, buf.String(), "[media] extract-clips: extracted 2 clips")
	assert.Contains(t, buf.String(), "EXTRACT-CLIPS")
	assert.Contains(t, buf.String(), "• a.mp4")
}

func TestJobHandler_RejectsForeignMessages(t *testing.T) {
	handler := jobHandler(nil)

	err := handler(context.Background(), &mq.Delivery{Message: mq.Message{ID: "m1", Type: "video.deleted"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected message type")

	err = handler(context.Background(), &mq.Delivery{Message: mq.Message{ID: "m2", Type: mq.MessageTypeVideoSubmitted}})
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"process", "status", "errors", "submit", "worker", "serve", "migrate", "token", "register"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
