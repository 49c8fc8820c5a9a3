// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/pipeline"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintEvent outputs the result carried by a progress event, if it has one worth showing
func (p *Printer) PrintEvent(event pipeline.ProgressEvent) {
	switch content := event.Content.(type) {
	case pipeline.PreprocessResult:
		p.PrintMetadata(content.Metadata, content.AudioFile)
	case []db.Scene:
		p.PrintScenes(content)
	case []string:
		p.PrintFiles(strings.ToUpper(event.Step), content)
	case string:
		p.PrintFiles(strings.ToUpper(event.Step), []string{content})
	}
}

// PrintMetadata outputs the media information of a preprocessed video
func (p *Printer) PrintMetadata(meta db.VideoMetadata, audioFile string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Duration: %.2fs\n", meta.Duration))
	sb.WriteString(fmt.Sprintf("Frames:   %.2f fps\n", meta.FPS))
	sb.WriteString(fmt.Sprintf("Size:     %dx%d\n", meta.Size[0], meta.Size[1]))
	if meta.AudioFPS != nil && meta.AudioNChannels != nil {
		sb.WriteString(fmt.Sprintf("Audio:    %d Hz, %d channels\n", *meta.AudioFPS, *meta.AudioNChannels))
	} else {
		sb.WriteString("Audio:    none\n")
	}
	if audioFile != "" {
		sb.WriteString(fmt.Sprintf("Track:    %s\n", audioFile))
	}
	p.printBox("VIDEO METADATA", sb.String())
}

// PrintScenes outputs a summary of the planned scenes
func (p *Printer) PrintScenes(scenes []db.Scene) {
	var sb strings.Builder
	if len(scenes) == 0 {
		sb.WriteString("No scenes")
	}
	count := min(len(scenes), maxItemsToShow)
	for _, scene := range scenes[:count] {
		sb.WriteString(fmt.Sprintf("%d. %s [%.1fs - %.1fs]\n", scene.Index+1, scene.Title, scene.TimeStart, scene.TimeEnd))
		if scene.PolishedNarration != "" {
			sb.WriteString(fmt.Sprintf("   \"%s\"\n", scene.PolishedNarration))
		}
	}
	if len(scenes) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(scenes)-maxItemsToShow))
	}
	p.printBox(fmt.Sprintf("SCENES (%d)", len(scenes)), sb.String())
}

// PrintFiles outputs a list of produced files
func (p *Printer) PrintFiles(title string, files []string) {
	var sb strings.Builder
	if len(files) == 0 {
		sb.WriteString("No files")
	}
	count := min(len(files), maxItemsToShow)
	for _, f := range files[:count] {
		sb.WriteString(fmt.Sprintf("• %s\n", f))
	}
	if len(files) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(files)-maxItemsToShow))
	}
	p.printBox(title, sb.String())
}
