package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/treesync/pkg/diff"
	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/models"
	"github.com/sdejongh/treesync/pkg/ratelimit"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct{}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Listing prints one line per record followed by the summary
func (f *HumanFormatter) Listing(w io.Writer, l *Listing) error {
	idx := l.Index
	fmt.Fprintf(w, "Comparing %s -> %s by %s\n\n", idx.SourceRoot, idx.DestRoot, l.describeMethod())

	for _, rec := range l.Records {
		status := diff.Classify(rec, l.Method)
		fmt.Fprintf(w, "  %-17s %s%s\n", status, rec.RelativePath, sizeChange(rec, status))
		if l.ShowPaths {
			if rec.HasSource() {
				fmt.Fprintf(w, "      source: %s\n", rec.ResolvePath(idx.SourceRoot))
			}
			if rec.HasDestination() {
				fmt.Fprintf(w, "      dest:   %s\n", rec.ResolvePath(idx.DestRoot))
			}
		}
	}
	if len(l.Records) == 0 {
		fmt.Fprintf(w, "  no differences\n")
	}

	s := l.Summary()
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary: %d files\n", s.Total())
	fmt.Fprintf(w, "  Identical:        %d\n", s.Identical)
	fmt.Fprintf(w, "  Different:        %d\n", s.Different)
	fmt.Fprintf(w, "  Source only:      %d\n", s.SourceOnly)
	fmt.Fprintf(w, "  Destination only: %d\n", s.DestOnly)

	writeWarnings(w, idx.Warnings)

	_, err := fmt.Fprintf(w, "\nCompleted in %s\n", idx.Duration().Round(time.Millisecond))
	return err
}

// Report prints the counters of a sync run
func (f *HumanFormatter) Report(w io.Writer, report *models.SyncReport) error {
	title := "Sync"
	if report.DryRun {
		title = "Dry run"
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s (%s) completed in %s\n", title, report.Mode, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Source:      %s\n", report.SourcePath)
	fmt.Fprintf(w, "  Destination: %s\n", report.DestPath)
	fmt.Fprintf(w, "\n")

	r := report.Result
	fmt.Fprintf(w, "Summary: %d succeeded, %d skipped\n", r.Count(), r.Skipped)
	fmt.Fprintf(w, "  Files copied:   %d\n", r.Copied)
	fmt.Fprintf(w, "  Files deleted:  %d\n", r.Deleted)
	fmt.Fprintf(w, "  Data:           %s\n", humanize.Bytes(uint64(r.BytesTransferred)))
	if report.Duration.Seconds() > 0 && r.BytesTransferred > 0 {
		avg := float64(r.BytesTransferred) / report.Duration.Seconds()
		fmt.Fprintf(w, "  Average speed:  %s\n", ratelimit.FormatRate(int64(avg)))
	}

	writeWarnings(w, report.Warnings)

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}

	_, err := fmt.Fprintf(w, "\nStatus: %s\n", report.Status)
	return err
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// sizeChange shows both sizes of a different record
func sizeChange(rec *index.Record, status diff.Status) string {
	if status != diff.StatusDifferent {
		return ""
	}
	return fmt.Sprintf(" (%s -> %s)", humanize.Bytes(uint64(rec.Source.Size)), humanize.Bytes(uint64(rec.Destination.Size)))
}

func writeWarnings(w io.Writer, warnings []models.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  [%s] %s %s: %s\n", warn.Kind, warn.Side, warn.Path, warn.Message())
	}
}
