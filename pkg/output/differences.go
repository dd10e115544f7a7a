package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/treesync/pkg/diff"
	"github.com/sdejongh/treesync/pkg/index"
)

// WriteDifferencesReport writes the records that are not identical to a file.
// Format can be "human" or "json". No file is created when the trees match.
func WriteDifferencesReport(l *Listing, path string, format string) error {
	differences := l.Differences()
	if len(differences) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create differences file: %w", err)
	}

	switch format {
	case "json":
		err = encode(file, newJSONListing(l, differences))
	default: // "human"
		err = writeDifferencesHuman(file, l, differences)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// writeDifferencesHuman groups the differences by status, then by directory
func writeDifferencesHuman(w io.Writer, l *Listing, differences []*index.Record) error {
	idx := l.Index
	fmt.Fprintf(w, "Differences Report\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Source: %s\n", idx.SourceRoot)
	fmt.Fprintf(w, "Destination: %s\n", idx.DestRoot)
	fmt.Fprintf(w, "Method: %s\n\n", l.describeMethod())
	fmt.Fprintf(w, "Total Differences: %d\n\n", len(differences))

	byStatus := make(map[diff.Status][]*index.Record)
	for _, rec := range differences {
		status := diff.Classify(rec, l.Method)
		byStatus[status] = append(byStatus[status], rec)
	}

	statusOrder := []diff.Status{diff.StatusDifferent, diff.StatusSourceOnly, diff.StatusDestOnly}
	statusLabels := map[diff.Status]string{
		diff.StatusDifferent:  "Different",
		diff.StatusSourceOnly: "Only in Source",
		diff.StatusDestOnly:   "Only in Destination",
	}

	for _, status := range statusOrder {
		records := byStatus[status]
		if len(records) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d files)", statusLabels[status], len(records))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		lastDir := "\x00"
		for _, rec := range records {
			dir, name := rec.DisplayPath()
			if dir != lastDir {
				if dir == "" {
					fmt.Fprintf(w, "  ./\n")
				} else {
					fmt.Fprintf(w, "  %s/\n", dir)
				}
				lastDir = dir
			}
			fmt.Fprintf(w, "    %s\n", name)
			if rec.HasSource() {
				fmt.Fprintf(w, "      Source:  %s%s\n", humanize.Bytes(uint64(rec.Source.Size)), digestSuffix(rec.SourceDigest.String()))
			}
			if rec.HasDestination() {
				fmt.Fprintf(w, "      Dest:    %s%s\n", humanize.Bytes(uint64(rec.Destination.Size)), digestSuffix(rec.DestinationDigest.String()))
			}
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

func digestSuffix(hex string) string {
	if hex == "" {
		return ""
	}
	if len(hex) > 12 {
		hex = hex[:12]
	}
	return ", digest: " + hex
}
