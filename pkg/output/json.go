package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/treesync/pkg/diff"
	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct{}

// JSONListing is the JSON document of a compare run
type JSONListing struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Method      string        `json:"method"`
	Algorithm   string        `json:"algorithm,omitempty"`
	Summary     diff.Summary  `json:"summary"`
	Records     []JSONRecord  `json:"records"`
	Warnings    []JSONWarning `json:"warnings,omitempty"`
	DurationMs  int64         `json:"duration_ms"`
}

// JSONRecord represents one record of the listing
type JSONRecord struct {
	Path        string        `json:"path"`
	Status      diff.Status   `json:"status"`
	Source      *JSONFileInfo `json:"source,omitempty"`
	Destination *JSONFileInfo `json:"destination,omitempty"`
}

// JSONFileInfo represents one side of a record
type JSONFileInfo struct {
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size"`
	ModTime string `json:"mod_time"`
	Digest  string `json:"digest,omitempty"`
}

// JSONWarning represents a skipped directory or file
type JSONWarning struct {
	Kind  models.WarningKind `json:"kind"`
	Side  models.Side        `json:"side"`
	Path  string             `json:"path"`
	Error string             `json:"error"`
}

// JSONReport is the JSON document of a sync run
type JSONReport struct {
	ID               string          `json:"id"`
	Source           string          `json:"source"`
	Destination      string          `json:"destination"`
	Mode             models.SyncMode `json:"mode"`
	DryRun           bool            `json:"dry_run"`
	Status           string          `json:"status"`
	Duration         string          `json:"duration"`
	DurationMs       int64           `json:"duration_ms"`
	Copied           int             `json:"copied"`
	Deleted          int             `json:"deleted"`
	Skipped          int             `json:"skipped"`
	BytesTransferred int64           `json:"bytes_transferred"`
	Errors           []JSONErrorData `json:"errors,omitempty"`
	Warnings         []JSONWarning   `json:"warnings,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path      string        `json:"path"`
	Operation models.Action `json:"operation"`
	Error     string        `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Listing writes the compare result as one JSON document
func (f *JSONFormatter) Listing(w io.Writer, l *Listing) error {
	return encode(w, newJSONListing(l, l.Records))
}

// Report writes the sync result as one JSON document
func (f *JSONFormatter) Report(w io.Writer, report *models.SyncReport) error {
	doc := JSONReport{
		ID:               report.OperationID,
		Source:           report.SourcePath,
		Destination:      report.DestPath,
		Mode:             report.Mode,
		DryRun:           report.DryRun,
		Status:           string(report.Status),
		Duration:         report.Duration.Round(time.Millisecond).String(),
		DurationMs:       report.Duration.Milliseconds(),
		Copied:           report.Result.Copied,
		Deleted:          report.Result.Deleted,
		Skipped:          report.Result.Skipped,
		BytesTransferred: report.Result.BytesTransferred,
		Warnings:         jsonWarnings(report.Warnings),
	}
	for _, e := range report.Result.Errors {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		doc.Errors = append(doc.Errors, JSONErrorData{Path: e.FilePath, Operation: e.Operation, Error: msg})
	}
	return encode(w, doc)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func newJSONListing(l *Listing, records []*index.Record) JSONListing {
	idx := l.Index
	doc := JSONListing{
		ID:          idx.ID.String(),
		Source:      idx.SourceRoot,
		Destination: idx.DestRoot,
		Method:      l.Method.String(),
		Summary:     l.Summary(),
		Records:     make([]JSONRecord, 0, len(records)),
		Warnings:    jsonWarnings(idx.Warnings),
		DurationMs:  idx.Duration().Milliseconds(),
	}
	if idx.HashEnabled {
		doc.Algorithm = idx.Algorithm.String()
	}

	for _, rec := range records {
		jr := JSONRecord{Path: rec.RelativePath, Status: diff.Classify(rec, l.Method)}
		if rec.HasSource() {
			jr.Source = fileInfo(rec.Source, rec.SourceDigest.String(), l.ShowPaths)
		}
		if rec.HasDestination() {
			jr.Destination = fileInfo(rec.Destination, rec.DestinationDigest.String(), l.ShowPaths)
		}
		doc.Records = append(doc.Records, jr)
	}
	return doc
}

func fileInfo(fd *models.FileDescriptor, digest string, showPath bool) *JSONFileInfo {
	info := &JSONFileInfo{
		Size:    fd.Size,
		ModTime: fd.ModTime.Format(time.RFC3339),
		Digest:  digest,
	}
	if showPath {
		info.Path = fd.Path
	}
	return info
}

func jsonWarnings(warnings []models.Warning) []JSONWarning {
	var out []JSONWarning
	for _, w := range warnings {
		out = append(out, JSONWarning{Kind: w.Kind, Side: w.Side, Path: w.Path, Error: w.Message()})
	}
	return out
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
