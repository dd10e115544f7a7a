// Package output renders compare listings and sync reports.
package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/treesync/pkg/diff"
	"github.com/sdejongh/treesync/pkg/index"
	"github.com/sdejongh/treesync/pkg/models"
)

// Listing is one compare result ready for rendering
type Listing struct {
	Index *index.Index

	// Records are the records to print, already filtered
	Records []*index.Record

	Method diff.Method

	// ShowPaths adds the resolved native path of each side
	ShowPaths bool
}

// NewListing filters the index records for display
func NewListing(idx *index.Index, differencesOnly, showPaths bool) *Listing {
	method := diff.MethodFor(idx.HashEnabled)
	return &Listing{
		Index:     idx,
		Records:   diff.Filter(idx.Records, diff.StrategyFor(differencesOnly), method),
		Method:    method,
		ShowPaths: showPaths,
	}
}

// Summary counts every record of the index, not only the printed ones
func (l *Listing) Summary() diff.Summary {
	return diff.Summarize(l.Index.Records, l.Method)
}

// Differences returns the records that are not identical
func (l *Listing) Differences() []*index.Record {
	return diff.Filter(l.Index.Records, diff.DifferencesOnly, l.Method)
}

// describeMethod names the comparison for headers
func (l *Listing) describeMethod() string {
	if l.Method == diff.ByDigest {
		return fmt.Sprintf("%s (%s)", l.Method, l.Index.Algorithm)
	}
	return l.Method.String()
}

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Listing writes the records of a compare run
	Listing(w io.Writer, listing *Listing) error

	// Report writes the outcome of a sync run
	Report(w io.Writer, report *models.SyncReport) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	}
	return nil, &models.ValidationError{Field: "output", Message: "must be 'human' or 'json' (got " + name + ")"}
}
