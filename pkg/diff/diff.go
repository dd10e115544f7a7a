// Package diff classifies index records as identical or different.
package diff

import (
	"time"

	"github.com/sdejongh/treesync/pkg/index"
)

// Method selects how two present sides are compared
type Method int

const (
	// ByMetadata compares size and modification time
	ByMetadata Method = iota
	// ByDigest compares content digests
	ByDigest
)

func (m Method) String() string {
	if m == ByDigest {
		return "digest"
	}
	return "metadata"
}

// MethodFor maps the hash flag of a comparison to a method
func MethodFor(hashEnabled bool) Method {
	if hashEnabled {
		return ByDigest
	}
	return ByMetadata
}

// Strategy selects which records Filter keeps
type Strategy int

const (
	// All keeps every record
	All Strategy = iota
	// DifferencesOnly drops identical records
	DifferencesOnly
)

// StrategyFor maps the differences-only flag to a strategy
func StrategyFor(differencesOnly bool) Strategy {
	if differencesOnly {
		return DifferencesOnly
	}
	return All
}

// Status is the classification of one record
type Status string

const (
	StatusIdentical  Status = "identical"
	StatusDifferent  Status = "different"
	StatusSourceOnly Status = "source-only"
	StatusDestOnly   Status = "destination-only"
)

// Classify compares the two sides of rec.
//
// A one-sided record is source-only or destination-only. Otherwise, with
// ByDigest the record is identical only if both digests exist and are equal,
// so a file that could not be read always counts as different. With
// ByMetadata sizes must match and modification times must match at whole
// second precision.
func Classify(rec *index.Record, method Method) Status {
	switch {
	case rec.Source == nil:
		return StatusDestOnly
	case rec.Destination == nil:
		return StatusSourceOnly
	}

	if method == ByDigest {
		if rec.SourceDigest.Equal(rec.DestinationDigest) {
			return StatusIdentical
		}
		return StatusDifferent
	}

	if rec.Source.Size == rec.Destination.Size && SameSecond(rec.Source.ModTime, rec.Destination.ModTime) {
		return StatusIdentical
	}
	return StatusDifferent
}

// SameSecond reports whether two timestamps fall in the same whole second
func SameSecond(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// Filter returns the records kept by strategy, in index order
func Filter(records []*index.Record, strategy Strategy, method Method) []*index.Record {
	out := make([]*index.Record, 0, len(records))
	for _, rec := range records {
		if strategy == DifferencesOnly && Classify(rec, method) == StatusIdentical {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Summary counts records per status
type Summary struct {
	Identical  int `json:"identical"`
	Different  int `json:"different"`
	SourceOnly int `json:"source_only"`
	DestOnly   int `json:"destination_only"`
}

// Total returns the number of counted records
func (s Summary) Total() int {
	return s.Identical + s.Different + s.SourceOnly + s.DestOnly
}

// Differences returns the number of records that are not identical
func (s Summary) Differences() int {
	return s.Total() - s.Identical
}

// Summarize classifies every record
func Summarize(records []*index.Record, method Method) Summary {
	var s Summary
	for _, rec := range records {
		switch Classify(rec, method) {
		case StatusIdentical:
			s.Identical++
		case StatusDifferent:
			s.Different++
		case StatusSourceOnly:
			s.SourceOnly++
		case StatusDestOnly:
			s.DestOnly++
		}
	}
	return s
}
