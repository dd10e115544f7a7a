// Package index merges two enumerated trees into one table keyed by relative path.
package index

import (
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/models"
)

// Index is the comparison table produced by one Build. It is rebuilt from
// scratch for every request and never updated in place.
type Index struct {
	ID          uuid.UUID
	SourceRoot  string
	DestRoot    string
	HashEnabled bool
	Algorithm   digest.Algorithm

	// Records holds source records in discovery order followed by
	// destination-only records
	Records []*Record

	// Warnings lists directories and files that were skipped
	Warnings []models.Warning

	StartedAt   time.Time
	CompletedAt time.Time

	byPath map[string]*Record
}

// Len returns the number of records
func (idx *Index) Len() int {
	return len(idx.Records)
}

// Lookup returns the record for a relative path
func (idx *Index) Lookup(relativePath string) (*Record, bool) {
	rec, ok := idx.byPath[relativePath]
	return rec, ok
}

// Duration returns how long the build took
func (idx *Index) Duration() time.Duration {
	return idx.CompletedAt.Sub(idx.StartedAt)
}
