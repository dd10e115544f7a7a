package index

import (
	"github.com/sdejongh/treesync/internal/platform"
	"github.com/sdejongh/treesync/pkg/digest"
	"github.com/sdejongh/treesync/pkg/models"
)

// Record joins the source and destination view of one relative path.
// At least one of Source and Destination is set.
type Record struct {
	// RelativePath is the forward-slash key shared by both trees
	RelativePath string

	Source      *models.FileDescriptor
	Destination *models.FileDescriptor

	// Digests are nil when hashing is disabled or the side could not be read
	SourceDigest      digest.Digest
	DestinationDigest digest.Digest
}

// HasSource reports whether the path exists in the source tree
func (r *Record) HasSource() bool { return r.Source != nil }

// HasDestination reports whether the path exists in the destination tree
func (r *Record) HasDestination() bool { return r.Destination != nil }

// DisplayPath splits the relative path into directory and file name.
// Files at the tree root have an empty directory.
func (r *Record) DisplayPath() (dir, name string) {
	return platform.SplitKey(r.RelativePath)
}

// ResolvePath returns the native path of the record below root, e.g. to hand
// both sides to an external diff viewer.
func (r *Record) ResolvePath(root string) string {
	return platform.Resolve(root, r.RelativePath)
}

// descriptor returns the side's descriptor
func (r *Record) descriptor(side models.Side) *models.FileDescriptor {
	if side == models.SideSource {
		return r.Source
	}
	return r.Destination
}

// setDigest stores the digest of one side
func (r *Record) setDigest(side models.Side, d digest.Digest) {
	if side == models.SideSource {
		r.SourceDigest = d
	} else {
		r.DestinationDigest = d
	}
}
