// Package snapshot resolves the processing order and per-snapshot
// metadata of a snapshot collection. A collection is a directory of
// snapshot subdirectories plus optional sidecar files keyed by
// snapshot name.
package snapshot

// Sidecar file naming. Per-snapshot files are the snapshot name plus a
// suffix; the identity defaults have no snapshot prefix.
const (
	OrderFile = "mkrepo.order"

	MessageSuffix       = ".txt"
	BranchSuffix        = ".branch"
	AuthorSuffix        = ".author"
	CommitterSuffix     = ".committer"
	DateSuffix          = ".date"
	AuthorDateSuffix    = ".author-date"
	CommitterDateSuffix = ".committer-date"

	DefaultAuthorFile    = "author"
	DefaultCommitterFile = "committer"
)
