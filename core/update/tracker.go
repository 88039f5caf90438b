package update

// ChangeKind distinguishes why an object is present in a change set.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota
	ChangeNew
	ChangeDeleted
)

// Change is one entry the change-tracker hands to the driver: a changed
// object's reference, what kind of change it is, and — for Modified/New —
// its new value. Deleted entries carry no Value.
type Change struct {
	Ref   Reference
	Kind  ChangeKind
	Value Value
}

// PriorTrailer describes the trailer the new update chains from: its
// dictionary, its own byte position (0 if the parser couldn't locate it),
// its Size, and whether it is a compressed xref stream (Type == /XRef).
type PriorTrailer struct {
	Dict       *Dict
	Position   uint64
	Size       int64
	IsXRefType bool
}

// ChangeTracker is the external collaborator (referred to elsewhere as
// StateManager) that records which objects are new, modified, or deleted
// since the document was parsed. The writer reads it once per update and
// must not observe it mutating mid-emission.
type ChangeTracker interface {
	IsChanged(ref Reference) bool
	ChangedCount() int
	IterSortedByObjectNumber() []Change
	Trailer() PriorTrailer
}

// Document is the minimal view of a parsed document the driver needs:
// its change-tracker, an optional security manager, and whether the
// catalog reports the document as encrypted.
type Document interface {
	ChangeTracker() ChangeTracker
	SecurityManager() SecurityManager
	IsEncrypted() bool
}
