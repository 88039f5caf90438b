package update

import "fmt"

// Reference identifies an indirect object by its object number and
// generation number. Object number 0 is reserved as the free-list head;
// generation 65535 marks a permanently free slot.
type Reference struct {
	Num uint32
	Gen uint16
}

// String renders the reference as it appears in an indirect reference
// token, without the trailing "R".
func (r Reference) String() string {
	return fmt.Sprintf("%d %d", r.Num, r.Gen)
}

// entryKind distinguishes a Used cross-reference entry from a Free one.
type entryKind int

const (
	entryUsed entryKind = iota
	entryFree
)

// Entry is a single cross-reference record: either a used object at a byte
// offset, or a freed object slot. NextFree is populated by XRefWriter /
// XRefStreamWriter while building the free-list chain; it is meaningless
// until then.
type Entry struct {
	kind       entryKind
	Ref        Reference
	ByteOffset uint64
	NextFree   uint32
}

// Free reports whether the entry is a Free variant.
func (e Entry) Free() bool { return e.kind == entryFree }

// UsedEntry constructs a Used cross-reference entry.
func UsedEntry(ref Reference, offset uint64) Entry {
	return Entry{kind: entryUsed, Ref: ref, ByteOffset: offset}
}

// FreeEntry constructs a Free cross-reference entry. NextFree is left
// unset; the xref writers populate it when the free-list chain is built.
func FreeEntry(ref Reference) Entry {
	return Entry{kind: entryFree, Ref: ref}
}

// EntryTable records cross-reference entries in ascending object-number
// order and rejects duplicate object numbers. Changed objects arrive
// already sorted in the common case, so appends are typically O(1); the
// table still linear-scans backward to place any out-of-order arrival
// correctly.
type EntryTable struct {
	entries []Entry
}

// AppendUsed records a Used entry for ref at the given byte offset.
func (t *EntryTable) AppendUsed(ref Reference, offset uint64) error {
	return t.append(UsedEntry(ref, offset))
}

// AppendFree records a Free entry for ref.
func (t *EntryTable) AppendFree(ref Reference) error {
	return t.append(FreeEntry(ref))
}

func (t *EntryTable) append(e Entry) error {
	n := len(t.entries)
	if n == 0 || e.Ref.Num > t.entries[n-1].Ref.Num {
		t.entries = append(t.entries, e)
		return nil
	}

	// Out-of-order arrival: find the insertion point by scanning backward.
	i := n
	for i > 0 && t.entries[i-1].Ref.Num > e.Ref.Num {
		i--
	}
	if i < n && t.entries[i].Ref.Num == e.Ref.Num {
		return newError(ErrDuplicateEntry, fmt.Sprintf("duplicate object number %d", e.Ref.Num)).withRef(e.Ref)
	}
	t.entries = append(t.entries, Entry{})
	copy(t.entries[i+1:], t.entries[i:n])
	t.entries[i] = e
	return nil
}

// GreatestObjectNumber returns the maximum object number recorded, or 0 if
// the table is empty.
func (t *EntryTable) GreatestObjectNumber() uint32 {
	if len(t.entries) == 0 {
		return 0
	}
	return t.entries[len(t.entries)-1].Ref.Num
}

// Len reports how many entries are recorded.
func (t *EntryTable) Len() int { return len(t.entries) }

// Iter returns the entries in ascending object-number order. Callers must
// not mutate the returned slice.
func (t *EntryTable) Iter() []Entry { return t.entries }
