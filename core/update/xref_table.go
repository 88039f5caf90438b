package update

import "fmt"

// subsection is a maximal contiguous run of entries whose object numbers
// increase by exactly 1, used by both the classical and compressed xref
// writers to partition the (ascending) entry table.
type subsection struct {
	first   uint32
	entries []Entry
}

// partitionSubsections splits entries (already ascending) into contiguous
// runs. No trailing empty subsection is produced.
func partitionSubsections(entries []Entry) []subsection {
	var subs []subsection
	for _, e := range entries {
		if len(subs) > 0 {
			last := &subs[len(subs)-1]
			prevNum := last.entries[len(last.entries)-1].Ref.Num
			if e.Ref.Num == prevNum+1 {
				last.entries = append(last.entries, e)
				continue
			}
		}
		subs = append(subs, subsection{first: e.Ref.Num, entries: []Entry{e}})
	}
	return subs
}

// buildFreeListChain walks entries in reverse order, threading each Free
// entry's NextFree to the object number of the next-higher free entry seen
// so far, terminating the chain at 0. It returns the chain head: the
// object number the pseudo object-0 entry should point to.
func buildFreeListChain(entries []Entry) (chained []Entry, head uint32) {
	chained = make([]Entry, len(entries))
	copy(chained, entries)

	var nextFree uint32
	for i := len(chained) - 1; i >= 0; i-- {
		if chained[i].Free() {
			chained[i].NextFree = nextFree
			nextFree = chained[i].Ref.Num
		}
	}
	return chained, nextFree
}

// XRefWriter emits a classical textual cross-reference table: subsection
// splitting, the free-list chain, and zero-padded fixed-width records.
type XRefWriter struct {
	sink *ByteSink
}

// NewXRefWriter constructs an XRefWriter over sink.
func NewXRefWriter(sink *ByteSink) *XRefWriter {
	return &XRefWriter{sink: sink}
}

// Write emits the xref section for table and returns the byte offset
// (relative to the combined file, i.e. startingPosition + sink count before
// this call) where the "xref" keyword begins.
func (xw *XRefWriter) Write(table *EntryTable, startingPosition uint64) (uint64, error) {
	chained, head := buildFreeListChain(table.Iter())

	pseudoZero := Entry{
		kind:     entryFree,
		Ref:      Reference{Num: 0, Gen: 65534},
		NextFree: head,
	}
	all := append([]Entry{pseudoZero}, chained...)

	xrefPosition := startingPosition + xw.sink.Count()

	if _, err := xw.sink.WriteString("xref\r\n"); err != nil {
		return 0, wrapError(ErrIO, err, "writing xref keyword")
	}

	for _, sub := range partitionSubsections(all) {
		header := fmt.Sprintf("%d %d\r\n", sub.first, len(sub.entries))
		if _, err := xw.sink.WriteString(header); err != nil {
			return 0, wrapError(ErrIO, err, "writing xref subsection header")
		}
		for _, e := range sub.entries {
			var record string
			if e.Free() {
				record = fmt.Sprintf("%010d %05d f\r\n", e.NextFree, e.Ref.Gen+1)
			} else {
				record = fmt.Sprintf("%010d %05d n\r\n", e.ByteOffset, e.Ref.Gen)
			}
			if len(record) != 20 {
				return 0, newError(ErrIO, fmt.Sprintf("xref record is %d bytes, want 20", len(record))).withRef(e.Ref)
			}
			if _, err := xw.sink.WriteString(record); err != nil {
				return 0, wrapError(ErrIO, err, "writing xref record").withRef(e.Ref)
			}
		}
	}

	if _, err := xw.sink.WriteString("\r\n"); err != nil {
		return 0, wrapError(ErrIO, err, "writing xref trailer blank line")
	}

	return xrefPosition, nil
}
