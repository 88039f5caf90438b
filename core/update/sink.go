package update

import "io"

// ByteSink wraps an io.Writer with a running count of bytes written since
// construction. The count is used to compute self-referential byte offsets
// (an xref position that points at bytes the sink itself is producing), so
// it must track exactly what has reached the underlying writer, nothing
// buffered or reordered.
type ByteSink struct {
	w     io.Writer
	count uint64
}

// NewByteSink wraps w for offset-tracked writing.
func NewByteSink(w io.Writer) *ByteSink {
	return &ByteSink{w: w}
}

// Write appends p to the underlying writer and advances the counter by
// however many bytes were actually written, even on a short write.
func (s *ByteSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.count += uint64(n)
	return n, err
}

// WriteString is a convenience wrapper avoiding a []byte conversion at call
// sites that already hold a string literal.
func (s *ByteSink) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// Count returns the number of bytes written since construction.
func (s *ByteSink) Count() uint64 {
	return s.count
}
