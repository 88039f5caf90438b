package update

import (
	"bytes"
	"strings"
	"testing"
)

func TestTrailerWriterBasic(t *testing.T) {
	prior := NewDict()
	prior.Set("Root", refValue(Reference{Num: 1, Gen: 0}))

	var buf bytes.Buffer
	tw := NewTrailerWriter(NewByteSink(&buf))
	if err := tw.Write(prior, 10, 1000, 5, 2000); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "trailer\r\n") {
		t.Fatalf("missing trailer keyword: %q", got)
	}
	if !strings.Contains(got, "/Size 10") {
		t.Errorf("missing /Size 10 (prior size wins over greatest+1=6): %q", got)
	}
	if !strings.Contains(got, "/Prev 1000") {
		t.Errorf("missing /Prev 1000: %q", got)
	}
	if !strings.Contains(got, "startxref\r\n2000\r\n") {
		t.Errorf("missing startxref pointing at 2000: %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n%%EOF\r\n") {
		t.Errorf("missing %%%%EOF trailer: %q", got)
	}
}

// S5 — linear-traversed source: prior trailer position = 0 forces
// startxref to -1.
func TestTrailerWriterLinearTraversedSource(t *testing.T) {
	prior := NewDict()

	var buf bytes.Buffer
	tw := NewTrailerWriter(NewByteSink(&buf))
	if err := tw.Write(prior, 1, 0, 1, 12345); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if !strings.Contains(buf.String(), "startxref\r\n-1\r\n") {
		t.Errorf("expected startxref -1 when prior position is 0: %q", buf.String())
	}
}

func TestTrailerWriterStripsXRefStm(t *testing.T) {
	prior := NewDict()
	prior.Set("XRefStm", intValue(500))
	prior.Set("Root", refValue(Reference{Num: 1, Gen: 0}))

	var buf bytes.Buffer
	tw := NewTrailerWriter(NewByteSink(&buf))
	if err := tw.Write(prior, 1, 100, 1, 200); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if strings.Contains(buf.String(), "XRefStm") {
		t.Errorf("XRefStm should be stripped from the new trailer: %q", buf.String())
	}
	if _, ok := prior.Get("XRefStm"); !ok {
		t.Errorf("stripping must not mutate the prior trailer dictionary")
	}
}

// Invariant 5: trailer.Size >= greatest_object_number_ever_used + 1.
func TestTrailerWriterSizeInvariant(t *testing.T) {
	prior := NewDict()

	var buf bytes.Buffer
	tw := NewTrailerWriter(NewByteSink(&buf))
	if err := tw.Write(prior, 0, 0, 99, 0); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "/Size 100") {
		t.Errorf("expected /Size 100 for greatest object number 99: %q", buf.String())
	}
}
