package update

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

type fakeSecurityManager struct {
	key []byte
}

func (f *fakeSecurityManager) Encrypt(ref Reference, decodeParms *Dict, data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ f.key[i%len(f.key)]
	}
	return out, nil
}

func (f *fakeSecurityManager) xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ f.key[i%len(f.key)]
	}
	return out
}

// S3 — new indirect stream, encrypted: bytes are deflated then encrypted,
// dictionary Length equals ciphertext length.
func TestStreamPipelineCompressThenEncrypt(t *testing.T) {
	sm := &fakeSecurityManager{key: []byte{0xAA}}
	pipeline := &StreamPipeline{Security: sm}

	dict := NewDict()
	dict.Set("Filter", nameValue("FlateDecode"))

	ref := Reference{Num: 12, Gen: 0}
	ciphertext, err := pipeline.Process(ref, dict, []byte("hello"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	length, ok := dict.Get("Length")
	if !ok || length.Int != int64(len(ciphertext)) {
		t.Fatalf("Length = %v, want %d", length, len(ciphertext))
	}

	// Invariant 8: decrypting then inflating recovers the original bytes.
	deflated := sm.xor(ciphertext)
	zr, err := zlib.NewReader(bytes.NewReader(deflated))
	if err != nil {
		t.Fatalf("zlib.NewReader() error = %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate error = %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("recovered bytes = %q, want %q", raw, "hello")
	}
}

func TestStreamPipelineNoSecurityManager(t *testing.T) {
	pipeline := &StreamPipeline{}

	dict := NewDict()
	dict.Set("Filter", nameValue("FlateDecode"))

	out, err := pipeline.Process(Reference{Num: 1}, dict, []byte("plain"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output should be plain deflate without encryption: %v", err)
	}
	raw, _ := io.ReadAll(zr)
	if string(raw) != "plain" {
		t.Fatalf("got %q, want %q", raw, "plain")
	}
}

func TestStreamPipelineNoFilterPassesThrough(t *testing.T) {
	pipeline := &StreamPipeline{}
	dict := NewDict()

	out, err := pipeline.Process(Reference{Num: 1}, dict, []byte("raw bytes"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if string(out) != "raw bytes" {
		t.Fatalf("got %q, want passthrough of %q", out, "raw bytes")
	}
}
