package update

import (
	"bytes"
	"compress/zlib"

	"github.com/hhrutter/lzw"
)

// StreamPipeline applies the two optional transforms a stream object's raw
// bytes pass through before being written: compression, then encryption.
// The ordering is invariant and never reversed.
type StreamPipeline struct {
	Security SecurityManager

	// DeflateLevel controls /FlateDecode's compress/zlib level. Zero (the
	// struct's zero value) means zlib.DefaultCompression, not
	// zlib.NoCompression, so a bare &StreamPipeline{} keeps compressing at
	// the library's usual level instead of silently turning compression off.
	DeflateLevel int
}

// Process runs raw through the pipeline for the stream identified by ref,
// mutating dict's Length (and setting FormType=1) to match the final
// payload. It returns the bytes to write as the stream's payload.
//
// Compression triggers only when the dictionary declares a Filter and the
// bytes are not already compressed (the caller is expected to pass
// already-compressed bytes straight through by omitting Filter or a value
// this pipeline doesn't recognize).
func (p *StreamPipeline) Process(ref Reference, dict *Dict, raw []byte) ([]byte, error) {
	payload := raw

	if filter, ok := dict.Get("Filter"); ok && filter.Kind == KindName {
		compressed, err := compressForFilter(filter.Name, raw, p.deflateLevel())
		if err != nil {
			return nil, wrapError(ErrCompression, err, "compressing stream").withRef(ref)
		}
		payload = compressed
	}

	if p.Security != nil {
		var decodeParms *Dict
		if dp, ok := dict.Get("DecodeParms"); ok && dp.Kind == KindDictionary {
			decodeParms = dp.Dict
		}
		encrypted, err := p.Security.Encrypt(ref, decodeParms, payload)
		if err != nil {
			return nil, wrapError(ErrEncryption, err, "encrypting stream").withRef(ref)
		}
		payload = encrypted
	}

	dict.Set("Length", intValue(int64(len(payload))))
	dict.Set("FormType", intValue(1))

	return payload, nil
}

// deflateLevel resolves the zero value of DeflateLevel to zlib's own
// default rather than zlib.NoCompression (also 0).
func (p *StreamPipeline) deflateLevel() int {
	if p.DeflateLevel == 0 {
		return zlib.DefaultCompression
	}
	return p.DeflateLevel
}

// compressForFilter deflates raw when filter is /FlateDecode, the only
// compression the spec mandates. /LZWDecode is accepted as an alternate
// filter supplementing the deflate-only core, grounded in a sibling
// example's PDF LZW codec; any other filter name is passed through
// unmodified since the pipeline only ever compresses, it never has to
// recognize every possible existing filter on an already-encoded stream.
func compressForFilter(filter string, raw []byte, level int) ([]byte, error) {
	switch filter {
	case "FlateDecode":
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case "LZWDecode":
		var buf bytes.Buffer
		lw := lzw.NewWriter(&buf, true) // early change, matching PDF's default EarlyChange=1
		if _, err := lw.Write(raw); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return raw, nil
	}
}
