package update

import (
	"bytes"
	"compress/zlib"
)

// xrefStreamFieldWidths are the fixed widths mandated for this writer's
// compressed xref streams: type, offset, generation.
var xrefStreamFieldWidths = [3]int{4, 8, 4}

// XRefStreamWriter emits a compressed cross-reference stream, used when the
// prior trailer was itself a /Type /XRef stream.
type XRefStreamWriter struct {
	sink *ByteSink
	vw   *ValueWriter

	// DeflateLevel controls the compress/zlib level used for the stream's
	// own payload. Zero means zlib.DefaultCompression, matching
	// StreamPipeline's treatment of its own zero value.
	DeflateLevel int
}

// NewXRefStreamWriter constructs an XRefStreamWriter over sink.
func NewXRefStreamWriter(sink *ByteSink) *XRefStreamWriter {
	return &XRefStreamWriter{sink: sink, vw: NewValueWriter(sink)}
}

func (xsw *XRefStreamWriter) deflateLevel() int {
	if xsw.DeflateLevel == 0 {
		return zlib.DefaultCompression
	}
	return xsw.DeflateLevel
}

// Write emits the fresh trailer object (a top-level Stream object of
// /Type /XRef) and returns the byte offset of its "<obj#> <gen#> obj\r\n"
// header, measured from the start of the combined file.
//
// priorTrailer is cloned and adjusted in place per the spec: Size bumped,
// Prev set to the prior trailer's own position, DecodeParms removed,
// Filter/W/Index set. priorSize and priorPosition describe the trailer
// being chained from.
func (xsw *XRefStreamWriter) Write(table *EntryTable, priorTrailer *Dict, priorSize int64, priorPosition uint64, startingPosition uint64) (uint64, error) {
	chained, head := buildFreeListChain(table.Iter())
	pseudoZero := Entry{kind: entryFree, Ref: Reference{Num: 0, Gen: 65534}, NextFree: head}
	all := append([]Entry{pseudoZero}, chained...)

	trailerObjNum := table.GreatestObjectNumber() + 1
	ref := Reference{Num: trailerObjNum, Gen: 0}

	payload := encodeXRefStreamPayload(all)

	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, xsw.deflateLevel())
	if err != nil {
		return 0, wrapError(ErrCompression, err, "constructing xref stream deflate writer").withRef(ref)
	}
	if _, err := zw.Write(payload); err != nil {
		return 0, wrapError(ErrCompression, err, "deflating xref stream payload").withRef(ref)
	}
	if err := zw.Close(); err != nil {
		return 0, wrapError(ErrCompression, err, "closing xref stream deflate writer").withRef(ref)
	}

	dict := priorTrailer.Clone()
	size := int64(trailerObjNum) + 1
	if priorSize > size {
		size = priorSize
	}
	dict.Set("Size", intValue(size))
	dict.Set("Prev", longValue(int64(priorPosition)))
	dict.Delete("DecodeParms")
	dict.Set("Filter", nameValue("FlateDecode"))
	dict.Set("W", arrayValue([]Value{
		intValue(int64(xrefStreamFieldWidths[0])),
		intValue(int64(xrefStreamFieldWidths[1])),
		intValue(int64(xrefStreamFieldWidths[2])),
	}))

	var index []Value
	for _, sub := range partitionSubsections(all) {
		index = append(index, intValue(int64(sub.first)), intValue(int64(len(sub.entries))))
	}
	dict.Set("Index", arrayValue(index))
	dict.Set("Length", intValue(int64(compressed.Len())))
	dict.Set("Type", nameValue("XRef"))

	xrefPosition := startingPosition + xsw.sink.Count()

	v := Value{Kind: KindStream, Dict: dict, Stream: compressed.Bytes()}
	if err := xsw.vw.WriteTopLevelObject(ref, v); err != nil {
		return 0, err
	}

	return xrefPosition, nil
}

// encodeXRefStreamPayload concatenates per-entry records using
// xrefStreamFieldWidths. Field 1 is the entry type (always 1, TYPE_USED,
// even for free entries, which collapse to an offset of 0). Field 2 is the
// byte offset (0 for free). Field 3 is always zero.
func encodeXRefStreamPayload(entries []Entry) []byte {
	w0, w1, w2 := xrefStreamFieldWidths[0], xrefStreamFieldWidths[1], xrefStreamFieldWidths[2]
	recordLen := w0 + w1 + w2
	out := make([]byte, 0, len(entries)*recordLen)

	for _, e := range entries {
		rec := make([]byte, recordLen)
		putBigEndian(rec[0:w0], 1) // TYPE_USED
		offset := e.ByteOffset
		if e.Free() {
			offset = 0
		}
		putBigEndian(rec[w0:w0+w1], offset)
		// rec[w0+w1:] stays zero.
		out = append(out, rec...)
	}
	return out
}

func putBigEndian(dst []byte, value uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(value & 0xff)
		value >>= 8
	}
}
