package update

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Driver orchestrates ByteSink, ValueWriter, EntryTable, the xref writers,
// TrailerWriter and StreamPipeline given a change-set iterator. The zero
// value is ready to use: Logger defaults to zerolog's no-op zero value, so
// tracing is opt-in and never required by callers.
type Driver struct {
	Logger zerolog.Logger

	// DeflateLevel is forwarded to every StreamPipeline and
	// XRefStreamWriter this Driver constructs. Zero means zlib's own
	// default level, not zlib.NoCompression.
	DeflateLevel int
}

// Option configures a Driver at construction.
type Option func(*Driver)

// WithLogger attaches a structured logger; Driver emits one Debug() event
// per written object and one per xref/trailer phase.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) { d.Logger = logger }
}

// WithDeflateLevel overrides the compress/zlib level used for stream object
// bodies filtered through /FlateDecode and for the compressed xref stream's
// own payload. level follows compress/flate's scale (zlib.BestSpeed through
// zlib.BestCompression, or zlib.DefaultCompression/zlib.HuffmanOnly).
func WithDeflateLevel(level int) Option {
	return func(d *Driver) { d.DeflateLevel = level }
}

// NewDriver constructs a Driver with the given options applied.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AppendUpdate writes an incremental update for doc to sink, returning the
// number of bytes written. documentLength is the length of the existing
// file the update is appended to; it anchors the self-referential offsets
// the xref section records. Returns 0 and no error when there are no
// changes.
func (d *Driver) AppendUpdate(doc Document, w io.Writer, documentLength uint64) (int, error) {
	tracker := doc.ChangeTracker()
	if tracker.ChangedCount() == 0 {
		d.Logger.Debug().Msg("append_update: no changes, nothing written")
		return 0, nil
	}

	sink := NewByteSink(w)
	vw := NewValueWriter(sink)
	table := &EntryTable{}

	var pipeline *StreamPipeline
	if sm := doc.SecurityManager(); sm != nil {
		pipeline = &StreamPipeline{Security: sm, DeflateLevel: d.DeflateLevel}
	}

	if _, err := sink.WriteString("\r\n"); err != nil {
		return 0, errors.Wrap(wrapError(ErrIO, err, "writing leading CRLF"), "append_update")
	}

	for _, change := range tracker.IterSortedByObjectNumber() {
		if change.Kind == ChangeDeleted {
			if err := table.AppendFree(change.Ref); err != nil {
				return int(sink.Count()), errors.Wrap(err, "append_update")
			}
			d.Logger.Debug().Str("ref", change.Ref.String()).Msg("object deleted")
			continue
		}

		offset := documentLength + sink.Count()

		value := change.Value
		if value.Kind == KindStream && value.Dict != nil {
			active := pipeline
			if active == nil {
				active = &StreamPipeline{DeflateLevel: d.DeflateLevel}
			}
			encoded, err := active.Process(change.Ref, value.Dict, value.Stream)
			if err != nil {
				return int(sink.Count()), errors.Wrap(err, "append_update")
			}
			value.Stream = encoded
		}

		if err := vw.WriteTopLevelObject(change.Ref, value); err != nil {
			return int(sink.Count()), errors.Wrapf(err, "append_update: object %s", change.Ref.String())
		}
		if err := table.AppendUsed(change.Ref, offset); err != nil {
			return int(sink.Count()), errors.Wrap(err, "append_update")
		}
		d.Logger.Debug().Str("ref", change.Ref.String()).Uint64("offset", offset).Msg("object written")
	}

	prior := tracker.Trailer()

	if prior.IsXRefType {
		xsw := NewXRefStreamWriter(sink)
		xsw.DeflateLevel = d.DeflateLevel
		if _, err := xsw.Write(table, prior.Dict, prior.Size, prior.Position, documentLength); err != nil {
			return int(sink.Count()), errors.Wrap(err, "append_update: xref stream")
		}
		d.Logger.Debug().Msg("compressed xref trailer written")
	} else {
		xw := NewXRefWriter(sink)
		xrefPosition, err := xw.Write(table, documentLength)
		if err != nil {
			return int(sink.Count()), errors.Wrap(err, "append_update: xref table")
		}
		tw := NewTrailerWriter(sink)
		if err := tw.Write(prior.Dict, prior.Size, prior.Position, table.GreatestObjectNumber(), xrefPosition); err != nil {
			return int(sink.Count()), errors.Wrap(err, "append_update: trailer")
		}
		d.Logger.Debug().Msg("classical xref and trailer written")
	}

	return int(sink.Count()), nil
}

// LastUpdateSize reports the size of the most recent AppendUpdate's payload,
// excluding the leading CRLF separator AppendUpdate always writes before the
// first object. bytesWritten is the total byte count AppendUpdate returned;
// passing it back here (rather than reading Driver state directly) lets a
// caller that juggles several Drivers or goroutines disambiguate which
// update a given total belongs to.
func (d *Driver) LastUpdateSize(bytesWritten int) int {
	if bytesWritten < 2 {
		return 0
	}
	return bytesWritten - 2
}

// GetUpdatedObjects emits each changed object in isolation: no xref, no
// trailer, starting_position = 0. Each returned slice is a self-contained
// "<obj# gen# obj ... endobj>" blob. Deleted objects produce no entry.
func (d *Driver) GetUpdatedObjects(doc Document) ([][]byte, error) {
	tracker := doc.ChangeTracker()
	var out [][]byte

	var pipeline *StreamPipeline
	if sm := doc.SecurityManager(); sm != nil {
		pipeline = &StreamPipeline{Security: sm, DeflateLevel: d.DeflateLevel}
	}

	for _, change := range tracker.IterSortedByObjectNumber() {
		if change.Kind == ChangeDeleted {
			continue
		}

		var buf bytes.Buffer
		sink := NewByteSink(&buf)
		vw := NewValueWriter(sink)

		value := change.Value
		if value.Kind == KindStream && value.Dict != nil {
			active := pipeline
			if active == nil {
				active = &StreamPipeline{DeflateLevel: d.DeflateLevel}
			}
			encoded, err := active.Process(change.Ref, value.Dict, value.Stream)
			if err != nil {
				return nil, errors.Wrapf(err, "get_updated_objects: object %s", change.Ref.String())
			}
			value.Stream = encoded
		}

		if err := vw.WriteTopLevelObject(change.Ref, value); err != nil {
			return nil, errors.Wrapf(err, "get_updated_objects: object %s", change.Ref.String())
		}
		out = append(out, buf.Bytes())
	}

	return out, nil
}
