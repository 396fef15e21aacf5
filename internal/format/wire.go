package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
)

// wireColumn is the MessagePack-serializable form of a chunk.Column.
type wireColumn struct {
	ArchetypeName  string
	ArchetypeField string
	ComponentType  string
	ValueType      byte
	Offsets        []uint32
	// Valid is omitted entirely when every row is valid, the common
	// case, rather than writing out a redundant all-true bitmap.
	Valid []bool `msgpack:",omitempty"`

	Int64Data   []int64   `msgpack:",omitempty"`
	Float64Data []float64 `msgpack:",omitempty"`
	StringData  []string  `msgpack:",omitempty"`
	BoolData    []bool    `msgpack:",omitempty"`
	BytesData   [][]byte  `msgpack:",omitempty"`
}

// wireTimeline is the MessagePack-serializable form of one of a chunk's timelines.
type wireTimeline struct {
	Name   string
	Kind   byte
	Values []int64
}

// wireChunk is the on-the-wire representation of a chunk.Chunk.
type wireChunk struct {
	ID          []byte
	EntityParts []string
	RowIDs      [][]byte
	Timelines   []wireTimeline
	Columns     []wireColumn
}

func toWireChunk(c *chunk.Chunk) wireChunk {
	id := c.ID()
	w := wireChunk{
		ID:          append([]byte(nil), id[:]...),
		EntityParts: c.Entity().Parts(),
	}

	rowIDs := c.RowIDs()
	w.RowIDs = make([][]byte, len(rowIDs))
	for i, rid := range rowIDs {
		w.RowIDs[i] = append([]byte(nil), rid[:]...)
	}

	for _, tl := range c.Timelines() {
		values, _ := c.TimeValues(tl)
		w.Timelines = append(w.Timelines, wireTimeline{Name: tl.Name, Kind: byte(tl.Kind), Values: values})
	}

	for _, desc := range c.ComponentDescriptors() {
		col := c.Column(desc)
		w.Columns = append(w.Columns, wireColumn{
			ArchetypeName:  desc.ArchetypeName,
			ArchetypeField: desc.ArchetypeField,
			ComponentType:  desc.ComponentType,
			ValueType:      byte(col.Type),
			Offsets:        col.Offsets,
			Valid:          col.Valid,
			Int64Data:      col.Int64Data,
			Float64Data:    col.Float64Data,
			StringData:     col.StringData,
			BoolData:       col.BoolData,
			BytesData:      col.BytesData,
		})
	}

	return w
}

func fromWireChunk(w wireChunk) (*chunk.Chunk, error) {
	entity := chunk.NewEntityPath(w.EntityParts...)

	rowIDs := make([]chunk.RowID, len(w.RowIDs))
	for i, raw := range w.RowIDs {
		rowIDs[i] = chunk.RowID(raw[:16])
	}

	var timelines map[chunk.Timeline][]int64
	if len(w.Timelines) > 0 {
		timelines = make(map[chunk.Timeline][]int64, len(w.Timelines))
		for _, wt := range w.Timelines {
			timelines[chunk.NewTimeline(wt.Name, chunk.TimeKind(wt.Kind))] = wt.Values
		}
	}

	columns := make(map[chunk.ComponentDescriptor]*chunk.Column, len(w.Columns))
	for _, wc := range w.Columns {
		desc := chunk.ComponentDescriptor{
			ArchetypeName:  wc.ArchetypeName,
			ArchetypeField: wc.ArchetypeField,
			ComponentType:  wc.ComponentType,
		}
		columns[desc] = &chunk.Column{
			Descriptor:  desc,
			Type:        chunk.ValueType(wc.ValueType),
			Offsets:     wc.Offsets,
			Valid:       wc.Valid,
			Int64Data:   wc.Int64Data,
			Float64Data: wc.Float64Data,
			StringData:  wc.StringData,
			BoolData:    wc.BoolData,
			BytesData:   wc.BytesData,
		}
	}

	return chunk.NewChunk(chunk.ChunkID(w.ID[:16]), entity, rowIDs, timelines, columns)
}

// Encoder writes a file header followed by a stream of chunk frames.
type Encoder struct {
	w      io.Writer
	header FileHeader
}

// NewEncoder writes header to w and returns an Encoder ready to write
// chunk frames after it.
func NewEncoder(w io.Writer, header FileHeader) (*Encoder, error) {
	encoded := header.Encode()
	if _, err := w.Write(encoded[:]); err != nil {
		return nil, fmt.Errorf("format: write file header: %w", err)
	}
	return &Encoder{w: w, header: header}, nil
}

// EncodeChunk serializes c and appends it to the stream as one frame.
func (e *Encoder) EncodeChunk(c *chunk.Chunk) error {
	if e.header.Serializer != SerializerMessagePack {
		return fmt.Errorf("format: unsupported serializer %s", e.header.Serializer)
	}
	payload, err := msgpack.Marshal(toWireChunk(c))
	if err != nil {
		return fmt.Errorf("format: marshal chunk: %w", err)
	}
	return WriteFrame(e.w, payload, e.header.Compression)
}

// Decoder reads a file header and a stream of chunk frames written by an Encoder.
type Decoder struct {
	r      io.Reader
	header FileHeader
}

// NewDecoder reads and validates the file header from r according to
// policy, comparing against want (normally CurrentVersion). A non-nil
// error other than ErrOldVersion means the stream must not be read
// further; ErrOldVersion means the header was accepted but the caller
// should be told the stream's version differs from want.
func NewDecoder(r io.Reader, policy VersionPolicy, want Version) (*Decoder, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("format: read file header: %w", err)
	}
	header, err := DecodeFileHeader(buf[:])
	if err != nil {
		return nil, err
	}
	d := &Decoder{r: r, header: header}
	if verErr := CheckVersion(policy, header.Version, want); verErr != nil {
		if errors.Is(verErr, ErrOldVersion) {
			return d, verErr
		}
		return nil, verErr
	}
	return d, nil
}

// Header returns the decoded file header.
func (d *Decoder) Header() FileHeader { return d.header }

// DecodeChunk reads and deserializes the next chunk frame. Returns
// io.EOF when the stream ends cleanly between chunks.
func (d *Decoder) DecodeChunk() (*chunk.Chunk, error) {
	if d.header.Serializer != SerializerMessagePack {
		return nil, fmt.Errorf("format: unsupported serializer %s", d.header.Serializer)
	}
	payload, err := ReadFrame(d.r, d.header.Compression)
	if err != nil {
		return nil, err
	}
	var w wireChunk
	if err := msgpack.NewDecoder(bytes.NewReader(payload)).Decode(&w); err != nil {
		return nil, fmt.Errorf("format: unmarshal chunk: %w", err)
	}
	return fromWireChunk(w)
}
