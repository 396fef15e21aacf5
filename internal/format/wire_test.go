package format

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/rerun-io/rerun-sub034/internal/chunk"
)

func buildTestChunk(t *testing.T) *chunk.Chunk {
	t.Helper()
	producer := chunk.NewRowIDProducer()
	entity := chunk.NewEntityPath("world", "camera")
	frame := chunk.NewTimeline("frame", chunk.Sequence)
	desc := chunk.ComponentDescriptor{ArchetypeName: "Scalar", ArchetypeField: "value", ComponentType: "Float64"}

	rowIDs := []chunk.RowID{producer.Next(), producer.Next(), producer.Next()}
	timelines := map[chunk.Timeline][]int64{frame: {1, 2, 3}}
	col := &chunk.Column{
		Descriptor:  desc,
		Type:        chunk.ValueFloat64,
		Offsets:     []uint32{0, 1, 2, 3},
		Float64Data: []float64{1.5, 2.5, 3.5},
	}

	c, err := chunk.NewChunk(chunk.NewChunkID(), entity, rowIDs, timelines, map[chunk.ComponentDescriptor]*chunk.Column{desc: col})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	return c
}

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	original := buildTestChunk(t)

	var buf bytes.Buffer
	header := NewFileHeader(CompressionLZ4Block, SerializerMessagePack)
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.EncodeChunk(original); err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	dec, err := NewDecoder(&buf, VersionPolicyError, CurrentVersion)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	decoded, err := dec.DecodeChunk()
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}

	if decoded.Len() != original.Len() {
		t.Fatalf("expected %d rows, got %d", original.Len(), decoded.Len())
	}
	if !decoded.Entity().Equal(original.Entity()) {
		t.Fatalf("entity mismatch: %s vs %s", decoded.Entity(), original.Entity())
	}
	frame := chunk.NewTimeline("frame", chunk.Sequence)
	origValues, _ := original.TimeValues(frame)
	gotValues, ok := decoded.TimeValues(frame)
	if !ok {
		t.Fatal("expected decoded chunk to carry the frame timeline")
	}
	for i := range origValues {
		if origValues[i] != gotValues[i] {
			t.Fatalf("time value mismatch at row %d: %d vs %d", i, origValues[i], gotValues[i])
		}
	}
}

func TestEncodeDecodeChunkPreservesValidBitmap(t *testing.T) {
	producer := chunk.NewRowIDProducer()
	entity := chunk.NewEntityPath("world", "camera")
	desc := chunk.ComponentDescriptor{ArchetypeName: "Scalar", ArchetypeField: "value", ComponentType: "Float64"}
	rowIDs := []chunk.RowID{producer.Next(), producer.Next()}
	col := &chunk.Column{
		Descriptor:  desc,
		Type:        chunk.ValueFloat64,
		Offsets:     []uint32{0, 0, 0},
		Float64Data: nil,
		Valid:       []bool{false, true},
	}
	original, err := chunk.NewChunk(chunk.NewChunkID(), entity, rowIDs, nil, map[chunk.ComponentDescriptor]*chunk.Column{desc: col})
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}

	var buf bytes.Buffer
	header := NewFileHeader(CompressionNone, SerializerMessagePack)
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.EncodeChunk(original); err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	dec, err := NewDecoder(&buf, VersionPolicyError, CurrentVersion)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	decoded, err := dec.DecodeChunk()
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}

	decodedCol := decoded.Column(desc)
	if decodedCol.IsRowValid(0) {
		t.Fatal("expected row 0 to decode as absent")
	}
	if !decodedCol.IsRowValid(1) {
		t.Fatal("expected row 1 to decode as a valid explicit-empty value")
	}
}

func TestEncodeDecodeMultipleChunksStream(t *testing.T) {
	var buf bytes.Buffer
	header := NewFileHeader(CompressionNone, SerializerMessagePack)
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	const n = 5
	for range n {
		if err := enc.EncodeChunk(buildTestChunk(t)); err != nil {
			t.Fatalf("EncodeChunk: %v", err)
		}
	}

	dec, err := NewDecoder(&buf, VersionPolicyError, CurrentVersion)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	count := 0
	for {
		_, err := dec.DecodeChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("DecodeChunk: %v", err)
		}
		count++
	}
	if count != n {
		t.Fatalf("expected %d chunks, got %d", n, count)
	}
}

func TestDecoderRejectsCorruptStream(t *testing.T) {
	var buf bytes.Buffer
	header := NewFileHeader(CompressionNone, SerializerMessagePack)
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.EncodeChunk(buildTestChunk(t)); err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	corrupted := buf.Bytes()
	truncated := corrupted[:len(corrupted)-2]

	dec, err := NewDecoder(bytes.NewReader(truncated), VersionPolicyError, CurrentVersion)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.DecodeChunk(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestNewDecoderWarnPolicyAcceptsOldCompatibleVersion(t *testing.T) {
	var buf bytes.Buffer
	oldHeader := FileHeader{Version: Version{Major: 0, Minor: 1, Patch: 0, Alpha: true}, Compression: CompressionNone, Serializer: SerializerMessagePack}
	encoded := oldHeader.Encode()
	buf.Write(encoded[:])

	want := Version{Major: 0, Minor: 1, Patch: 7, Alpha: true}
	_, err := NewDecoder(&buf, VersionPolicyWarn, want)
	if !errors.Is(err, ErrOldVersion) {
		t.Fatalf("expected ErrOldVersion, got %v", err)
	}
}

func TestNewDecoderRejectsIncompatibleVersion(t *testing.T) {
	var buf bytes.Buffer
	badHeader := FileHeader{Version: Version{Major: 9, Minor: 9}, Compression: CompressionNone, Serializer: SerializerMessagePack}
	encoded := badHeader.Encode()
	buf.Write(encoded[:])

	_, err := NewDecoder(&buf, VersionPolicyWarn, CurrentVersion)
	if !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("expected ErrIncompatibleVersion, got %v", err)
	}
}
