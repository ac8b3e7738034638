package core

import (
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

// MUS serializers for stored records. Timestamps are kept as Unix
// microseconds and decode in UTC.
var (
	IDMUS    = idMUS{}
	ChunkMUS = chunkMUS{}

	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
	vectorMUS   = ord.NewSliceSer[float32](raw.Float32)
)

var (
	_ mus.Serializer[ID]    = IDMUS
	_ mus.Serializer[Chunk] = ChunkMUS
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return raw.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := raw.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return raw.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return raw.Uint64.Skip(bs)
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += raw.TimeUnixMicroUTC.Marshal(v.InsertedAt, bs[n:])
	return
}

// Unmarshal decodes a Chunk. Empty metadata and vectors decode as nil.
func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicroUTC.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if len(v.Metadata) == 0 {
		v.Metadata = nil
	}
	if len(v.Vector) == 0 {
		v.Vector = nil
	}
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Content)
	size += metadataMUS.Size(v.Metadata)
	size += vectorMUS.Size(v.Vector)
	return size + raw.TimeUnixMicroUTC.Size(v.InsertedAt)
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	for _, skip := range []func([]byte) (int, error){
		ord.String.Skip,
		metadataMUS.Skip,
		vectorMUS.Skip,
		raw.TimeUnixMicroUTC.Skip,
	} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
