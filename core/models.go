package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Metadata keys set by the reader and carried onto every chunk.
const (
	MetadataSource     = "source"
	MetadataPage       = "page"
	MetadataTotalPages = "total_pages"
	MetadataTitle      = "title"
)

type ID uint64

func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID the way it is exposed through the vector store API.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseID is the inverse of ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

type Chunk struct {
	Id         ID
	Content    string
	Metadata   map[string]string // Inherited from the source document (e.g. "source", "page")
	Vector     []float32         // Unit-length embedding of Content
	InsertedAt time.Time         // When the chunk was written to the store
}

// NewChunk builds a chunk whose ID is derived from its content.
func NewChunk(content string, metadata map[string]string) *Chunk {
	return &Chunk{
		Id:       IDFromContent(content),
		Content:  content,
		Metadata: metadata,
	}
}

// Source returns the resource the chunk was read from, if known.
func (c *Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetadataSource]
}

type SearchResult struct {
	Chunk *Chunk
	Score float32
}
