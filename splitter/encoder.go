package splitter

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// The BPE vocabularies are compiled in, so encoders never touch the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Encoding names accepted by NewEncoder.
const (
	// EncodingCL100K is the BPE encoding used by current OpenAI chat and embedding models.
	EncodingCL100K = "cl100k_base"

	// EncodingRunes treats every Unicode code point as one token. It needs no
	// vocabulary at all.
	EncodingRunes = "runes"
)

// DefaultEncoding is the tokenizer used when none is configured.
const DefaultEncoding = EncodingCL100K

// Encoder converts between text and token ids.
// Decode(Encode(s)) must return s for valid UTF-8 input.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingCL100K:
		return NewTiktokenEncoder(EncodingCL100K)
	case EncodingRunes:
		return RuneEncoder{}, nil
	default:
		return NewTiktokenEncoder(name)
	}
}

// TiktokenEncoder is an Encoder backed by a tiktoken BPE vocabulary.
type TiktokenEncoder struct {
	tk *tiktoken.Tiktoken
}

var _ Encoder = (*TiktokenEncoder)(nil)

// NewTiktokenEncoder loads the named tiktoken encoding.
func NewTiktokenEncoder(encoding string) (*TiktokenEncoder, error) {
	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodingUnavailable, encoding, err)
	}
	return &TiktokenEncoder{tk: tk}, nil
}

// Encode tokenizes text without special-token handling.
func (e *TiktokenEncoder) Encode(text string) []int {
	return e.tk.EncodeOrdinary(text)
}

func (e *TiktokenEncoder) Decode(tokens []int) string {
	return e.tk.Decode(tokens)
}

// RuneEncoder maps each rune to its code point.
type RuneEncoder struct{}

var _ Encoder = RuneEncoder{}

func (RuneEncoder) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (RuneEncoder) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}
