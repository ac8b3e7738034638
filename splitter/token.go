package splitter

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// Options controls how text is cut into chunks.
type Options struct {
	// ChunkSize is the target chunk length in tokens.
	ChunkSize int

	// MinChunkSizeChars is the minimum number of characters a chunk must
	// reach before it may be cut short at a sentence boundary.
	MinChunkSizeChars int

	// MinChunkLengthToEmbed drops chunks with fewer tokens than this.
	MinChunkLengthToEmbed int

	// MaxNumChunks caps the number of chunks produced per run.
	MaxNumChunks int

	// KeepSeparator preserves newlines inside chunks. When false they are
	// replaced by spaces.
	KeepSeparator bool
}

// DefaultOptions returns the splitter settings used for ingestion.
func DefaultOptions() Options {
	return Options{
		ChunkSize:             800,
		MinChunkSizeChars:     350,
		MinChunkLengthToEmbed: 5,
		MaxNumChunks:          10000,
		KeepSeparator:         true,
	}
}

// Validate checks that every bound is usable.
func (o Options) Validate() error {
	if o.ChunkSize < 1 {
		return fmt.Errorf("%w: ChunkSize must be positive", ErrInvalidOptions)
	}
	if o.MinChunkSizeChars < 0 {
		return fmt.Errorf("%w: MinChunkSizeChars cannot be negative", ErrInvalidOptions)
	}
	if o.MinChunkLengthToEmbed < 0 {
		return fmt.Errorf("%w: MinChunkLengthToEmbed cannot be negative", ErrInvalidOptions)
	}
	if o.MaxNumChunks < 1 {
		return fmt.Errorf("%w: MaxNumChunks must be positive", ErrInvalidOptions)
	}
	return nil
}

// TokenSplitter cuts text into token-bounded chunks, preferring to end each
// chunk at a sentence or line boundary. The output depends only on the input
// text, the options, and the encoder.
type TokenSplitter struct {
	opts    Options
	encoder Encoder
	logger  *slog.Logger
}

var _ textsplitter.TextSplitter = (*TokenSplitter)(nil)

// Option configures a TokenSplitter.
type Option func(*TokenSplitter) error

// WithOptions replaces the default chunking options.
func WithOptions(opts Options) Option {
	return func(s *TokenSplitter) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		s.opts = opts
		return nil
	}
}

// WithLogger sets the logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *TokenSplitter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewTokenSplitter creates a splitter that counts tokens with encoder.
func NewTokenSplitter(encoder Encoder, opts ...Option) (*TokenSplitter, error) {
	if encoder == nil {
		return nil, ErrEncoderRequired
	}

	s := &TokenSplitter{
		opts:    DefaultOptions(),
		encoder: encoder,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "splitter")

	return s, nil
}

// Options returns the active chunking options.
func (s *TokenSplitter) Options() Options {
	return s.opts
}

// SplitText splits a single text. The chunk cap applies to this text alone.
func (s *TokenSplitter) SplitText(text string) ([]string, error) {
	return s.split(text, s.opts.MaxNumChunks), nil
}

// SplitDocuments splits every document in order and copies each document's
// metadata onto its chunks. The chunk cap is shared by all documents: once it
// is reached the remaining text is dropped.
func (s *TokenSplitter) SplitDocuments(docs []schema.Document) ([]schema.Document, error) {
	remaining := s.opts.MaxNumChunks
	out := make([]schema.Document, 0, len(docs))

	for i, doc := range docs {
		if remaining <= 0 {
			s.logger.Warn("chunk limit reached, skipping remaining documents",
				"limit", s.opts.MaxNumChunks, "skipped", len(docs)-i)
			break
		}

		chunks := s.split(doc.PageContent, remaining)
		remaining -= len(chunks)

		for _, chunk := range chunks {
			out = append(out, schema.Document{
				PageContent: chunk,
				Metadata:    maps.Clone(doc.Metadata),
			})
		}
	}

	return out, nil
}

// split produces at most limit chunks from text.
func (s *TokenSplitter) split(text string, limit int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.encoder.Encode(text)
	var chunks []string

	for n := 0; len(tokens) > 0 && n < limit; {
		end := min(s.opts.ChunkSize, len(tokens))
		window := s.encoder.Decode(tokens[:end])

		if strings.TrimSpace(window) == "" {
			tokens = tokens[end:]
			continue
		}

		cut := truncateAtBoundary(window, s.opts.MinChunkSizeChars)

		chunk := cut
		if !s.opts.KeepSeparator {
			chunk = strings.ReplaceAll(chunk, "\n", " ")
		}
		chunk = strings.TrimSpace(chunk)

		if len(s.encoder.Encode(chunk)) >= s.opts.MinChunkLengthToEmbed {
			chunks = append(chunks, chunk)
		}

		// Advance by the untrimmed cut so surrounding whitespace is consumed too.
		consumed := min(max(len(s.encoder.Encode(cut)), 1), end)
		tokens = tokens[consumed:]
		n++
	}

	if len(tokens) > 0 {
		s.logger.Debug("chunk limit reached, dropping remaining tokens", "tokens", len(tokens), "limit", limit)
	}

	return chunks
}

// truncateAtBoundary cuts text just after its last sentence terminator or
// newline, provided that boundary lies beyond minChars runes.
func truncateAtBoundary(text string, minChars int) string {
	runes := []rune(text)
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '.', '?', '!', '\n':
			if i > minChars {
				return string(runes[:i+1])
			}
			return text
		}
	}
	return text
}
