// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/splitter"
	"github.com/poiesic/docrag/vectorstore"
)

// Storage backends accepted by StoreConfig.Backend.
const (
	BackendBadger  = "badger"
	BackendChromem = "chromem"
)

// Config is the complete docrag configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Splitter SplitterConfig `koanf:"splitter"`
	Store    StoreConfig    `koanf:"store"`
	Query    QueryConfig    `koanf:"query"`
	AI       ai.Config      `koanf:"ai"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	QueryTimeout time.Duration `koanf:"query_timeout"` // 0 disables the timeout
	BodyLimit    string        `koanf:"body_limit"`
}

// IngestConfig configures the startup ingestion run.
type IngestConfig struct {
	// Resource is the file or directory read at startup.
	Resource    string `koanf:"resource"`
	Progress    bool   `koanf:"progress"`
	PDFPassword string `koanf:"pdf_password"`
}

// SplitterConfig configures the token splitter.
type SplitterConfig struct {
	Encoding              string `koanf:"encoding"`
	ChunkSize             int    `koanf:"chunk_size"`
	MinChunkSizeChars     int    `koanf:"min_chunk_size_chars"`
	MinChunkLengthToEmbed int    `koanf:"min_chunk_length_to_embed"`
	MaxNumChunks          int    `koanf:"max_num_chunks"`
	KeepSeparator         bool   `koanf:"keep_separator"`
}

// Options converts the section to splitter options.
func (c SplitterConfig) Options() splitter.Options {
	return splitter.Options{
		ChunkSize:             c.ChunkSize,
		MinChunkSizeChars:     c.MinChunkSizeChars,
		MinChunkLengthToEmbed: c.MinChunkLengthToEmbed,
		MaxNumChunks:          c.MaxNumChunks,
		KeepSeparator:         c.KeepSeparator,
	}
}

// StoreConfig configures the vector store and its backend.
type StoreConfig struct {
	Backend        string  `koanf:"backend"`
	Path           string  `koanf:"path"`
	InMemory       bool    `koanf:"in_memory"`
	Collection     string  `koanf:"collection"` // chromem only
	BatchSize      int     `koanf:"batch_size"`
	TopK           int     `koanf:"top_k"`
	ScoreThreshold float32 `koanf:"score_threshold"`
	PoolSize       int     `koanf:"pool_size"` // 0 picks a size from the CPU count
}

// QueryConfig configures prompt assembly.
type QueryConfig struct {
	SystemPrompt string `koanf:"system_prompt"`
	// Template overrides the augmentation template when set.
	Template string `koanf:"template"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := splitter.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			BodyLimit: "1M",
		},
		Ingest: IngestConfig{
			Resource: "data/document.txt",
		},
		Splitter: SplitterConfig{
			Encoding:              splitter.DefaultEncoding,
			ChunkSize:             opts.ChunkSize,
			MinChunkSizeChars:     opts.MinChunkSizeChars,
			MinChunkLengthToEmbed: opts.MinChunkLengthToEmbed,
			MaxNumChunks:          opts.MaxNumChunks,
			KeepSeparator:         opts.KeepSeparator,
		},
		Store: StoreConfig{
			Backend:        BackendBadger,
			Path:           "data/vectorstore",
			Collection:     "docrag",
			BatchSize:      vectorstore.DefaultBatchSize,
			TopK:           vectorstore.DefaultTopK,
			ScoreThreshold: vectorstore.DefaultScoreThreshold,
		},
		Query: QueryConfig{
			SystemPrompt: query.DefaultSystemPrompt,
		},
		AI: *ai.DefaultConfig(),
	}
}

// Validate checks every section. The AI section is normalized in place.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidConfig)
	}
	if c.Server.QueryTimeout < 0 {
		return fmt.Errorf("%w: server.query_timeout cannot be negative", ErrInvalidConfig)
	}
	if c.Ingest.Resource == "" {
		return fmt.Errorf("%w: ingest.resource is required", ErrInvalidConfig)
	}
	if err := c.Splitter.Options().Validate(); err != nil {
		return fmt.Errorf("%w: splitter: %w", ErrInvalidConfig, err)
	}

	switch c.Store.Backend {
	case BackendBadger, BackendChromem:
	default:
		return fmt.Errorf("%w: store.backend must be one of %s, %s", ErrInvalidConfig, BackendBadger, BackendChromem)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required unless store.in_memory is set", ErrInvalidConfig)
	}
	if c.Store.Backend == BackendChromem && c.Store.Collection == "" {
		return fmt.Errorf("%w: store.collection is required for chromem", ErrInvalidConfig)
	}
	if c.Store.BatchSize < 1 {
		return fmt.Errorf("%w: store.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Store.TopK < 1 {
		return fmt.Errorf("%w: store.top_k must be positive", ErrInvalidConfig)
	}
	if c.Store.ScoreThreshold < 0 || c.Store.ScoreThreshold > 1 {
		return fmt.Errorf("%w: store.score_threshold must be between 0 and 1", ErrInvalidConfig)
	}
	if c.Store.PoolSize < 0 {
		return fmt.Errorf("%w: store.pool_size cannot be negative", ErrInvalidConfig)
	}

	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
