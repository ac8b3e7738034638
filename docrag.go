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

// Package docrag wires the reader, splitter, vector store and query
// pipeline into a single service.
package docrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/ollama"
	"github.com/poiesic/docrag/ai/openai"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/reader"
	"github.com/poiesic/docrag/splitter"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/poiesic/docrag/storage/chromem"
	"github.com/poiesic/docrag/vectorstore"
	"github.com/tmc/langchaingo/llms"
)

// ErrConfigRequired is returned by Open when no configuration is given.
var ErrConfigRequired = errors.New("configuration is required")

type Service struct {
	config     *config.Config
	provider   ai.AIProvider
	repository storage.ChunkRepository
	store      *vectorstore.Store
	splitter   *splitter.TokenSplitter
	reader     *reader.Reader
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider ai.AIProvider
	encoder  splitter.Encoder
	progress io.Writer
	logger   *slog.Logger
}

// WithProvider supplies the AI provider instead of building one from cfg.AI.
// The service takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithEncoder supplies the splitter's tokenizer instead of cfg.Splitter.Encoding.
func WithEncoder(encoder splitter.Encoder) Option {
	return func(o *serviceOptions) {
		o.encoder = encoder
	}
}

// WithProgressWriter overrides where ingestion progress is drawn when
// cfg.Ingest.Progress is set. Default is os.Stderr.
func WithProgressWriter(w io.Writer) Option {
	return func(o *serviceOptions) {
		o.progress = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// Open validates cfg and builds every component. On error, anything already
// opened is closed again.
func Open(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{
		progress: os.Stderr,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	s := &Service{
		config:   cfg,
		progress: options.progress,
		logger:   options.logger,
	}

	encoder := options.encoder
	if encoder == nil {
		var err error
		encoder, err = splitter.NewEncoder(cfg.Splitter.Encoding)
		if err != nil {
			if options.provider != nil {
				options.provider.Close()
			}
			return nil, fmt.Errorf("failed to load %q encoder: %w", cfg.Splitter.Encoding, err)
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = newProvider(&cfg.AI)
		if err != nil {
			return nil, err
		}
	}
	s.provider = provider

	repository, err := openRepository(cfg.Store, s.logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.repository = repository

	storeOpts := []vectorstore.Option{
		vectorstore.WithBatchSize(cfg.Store.BatchSize),
		vectorstore.WithTopK(cfg.Store.TopK),
		vectorstore.WithScoreThreshold(cfg.Store.ScoreThreshold),
		vectorstore.WithLogger(s.logger),
	}
	if cfg.Store.PoolSize > 0 {
		storeOpts = append(storeOpts, vectorstore.WithPoolSize(cfg.Store.PoolSize))
	}
	store, err := vectorstore.New(repository, provider.Embedder(), storeOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store = store

	s.splitter, err = splitter.NewTokenSplitter(encoder,
		splitter.WithOptions(cfg.Splitter.Options()),
		splitter.WithLogger(s.logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	readerOpts := []reader.Option{reader.WithLogger(s.logger)}
	if cfg.Ingest.PDFPassword != "" {
		readerOpts = append(readerOpts, reader.WithPDFPassword(cfg.Ingest.PDFPassword))
	}
	s.reader, err = reader.New(readerOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	default:
		return openai.NewProvider(cfg)
	}
}

func openRepository(cfg config.StoreConfig, logger *slog.Logger) (storage.ChunkRepository, error) {
	path := cfg.Path
	if cfg.InMemory {
		path = ""
	}

	switch cfg.Backend {
	case config.BackendChromem:
		opts := []chromem.Option{chromem.WithLogger(logger)}
		if cfg.PoolSize > 0 {
			opts = append(opts, chromem.WithConcurrency(cfg.PoolSize))
		}
		return chromem.Open(path, cfg.Collection, opts...)
	default:
		return badger.Open(path, cfg.InMemory, logger)
	}
}

// Ingest reads the configured resource into the vector store.
// A missing resource is not an error; see ingestion.Result.Skipped.
func (s *Service) Ingest(ctx context.Context) (*ingestion.Result, error) {
	opts := []ingestion.Option{ingestion.WithLogger(s.logger)}
	if s.config.Ingest.Progress && s.progress != nil {
		opts = append(opts, ingestion.WithProgress(s.progress))
	}
	return ingestion.Ingest(ctx,
		ingestion.Config{Resource: s.config.Ingest.Resource},
		s.reader, s.splitter, s.store, opts...)
}

// NewResponder builds a query responder over the service's store and chat
// model. opts are applied after the configured prompt settings.
func (s *Service) NewResponder(opts ...query.Option) (*query.Responder, error) {
	base := []query.Option{
		query.WithSystemPrompt(s.config.Query.SystemPrompt),
		query.WithLogger(s.logger),
		query.WithCallOptions(llms.WithTemperature(s.config.AI.Temperature)),
	}
	if s.config.Query.Template != "" {
		base = append(base, query.WithTemplate(s.config.Query.Template))
	}
	return query.NewResponder(s.store.Retriever(s.config.Store.TopK), s.provider.ChatModel(), append(base, opts...)...)
}

func (s *Service) Store() *vectorstore.Store {
	return s.store
}

func (s *Service) Config() *config.Config {
	return s.config
}

// Close releases the provider, then the store and its backend.
func (s *Service) Close() error {
	var errs []error

	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}

	if s.store != nil {
		s.store.Close()
	}

	if s.repository != nil {
		if err := s.repository.Close(); err != nil {
			s.logger.Error("error closing vector storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
