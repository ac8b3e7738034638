package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables read by Load.
const EnvPrefix = "DOCRAG_"

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and DOCRAG_ environment variables, in increasing order of
// precedence. The result is validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps DOCRAG_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigFileTooLarge, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// defaultValues flattens Default() into koanf keys.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"server.addr":          d.Server.Addr,
		"server.query_timeout": d.Server.QueryTimeout,
		"server.body_limit":    d.Server.BodyLimit,

		"ingest.resource":     d.Ingest.Resource,
		"ingest.progress":     d.Ingest.Progress,
		"ingest.pdf_password": d.Ingest.PDFPassword,

		"splitter.encoding":                  d.Splitter.Encoding,
		"splitter.chunk_size":                d.Splitter.ChunkSize,
		"splitter.min_chunk_size_chars":      d.Splitter.MinChunkSizeChars,
		"splitter.min_chunk_length_to_embed": d.Splitter.MinChunkLengthToEmbed,
		"splitter.max_num_chunks":            d.Splitter.MaxNumChunks,
		"splitter.keep_separator":            d.Splitter.KeepSeparator,

		"store.backend":         d.Store.Backend,
		"store.path":            d.Store.Path,
		"store.in_memory":       d.Store.InMemory,
		"store.collection":      d.Store.Collection,
		"store.batch_size":      d.Store.BatchSize,
		"store.top_k":           d.Store.TopK,
		"store.score_threshold": d.Store.ScoreThreshold,
		"store.pool_size":       d.Store.PoolSize,

		"query.system_prompt": d.Query.SystemPrompt,
		"query.template":      d.Query.Template,

		"ai.provider":        d.AI.Provider,
		"ai.embedding_host":  d.AI.EmbeddingHost,
		"ai.chat_host":       d.AI.ChatHost,
		"ai.embedding_model": d.AI.EmbeddingModel,
		"ai.chat_model":      d.AI.ChatModel,
		"ai.api_key":         d.AI.APIKey,
		"ai.temperature":     d.AI.Temperature,
	}
}
