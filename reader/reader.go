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

package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/docrag/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Reader extracts text documents from files on disk.
type Reader struct {
	csvColumns  []string
	pdfPassword string
	logger      *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader) error

// WithCSVColumns limits CSV documents to the named columns.
func WithCSVColumns(columns ...string) Option {
	return func(r *Reader) error {
		r.csvColumns = columns
		return nil
	}
}

// WithPDFPassword sets the password used to open encrypted PDFs.
func WithPDFPassword(password string) Option {
	return func(r *Reader) error {
		r.pdfPassword = password
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a Reader.
func New(opts ...Option) (*Reader, error) {
	r := &Reader{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reader")
	return r, nil
}

// Extensions lists the file extensions the reader understands.
func Extensions() []string {
	return []string{".csv", ".docx", ".htm", ".html", ".md", ".pdf", ".txt"}
}

// Load reads path with a default Reader.
func Load(ctx context.Context, path string) ([]schema.Document, error) {
	r, err := New()
	if err != nil {
		return nil, err
	}
	return r.Load(ctx, path)
}

// Load reads the file or directory at path. Directories are walked in lexical
// order and files with unsupported extensions are skipped. Every document
// carries its file path under the "source" metadata key.
func (r *Reader) Load(ctx context.Context, path string) ([]schema.Document, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return r.loadFile(ctx, path)
	}

	var docs []schema.Document
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supported(p) {
			r.logger.Debug("skipping unsupported file", "path", p)
			return nil
		}
		fileDocs, err := r.loadFile(ctx, p)
		if err != nil {
			return err
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func supported(path string) bool {
	return slices.Contains(Extensions(), strings.ToLower(filepath.Ext(path)))
}

func (r *Reader) loadFile(ctx context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var loader documentloaders.Loader
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		loader = documentloaders.NewText(f)
	case ".csv":
		loader = documentloaders.NewCSV(f, r.csvColumns...)
	case ".html", ".htm":
		loader = documentloaders.NewHTML(f)
	case ".pdf", ".docx":
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		if ext == ".docx" {
			loader = NewDocx(f, info.Size())
		} else if r.pdfPassword != "" {
			loader = documentloaders.NewPDF(f, info.Size(), documentloaders.WithPassword(r.pdfPassword))
		} else {
			loader = documentloaders.NewPDF(f, info.Size())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any, 1)
		}
		docs[i].Metadata[core.MetadataSource] = path
	}
	r.logger.Debug("loaded file", "path", path, "documents", len(docs))
	return docs, nil
}
