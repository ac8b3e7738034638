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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/server"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

// openService is replaced in tests.
var openService = func(cfg *config.Config) (*docrag.Service, error) {
	return docrag.Open(cfg, docrag.WithLogger(slog.Default()))
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docrag",
		Usage: "Answer questions about a document collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"DOCRAG_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadDotEnv(); err != nil {
				return err
			}
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Ingest the configured resource and serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
					&cli.StringFlag{
						Name:    "resource",
						Aliases: []string{"r"},
						Usage:   "File or directory to ingest (overrides ingest.resource)",
					},
					&cli.BoolFlag{
						Name:  "skip-ingest",
						Usage: "Serve the existing store without ingesting",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest the configured resource and exit",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "resource",
						Aliases: []string{"r"},
						Usage:   "File or directory to ingest (overrides ingest.resource)",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Answer one question, read from the arguments or stdin",
				ArgsUsage: "[question]",
				Action:    queryCommand,
			},
		},
	}
}

// loadDotEnv loads .env from the working directory when one exists.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the layered configuration and applies command flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("resource") {
		cfg.Ingest.Resource = c.String("resource")
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	return cfg, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := openService(cfg)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	if !c.Bool("skip-ingest") {
		result, err := svc.Ingest(ctx)
		if err != nil {
			return err
		}
		slog.Info("ingestion complete",
			"documents", result.Documents,
			"chunks", result.Chunks,
			"stored", result.Stored,
			"skipped", result.Skipped,
			"elapsed", result.Elapsed)
	}

	responder, err := svc.NewResponder()
	if err != nil {
		return err
	}

	srv, err := server.New(responder, server.Config{
		QueryTimeout: cfg.Server.QueryTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
	}, server.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	count, err := svc.Store().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stored chunks: %w", err)
	}
	srv.Metrics().SetIngestedChunks(count)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := openService(cfg)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	result, err := svc.Ingest(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if result.Skipped {
		fmt.Fprintf(out, "Resource %s not found, nothing ingested\n", cfg.Ingest.Resource)
		return nil
	}
	fmt.Fprintf(out, "Ingested %s\n", cfg.Ingest.Resource)
	fmt.Fprintf(out, "  Documents: %d\n", result.Documents)
	fmt.Fprintf(out, "  Chunks:    %d\n", result.Chunks)
	fmt.Fprintf(out, "  Stored:    %d\n", result.Stored)
	fmt.Fprintf(out, "  Elapsed:   %s\n", result.Elapsed.Round(time.Millisecond))
	return nil
}

func queryCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if question == "" {
		in, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return fmt.Errorf("failed to read question: %w", err)
		}
		question = strings.TrimSpace(string(in))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	svc, err := openService(cfg)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	responder, err := svc.NewResponder()
	if err != nil {
		return err
	}
	answer, err := responder.Respond(c.Context, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, answer)
	return nil
}
