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

package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
)

// Responder answers questions with retrieval-augmented generation.
// It holds no per-query state and is safe for concurrent use.
type Responder struct {
	retriever    schema.Retriever
	model        llms.Model
	template     prompts.PromptTemplate
	systemPrompt string
	callOptions  []llms.CallOption
	logger       *slog.Logger
}

// Option configures a Responder.
type Option func(*Responder) error

// WithTemplate replaces the question-answer template. The template uses Go
// text/template syntax and must reference {{.question}} and {{.context}}.
func WithTemplate(template string) Option {
	return func(r *Responder) error {
		if !strings.Contains(template, "{{.question}}") || !strings.Contains(template, "{{.context}}") {
			return fmt.Errorf("template must reference {{.question}} and {{.context}}")
		}
		r.template = newTemplate(template)
		return nil
	}
}

// WithSystemPrompt sets the system message. An empty prompt sends none.
func WithSystemPrompt(prompt string) Option {
	return func(r *Responder) error {
		r.systemPrompt = prompt
		return nil
	}
}

// WithCallOptions sets options passed to every model call, such as llms.WithTemperature.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(r *Responder) error {
		r.callOptions = opts
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResponder creates a responder over a retriever and a chat model.
func NewResponder(retriever schema.Retriever, model llms.Model, opts ...Option) (*Responder, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if model == nil {
		return nil, ErrModelRequired
	}

	r := &Responder{
		retriever:    retriever,
		model:        model,
		template:     newTemplate(DefaultTemplate),
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "query")

	return r, nil
}

func newTemplate(template string) prompts.PromptTemplate {
	return prompts.NewPromptTemplate(template, []string{"question", "context"})
}

// Respond answers message. Any input is accepted, including an empty string.
func (r *Responder) Respond(ctx context.Context, message string) (string, error) {
	return r.RespondWithMonitor(ctx, message, nil)
}

// RespondWithMonitor answers message and reports each stage to monitor.
func (r *Responder) RespondWithMonitor(ctx context.Context, message string, monitor Monitor) (answer string, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(message)
	defer func() { monitor.Finish(answer, err) }()

	start := time.Now()
	r.logger.Info("user asked", "message", message)

	docs, err := r.retriever.GetRelevantDocuments(ctx, message)
	if err != nil {
		return "", fmt.Errorf("%w: retrieving context: %w", ErrQueryFailed, err)
	}
	monitor.AfterRetrieval(docs)
	r.logger.Debug("retrieved context", "documents", len(docs))

	prompt, err := r.Augment(message, docs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	monitor.AfterAugment(prompt)

	messages := make([]llms.MessageContent, 0, 2)
	if r.systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, r.systemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := r.model.GenerateContent(ctx, messages, r.callOptions...)
	if err != nil {
		return "", fmt.Errorf("%w: generating answer: %w", ErrQueryFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", ErrQueryFailed, ErrEmptyResponse)
	}

	answer = resp.Choices[0].Content
	r.logger.Debug("answered", "documents", len(docs), "elapsed", time.Since(start))
	return answer, nil
}

// Augment renders the question-answer prompt for message and the retrieved documents.
func (r *Responder) Augment(message string, docs []schema.Document) (string, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}

	prompt, err := r.template.Format(map[string]any{
		"question": message,
		"context":  strings.Join(texts, "\n"),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return prompt, nil
}
