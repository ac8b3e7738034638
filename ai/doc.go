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

// Package ai provides abstractions for the AI services used by docrag.
//
// Two services are needed to answer questions about a document: an Embedder
// that turns chunk and query text into vectors, and a chat model that writes
// the final answer. The chat model is the langchaingo llms.Model interface
// itself, so any langchaingo backend can be plugged in.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, vLLM, LocalAI, Ollama's /v1)
//   - ai/ollama: the native Ollama API
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, ollama.NewProvider) return the
// ai.AIProvider interface. mock constructors return concrete types so tests
// can inject behavior and inspect call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithChatModel("llama3.2"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	answer, err := llms.GenerateFromSinglePrompt(ctx, provider.ChatModel(), "Hi")
package ai
