// Package ollama provides AI service implementations using the native Ollama API.
//
// Use it when the chat and embedding models are served by Ollama and the
// OpenAI-compatible /v1 endpoint is not wanted, e.g. to let Ollama pull a
// missing model on first use. Hosts are given without the /v1 suffix.
package ollama
