// Package config loads docrag settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with DOCRAG_. The first underscore after
// the prefix separates the section from the field name:
//
//	DOCRAG_SERVER_ADDR       -> server.addr
//	DOCRAG_AI_CHAT_MODEL     -> ai.chat_model
//	DOCRAG_STORE_TOP_K       -> store.top_k
package config
