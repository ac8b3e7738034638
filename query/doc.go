// Package query answers questions against the ingested documents.
//
// A Responder retrieves the chunks most similar to the question, renders them
// with the question into a prompt, and asks the chat model for an answer in a
// single blocking call.
package query
