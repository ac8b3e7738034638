// Package server provides the HTTP API for docrag.
//
// POST /query takes the raw request body as the question and answers with
// plain text. GET /health reports liveness and GET /metrics serves
// Prometheus metrics.
package server
