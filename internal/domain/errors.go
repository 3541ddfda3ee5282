package domain

import "errors"

var (
	// ErrConfiguration marks a missing credential, unknown provider or
	// invalid setting. Raised before any backend is contacted.
	ErrConfiguration = errors.New("configuration error")

	// ErrBackendInvocation marks a failed call to an LLM, embedder,
	// reranker or vector store.
	ErrBackendInvocation = errors.New("backend invocation failed")

	// ErrNoPhrasingSucceeded is returned when every fan-out search failed.
	ErrNoPhrasingSucceeded = errors.New("no query phrasing produced search results")

	// ErrMalformedStream is returned when a streaming response carried data
	// but none of it could be parsed.
	ErrMalformedStream = errors.New("malformed stream")

	// ErrEmptyQuery rejects blank questions.
	ErrEmptyQuery = errors.New("query is empty")
)
