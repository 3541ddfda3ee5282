package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused by every backend client so embedder, reranker
// and LLM calls draw from one keep-alive pool.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client on the shared transport.
// A zero timeout leaves deadlines to the request context.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
