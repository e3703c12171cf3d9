// Package fetcher defines the page fetch contract shared by the plain HTTP
// and headless browser implementations.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Request captures everything needed to fetch a page.
type Request struct {
	URL     string
	Headers http.Header
}

// Response is a fetched page.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}
