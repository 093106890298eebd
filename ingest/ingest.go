package ingest

import (
	"context"
	"fmt"
	"time"
)

// Document is the readable content of one ingested URL.
type Document struct {
	Title    string
	URL      string
	Domain   string
	Markdown string
}

// Ingester fetches a URL and extracts its readable content.
type Ingester struct {
	fetcher   *Fetcher
	converter *Converter
}

// NewIngester creates an Ingester with default fetch limits.
func NewIngester(timeout time.Duration) *Ingester {
	return &Ingester{
		fetcher:   NewFetcher(timeout, DefaultUserAgent, DefaultMaxContentSize),
		converter: NewConverter(),
	}
}

// Ingest fetches the URL and converts the page to a markdown document.
func (i *Ingester) Ingest(ctx context.Context, rawURL string) (*Document, error) {
	result, err := i.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	converted, err := i.converter.Convert(result.Body, rawURL)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", rawURL, err)
	}
	if converted.Markdown == "" {
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	return &Document{
		Title:    converted.Title,
		URL:      rawURL,
		Domain:   ExtractDomain(rawURL),
		Markdown: converted.Markdown,
	}, nil
}
