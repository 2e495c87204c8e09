package adapter

import "context"

// Recording is a fetched remote audio file.
type Recording struct {
	Data        []byte
	ContentType string
}

// RecordingFetcher downloads a recording by URL. Non-2xx responses are
// returned as errors.
type RecordingFetcher interface {
	Fetch(ctx context.Context, url string) (*Recording, error)
}
