package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"call-audit-platform/internal/domain/ports/adapter"
)

var _ adapter.RecordingFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads recordings over HTTP(S).
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0) // retries are the caller's concern
	return &HTTPFetcher{client: c}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*adapter.Recording, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch recording %s: %w", url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("fetch recording %s: http %d", url, resp.StatusCode())
	}
	return &adapter.Recording{
		Data:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}
