package extract

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/retry"
)

const (
	maxRedirects = 5
	maxBodyBytes = 100 << 20 // 100 MiB
)

// Fetcher retrieves URL sources, per spec.md §4.1's URL fetcher constraints.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher builds a Fetcher with the given per-request timeout (default
// 30s, spec.md §4.1).
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		timeout: timeout,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ingesterr.New("extract.Fetcher", ingesterr.NetworkTransient, http.ErrUseLastResponse)
				}
				return nil
			},
		},
	}
}

// Get retrieves url's body, enforcing the redirect depth, size cap and
// timeout, retrying once on a classified-transient error (§4.1).
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	var body []byte
	var contentType string

	op := func(ctx context.Context) error {
		b, ct, err := f.getOnce(ctx, url)
		if err != nil {
			return err
		}
		body, contentType = b, ct
		return nil
	}

	policy := retry.Policy{Base: time.Second, Cap: 5 * time.Second, Jitter: 0.2, MaxAttempts: 2}
	if err := retry.Do(ctx, policy, op); err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

func (f *Fetcher) getOnce(ctx context.Context, url string) ([]byte, string, error) {
	if !isHTTPURL(url) {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.Validation, nil)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.Validation, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.NetworkTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.NetworkTransient, nil)
	}
	if resp.StatusCode >= 400 {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.Validation, nil)
	}

	limited := io.LimitReader(resp.Body, maxBodyBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.NetworkTransient, err)
	}
	if len(data) > maxBodyBytes {
		return nil, "", ingesterr.New("extract.Fetcher.Get", ingesterr.Oversize, nil)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func isHTTPURL(u string) bool {
	return len(u) > 7 && (u[:7] == "http://" || (len(u) > 8 && u[:8] == "https://"))
}
