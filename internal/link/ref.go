package link

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ref is one entry of the Prismic API ref listing.
type ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// masterRef fetches GET <base>/api and returns the ref whose id is "master".
func (l *Link) masterRef(ctx context.Context) (string, error) {
	apiURL := l.baseURL + "/api"
	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", &RemoteFetchError{URL: apiURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return "", &RemoteFetchError{URL: apiURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RemoteFetchError{URL: apiURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &RemoteFetchError{URL: apiURL, Err: err}
	}
	var listing struct {
		Refs []ref `json:"refs"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return "", &RemoteFetchError{URL: apiURL, Err: fmt.Errorf("decode refs: %w", err)}
	}
	for _, r := range listing.Refs {
		if r.ID == "master" {
			if r.Ref == "" {
				break
			}
			return r.Ref, nil
		}
	}
	l.logger.Warn("ref listing has no master entry", zap.Int("refs", len(listing.Refs)))
	return "", &RemoteFetchError{URL: apiURL, Err: ErrNoMasterRef}
}
