package compositor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
)

const maxAssetBytes = 20 << 20

// Fetcher retrieves design assets referenced by cart uploads.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads assets over plain HTTP with a hard byte cap.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid design asset url")
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "design asset fetch failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, pkgerrors.New(
			pkgerrors.CodeDependency,
			fmt.Sprintf("design asset fetch returned status %d", res.StatusCode),
		)
	}

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxAssetBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "design asset read failed")
	}
	if len(payload) > maxAssetBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "design asset exceeds size limit")
	}
	return payload, nil
}
