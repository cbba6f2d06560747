package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"purchasekit/internal/platform"
)

// Provider supplies the opaque proof-of-purchase blob. Receipts are fetched
// fresh per finished transaction and never cached.
type Provider interface {
	Fetch(ctx context.Context) (string, error)
}

// HTTPProvider fetches the raw receipt bytes from the platform and returns
// them base64 encoded.
type HTTPProvider struct {
	httpClient *resty.Client
	endpoint   string
	token      *platform.Client
}

func NewHTTPProvider(endpoint string, token *platform.Client) *HTTPProvider {
	c := resty.New()

	return &HTTPProvider{
		httpClient: c.SetTimeout(3 * time.Second),
		endpoint:   endpoint,
		token:      token,
	}
}

func (p *HTTPProvider) Fetch(ctx context.Context) (string, error) {
	req := p.httpClient.R().SetContext(ctx)

	if p.token != nil && p.token.Enabled() {
		accessToken, err := p.token.GetAccessToken(platform.ReceiptGroupID, "receipt", []string{"Fetch"})
		if err != nil {
			return "", fmt.Errorf("receipt access token: %w", err)
		}
		req.SetHeader(platform.AccessTokenHeader, accessToken)
	}

	resp, err := req.Get(p.endpoint)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("receipt non-2xx: %d", resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return "", errors.New("empty receipt body")
	}

	return base64.StdEncoding.EncodeToString(resp.Body()), nil
}

// FileProvider reads the receipt blob from a local path, the way a store
// client reads the receipt file the platform drops inside the app bundle.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Fetch(ctx context.Context) (string, error) {
	if p.path == "" {
		return "", errors.New("receipt path not configured")
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
