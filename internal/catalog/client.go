package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/thoas/go-funk"

	"purchasekit/internal/platform"
	"purchasekit/internal/types"
)

// Client resolves product identifiers to purchasable product descriptors.
type Client interface {
	Resolve(ctx context.Context, ids []string) (*types.ResolveResult, error)
}

type resolveRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type resolveResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Products []types.ProductDescriptor `json:"products"`
	} `json:"data"`
}

// HTTPClient resolves products against the platform catalog endpoint.
type HTTPClient struct {
	httpClient *resty.Client
	endpoint   string
	token      *platform.Client
}

func NewHTTPClient(endpoint string, token *platform.Client) *HTTPClient {
	c := resty.New()

	return &HTTPClient{
		httpClient: c.SetTimeout(3 * time.Second),
		endpoint:   endpoint,
		token:      token,
	}
}

// Resolve posts the id set and splits the response into resolved descriptors
// and the ids the catalog did not recognize.
func (c *HTTPClient) Resolve(ctx context.Context, ids []string) (*types.ResolveResult, error) {
	if len(ids) == 0 {
		return nil, errors.New("no product ids to resolve")
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(resolveRequest{ProductIDs: ids})

	if c.token != nil && c.token.Enabled() {
		accessToken, err := c.token.GetAccessToken(platform.CatalogGroupID, "product", []string{"Resolve"})
		if err != nil {
			return nil, fmt.Errorf("catalog access token: %w", err)
		}
		req.SetHeader(platform.AccessTokenHeader, accessToken)
	}

	resp, err := req.Post(c.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("catalog non-2xx: %d", resp.StatusCode())
	}

	var body resolveResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, err
	}
	if body.Code != 0 {
		return nil, fmt.Errorf("catalog bad response code=%d message=%s", body.Code, body.Message)
	}

	resolved := body.Data.Products
	resolvedIDs := funk.Map(resolved, func(p types.ProductDescriptor) string { return p.ID }).([]string)

	var unresolved []string
	for _, id := range ids {
		if !funk.ContainsString(resolvedIDs, id) {
			unresolved = append(unresolved, id)
		}
	}
	if len(unresolved) > 0 {
		log.Printf("Catalog left %d of %d ids unresolved: %v", len(unresolved), len(ids), unresolved)
	}

	return &types.ResolveResult{Resolved: resolved, Unresolved: unresolved}, nil
}
