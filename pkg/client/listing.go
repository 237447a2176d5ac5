package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"sweeps/pkg/model"
)

const listingsPath = "/api/v1/listings"

type ListingClient struct {
	httpClient *HttpClient
}

func NewListingClient(baseURL string) *ListingClient {
	return &ListingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *ListingClient) Validate(ctx context.Context, req *model.BatchRequest) (*Response, error) {
	return c.httpClient.POST(ctx, listingsPath+"/validate", req)
}

func (c *ListingClient) Import(ctx context.Context, req *model.BatchRequest) (*Response, error) {
	return c.httpClient.POST(ctx, listingsPath+"/import", req)
}

func (c *ListingClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("%s?limit=%d&offset=%d", listingsPath, limit, offset)
	return c.httpClient.GET(ctx, path)
}

// ImportCSV posts a raw CSV document. query carries the option parameters,
// for example url.Values{"fuzzy": {"true"}}.
func (c *ListingClient) ImportCSV(ctx context.Context, csv []byte, query url.Values, headers map[string]string) (*Response, error) {
	path := listingsPath + "/import"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	h := map[string]string{"Content-Type": "text/csv"}
	for k, v := range headers {
		h[k] = v
	}
	return c.httpClient.POSTRaw(ctx, path, csv, h)
}

func (c *ListingClient) Lookup(ctx context.Context, rawURL string) (*Response, error) {
	return c.httpClient.GET(ctx, listingsPath+"/lookup?url="+url.QueryEscape(rawURL))
}

func (c *ListingClient) GetRun(ctx context.Context, runID string) (*Response, error) {
	return c.httpClient.GET(ctx, listingsPath+"/runs/"+url.PathEscape(runID))
}

func (c *ListingClient) GetRunListings(ctx context.Context, runID string, limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("%s/runs/%s/listings?limit=%d&offset=%d", listingsPath, url.PathEscape(runID), limit, offset)
	return c.httpClient.GET(ctx, path)
}

func (c *ListingClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, maxWait)
}

func (c *ListingClient) Health(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/health")
}
