package atdw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gotourism_loader/config"
)

const (
	productsEndpoint = "/products"
	productEndpoint  = "/product"
	deltaEndpoint    = "/delta"
)

// Client talks to the ATDW Atlas API.
type Client struct {
	*BaseClient
	pageSize int
	language string
}

func NewClient(cfg config.ATDWConfig, log *zap.Logger) *Client {
	language := cfg.Language
	if language == "" {
		language = "ENGLISH"
	}
	return &Client{
		BaseClient: NewBaseClient(cfg, log.Named("atdw")),
		pageSize:   cfg.PageSize,
		language:   language,
	}
}

// SearchPage fetches one page (1-based) and the total result count.
func (c *Client) SearchPage(ctx context.Context, f Filter, page int) ([]ProductSummary, int, error) {
	if f.PageSize == 0 {
		f.PageSize = c.pageSize
	}
	params := f.values()
	params.Set("pge", strconv.Itoa(page))

	body, err := c.get(ctx, productsEndpoint, params)
	if err != nil {
		return nil, 0, err
	}
	var resp searchResponse
	if err := unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal %s page %d: %w", productsEndpoint, page, err)
	}
	return resp.Products, resp.NumberOfResults, nil
}

// Search walks all pages. It stops on an empty page, once numberOfResults is
// reached, after MaxPages, or on a 404 past the first page.
func (c *Client) Search(ctx context.Context, f Filter) ([]ProductSummary, error) {
	var all []ProductSummary
	for page := 1; ; page++ {
		products, total, err := c.SearchPage(ctx, f, page)
		if err != nil {
			if page > 1 && errors.Is(err, ErrNotFound) {
				break
			}
			return all, err
		}
		if len(products) == 0 {
			break
		}
		all = append(all, products...)

		c.log.Debug("fetched search page",
			zap.Int("page", page),
			zap.Int("received", len(all)),
			zap.Int("total", total),
		)
		if f.MaxPages > 0 && page >= f.MaxPages {
			break
		}
		if len(all) >= total {
			break
		}
	}
	return all, nil
}

// FetchDetail returns the full record for one product.
func (c *Client) FetchDetail(ctx context.Context, productID string) (*ProductDetail, error) {
	params := url.Values{}
	params.Set("productId", productID)
	params.Set("mv", c.language)

	body, err := c.get(ctx, productEndpoint, params)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return ParseDetail(trimmed)
}

// Delta lists products changed since the given date (YYYY-MM-DD).
func (c *Client) Delta(ctx context.Context, since string, categories []string) ([]ProductSummary, error) {
	params := url.Values{}
	params.Set("updatedSince", since)
	if codes := CategoryCodes(categories); len(codes) > 0 {
		params.Set("cats", strings.Join(codes, ","))
	}

	body, err := c.get(ctx, deltaEndpoint, params)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", deltaEndpoint, err)
	}
	return resp.Products, nil
}

func unmarshal(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
