package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/p-blackswan/geoai-console/internal/models"
)

// getPage fetches a list endpoint. The server returns the items under key
// with the pagination fields beside it:
//
//	{"projects": [...], "page": 1, "pages": 3, "total": 25, "limit": 10}
func getPage[E any](ctx context.Context, c *Client, r call, key string) (models.Page[E], error) {
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return models.Page[E]{}, err
	}
	return decodePage[E](raw, key)
}

func decodePage[E any](raw []byte, key string) (models.Page[E], error) {
	var page models.Page[E]
	if err := json.Unmarshal(raw, &page.Pagination); err != nil {
		return page, fmt.Errorf("decoding pagination: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return page, fmt.Errorf("decoding list: %w", err)
	}
	if items, ok := fields[key]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return page, fmt.Errorf("decoding %s: %w", key, err)
		}
	}
	if page.Items == nil {
		page.Items = []E{}
	}
	return page, nil
}
