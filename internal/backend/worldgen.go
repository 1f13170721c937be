package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ashtrail/devtools/internal/models"
)

// Regions lists one tier ("provinces", "duchies" or "kingdoms") of a
// planet's region records.
func (c *Client) Regions(ctx context.Context, planetID, tier string) ([]models.Region, error) {
	switch tier {
	case "provinces", "duchies", "kingdoms":
	default:
		return nil, fmt.Errorf("backend: unknown region tier %q", tier)
	}
	var out []models.Region
	err := c.do(ctx, http.MethodGet, c.url("/api/planets/%s/worldgen/"+tier+".json", planetID), nil, &out)
	return out, err
}

func (c *Client) Reassign(ctx context.Context, planetID string, req models.ReassignRequest) error {
	return c.do(ctx, http.MethodPost, c.url("/api/worldgen/%s/hierarchy/reassign", planetID), req, nil)
}

func (c *Client) Rename(ctx context.Context, planetID string, req models.RenameRequest) error {
	return c.do(ctx, http.MethodPost, c.url("/api/worldgen/%s/hierarchy/rename", planetID), req, nil)
}
