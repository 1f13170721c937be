package backend

import (
	"context"
	"net/http"

	"github.com/ashtrail/devtools/internal/models"
)

func (c *Client) ListBatches(ctx context.Context) ([]models.BatchSummary, error) {
	var out []models.BatchSummary
	err := c.do(ctx, http.MethodGet, c.url("/api/icons/batches"), nil, &out)
	return out, err
}

func (c *Client) GetBatch(ctx context.Context, batchID string) (models.BatchManifest, error) {
	var out models.BatchManifest
	err := c.do(ctx, http.MethodGet, c.url("/api/icons/batches/%s", batchID), nil, &out)
	return out, err
}

func (c *Client) GenerateBatch(ctx context.Context, req models.GenerateRequest) (models.BatchManifest, error) {
	var out models.BatchManifest
	err := c.do(ctx, http.MethodPost, c.url("/api/icons/generate-batch"), req, &out)
	return out, err
}

func (c *Client) ExportIcons(ctx context.Context) (models.ExportResult, error) {
	var out models.ExportResult
	err := c.do(ctx, http.MethodPost, c.url("/api/icons/export"), nil, &out)
	return out, err
}

func (c *Client) RenameBatch(ctx context.Context, batchID, newName string) (models.BatchManifest, error) {
	var out models.BatchManifest
	body := models.BatchRenameRequest{NewName: newName}
	err := c.do(ctx, http.MethodPut, c.url("/api/icons/batches/%s/rename", batchID), body, &out)
	return out, err
}

// RegenerateIcon rerolls one icon of a batch and returns the refreshed
// manifest.
func (c *Client) RegenerateIcon(ctx context.Context, batchID, filename string, req models.RegenerateRequest) (models.BatchManifest, error) {
	u := c.url("/api/icons/batches/%s/icons/%s/regenerate", batchID, filename)
	if err := c.do(ctx, http.MethodPost, u, req, nil); err != nil {
		return models.BatchManifest{}, err
	}
	return c.GetBatch(ctx, batchID)
}
