package backend

import (
	"context"
	"net/http"

	"github.com/ashtrail/devtools/internal/models"
)

func (c *Client) ListCharacters(ctx context.Context) ([]models.Character, error) {
	var out []models.Character
	err := c.do(ctx, http.MethodGet, c.url("/api/data/characters"), nil, &out)
	return out, err
}

// SaveCharacter creates or updates a character by id.
func (c *Client) SaveCharacter(ctx context.Context, ch models.Character) error {
	return c.do(ctx, http.MethodPost, c.url("/api/data/characters"), ch, nil)
}

func (c *Client) ListTraits(ctx context.Context) ([]models.Trait, error) {
	var out []models.Trait
	err := c.do(ctx, http.MethodGet, c.url("/api/data/traits"), nil, &out)
	return out, err
}

func (c *Client) ListOccupations(ctx context.Context) ([]models.Occupation, error) {
	var out []models.Occupation
	err := c.do(ctx, http.MethodGet, c.url("/api/data/occupations"), nil, &out)
	return out, err
}

func (c *Client) ListItems(ctx context.Context) ([]models.Item, error) {
	var out []models.Item
	err := c.do(ctx, http.MethodGet, c.url("/api/data/items"), nil, &out)
	return out, err
}

// ListEntities lists a registry collection as raw records, keeping every
// field the backend sends.
func (c *Client) ListEntities(ctx context.Context, category string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, c.url("/api/data/%s", category), nil, &out)
	return out, err
}

// SaveEntity posts an arbitrary registry entity (trait, item, skill...) to
// its category collection. Used to attach generated icons.
func (c *Client) SaveEntity(ctx context.Context, category string, entity map[string]any) error {
	return c.do(ctx, http.MethodPost, c.url("/api/data/%s", category), entity, nil)
}

// Registry is one snapshot of every game data collection.
type Registry struct {
	Traits      []models.Trait      `json:"traits"`
	Occupations []models.Occupation `json:"occupations"`
	Items       []models.Item       `json:"items"`
	Characters  []models.Character  `json:"characters"`
}

// FetchRegistry loads every collection. A collection that fails to load
// is left empty; the first error is returned alongside what did load.
func (c *Client) FetchRegistry(ctx context.Context) (Registry, error) {
	var (
		reg      Registry
		firstErr error
	)
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	var err error
	reg.Traits, err = c.ListTraits(ctx)
	keep(err)
	reg.Occupations, err = c.ListOccupations(ctx)
	keep(err)
	reg.Items, err = c.ListItems(ctx)
	keep(err)
	reg.Characters, err = c.ListCharacters(ctx)
	keep(err)
	return reg, firstErr
}
