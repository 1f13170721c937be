// Package icons turns the icon generator's form into backend requests.
package icons

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ashtrail/devtools/internal/models"
)

var (
	ErrNoPrompts       = errors.New("icons: no prompts")
	ErrEntityNotFound  = errors.New("icons: entity not found")
	ErrUnknownCategory = errors.New("icons: unknown category")
)

// Categories are the registry collections an icon can be assigned to.
var Categories = []string{"traits", "occupations", "items", "skills", "characters"}

const DefaultTemperature = 0.4

// ParsePrompts returns the trimmed, non-empty lines of text.
func ParsePrompts(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Form is what the generator page collects.
type Form struct {
	Prompts     string  `json:"prompts"`
	StylePrompt string  `json:"stylePrompt"`
	BatchName   string  `json:"batchName"`
	Temperature float64 `json:"temperature"`
	Base64Image string  `json:"base64Image"`
}

// BuildGenerateRequest validates the form and builds the batch request.
// The batch name is trimmed and omitted when blank.
func BuildGenerateRequest(f Form) (models.GenerateRequest, error) {
	prompts := ParsePrompts(f.Prompts)
	if len(prompts) == 0 {
		return models.GenerateRequest{}, ErrNoPrompts
	}
	return models.GenerateRequest{
		Prompts:     prompts,
		StylePrompt: strings.TrimSpace(f.StylePrompt),
		Temperature: f.Temperature,
		Base64Image: f.Base64Image,
		BatchName:   strings.TrimSpace(f.BatchName),
	}, nil
}

// EditPrompts splits an icon's stored prompt into the item and style
// fields of the reroll form. Icons saved before the split carry the whole
// prompt as style.
func EditPrompts(icon models.BatchIcon) (item, style string) {
	if icon.ItemPrompt != "" || icon.StylePrompt != "" {
		return icon.ItemPrompt, icon.StylePrompt
	}
	return "", icon.Prompt
}

// BuildRegenerateRequest builds a reroll request. At least one of item or
// style must be non-blank. A per-icon reference image wins over the global
// one.
func BuildRegenerateRequest(item, style string, temperature float64, localImage, globalImage string) (models.RegenerateRequest, error) {
	item, style = strings.TrimSpace(item), strings.TrimSpace(style)
	if item == "" && style == "" {
		return models.RegenerateRequest{}, ErrNoPrompts
	}
	img := localImage
	if img == "" {
		img = globalImage
	}
	return models.RegenerateRequest{ItemPrompt: item, StylePrompt: style, Temperature: temperature, Base64Image: img}, nil
}

// EntityStore reads and writes raw registry records.
type EntityStore interface {
	ListEntities(ctx context.Context, category string) ([]map[string]any, error)
	SaveEntity(ctx context.Context, category string, entity map[string]any) error
}

// AssignIcon sets the icon of one registry entity to iconURL and saves the
// whole record back.
func AssignIcon(ctx context.Context, store EntityStore, category, entityID, iconURL string) error {
	if !slices.Contains(Categories, category) {
		return fmt.Errorf("%w %q", ErrUnknownCategory, category)
	}
	list, err := store.ListEntities(ctx, category)
	if err != nil {
		return fmt.Errorf("list %s: %w", category, err)
	}
	for _, e := range list {
		if id, _ := e["id"].(string); id == entityID {
			e["icon"] = iconURL
			if err := store.SaveEntity(ctx, category, e); err != nil {
				return fmt.Errorf("failed to assign icon: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrEntityNotFound, category, entityID)
}
