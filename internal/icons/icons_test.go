package icons

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ashtrail/devtools/internal/models"
)

func TestParsePrompts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank lines", "\n  \n\t\n", nil},
		{"trims", "  rusty sword \n\nwooden shield\r\n", []string{"rusty sword", "wooden shield"}},
		{"single", "potion", []string{"potion"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePrompts(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildGenerateRequest(t *testing.T) {
	if _, err := BuildGenerateRequest(Form{Prompts: " \n "}); !errors.Is(err, ErrNoPrompts) {
		t.Fatalf("err = %v", err)
	}

	req, err := BuildGenerateRequest(Form{
		Prompts:     "axe\nbow",
		StylePrompt: " pixel art ",
		BatchName:   "   ",
		Temperature: DefaultTemperature,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Prompts) != 2 || req.StylePrompt != "pixel art" || req.BatchName != "" || req.Temperature != 0.4 {
		t.Errorf("req = %+v", req)
	}
}

func TestRegenerate(t *testing.T) {
	item, style := EditPrompts(models.BatchIcon{Prompt: "old full prompt"})
	if item != "" || style != "old full prompt" {
		t.Errorf("legacy split = %q / %q", item, style)
	}

	if _, err := BuildRegenerateRequest(" ", "", 0.4, "", ""); !errors.Is(err, ErrNoPrompts) {
		t.Errorf("err = %v", err)
	}
	req, err := BuildRegenerateRequest("axe", "", 0.4, "", "global")
	if err != nil || req.Base64Image != "global" {
		t.Errorf("req = %+v, err %v", req, err)
	}
	req, _ = BuildRegenerateRequest("axe", "", 0.4, "local", "global")
	if req.Base64Image != "local" {
		t.Errorf("local image lost: %+v", req)
	}
}

type memEntities struct {
	lists map[string][]map[string]any
	saved map[string]any
}

func (m *memEntities) ListEntities(ctx context.Context, category string) ([]map[string]any, error) {
	return m.lists[category], nil
}

func (m *memEntities) SaveEntity(ctx context.Context, category string, entity map[string]any) error {
	m.saved = entity
	return nil
}

func TestAssignIcon(t *testing.T) {
	store := &memEntities{lists: map[string][]map[string]any{
		"items": {
			{"id": "sword", "name": "Sword", "damage": 4.0},
			{"id": "bow", "name": "Bow"},
		},
	}}
	if err := AssignIcon(context.Background(), store, "items", "sword", "/icons/b1/sword.png"); err != nil {
		t.Fatal(err)
	}
	if store.saved["icon"] != "/icons/b1/sword.png" || store.saved["damage"] != 4.0 {
		t.Errorf("saved = %v", store.saved)
	}

	if err := AssignIcon(context.Background(), store, "items", "axe", "x"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("missing entity err = %v", err)
	}
	if err := AssignIcon(context.Background(), store, "planets", "p", "x"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("bad category err = %v", err)
	}
}
