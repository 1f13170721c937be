// Package character implements the point accounting of the character
// builder.
package character

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ashtrail/devtools/internal/models"
)

const (
	TraitBudget  = 15
	StatBudget   = 18
	DefaultStat  = 3
	MinStat      = 1
	DefaultAge   = 25
	BaseHP       = 10
	HPPerEndure  = 5
	agedTraitTag = "age-"
)

// DefaultStats is every stat at DefaultStat.
func DefaultStats() models.Stats {
	return models.Stats{
		Strength: DefaultStat, Agility: DefaultStat, Intelligence: DefaultStat,
		Wisdom: DefaultStat, Endurance: DefaultStat, Charisma: DefaultStat,
	}
}

// Builder is the in-progress character form. Remaining point counts may
// go negative after loading an over-budget character; that is advisory
// only and never enforced.
type Builder struct {
	ID               string             `json:"id"`
	EditingID        string             `json:"editingId,omitempty"`
	Name             string             `json:"name"`
	Age              int                `json:"age"`
	Gender           string             `json:"gender"`
	History          string             `json:"history"`
	AppearancePrompt string             `json:"appearancePrompt"`
	IsNPC            bool               `json:"isNPC"`
	Traits           []models.Trait     `json:"traits"`
	TraitPoints      int                `json:"traitPoints"`
	Stats            models.Stats       `json:"stats"`
	StatPoints       int                `json:"statPoints"`
	Occupation       *models.Occupation `json:"occupation,omitempty"`

	now func() time.Time
}

func NewBuilder() *Builder {
	b := &Builder{now: time.Now}
	b.Reset()
	return b
}

// Reset returns the form to a fresh character with a new id.
func (b *Builder) Reset() {
	now := b.now
	if now == nil {
		now = time.Now
	}
	*b = Builder{
		ID:          fmt.Sprintf("char-%d", now().UnixMilli()),
		Age:         DefaultAge,
		Gender:      "Male",
		Traits:      []models.Trait{},
		TraitPoints: TraitBudget,
		Stats:       DefaultStats(),
		StatPoints:  StatBudget,
		now:         now,
	}
}

func (b *Builder) hasTrait(id string) int {
	return slices.IndexFunc(b.Traits, func(t models.Trait) bool { return t.ID == id })
}

// ToggleTrait deselects a selected trait, restoring its cost, or selects
// it when the remaining points cover the cost or the cost is negative.
// It reports whether anything changed.
func (b *Builder) ToggleTrait(t models.Trait) bool {
	if i := b.hasTrait(t.ID); i >= 0 {
		b.Traits = slices.Delete(b.Traits, i, i+1)
		b.TraitPoints += t.Cost
		return true
	}
	if b.TraitPoints >= t.Cost || t.Cost < 0 {
		b.Traits = append(b.Traits, t)
		b.TraitPoints -= t.Cost
		return true
	}
	return false
}

// AdjustStat moves one point into (delta 1) or out of (delta -1) a stat.
// Raising needs a free point, lowering stops at MinStat. Other deltas are
// refused.
func (b *Builder) AdjustStat(name string, delta int) bool {
	cur, ok := b.Stats.Get(name)
	if !ok || (delta != 1 && delta != -1) {
		return false
	}
	if delta > 0 && b.StatPoints <= 0 {
		return false
	}
	if delta < 0 && cur <= MinStat {
		return false
	}
	b.Stats.Add(name, delta)
	b.StatPoints -= delta
	return true
}

// SetOccupation selects an occupation; nil clears it.
func (b *Builder) SetOccupation(o *models.Occupation) {
	b.Occupation = o
}

// Load fills the form from a saved character and recomputes the remaining
// points from its traits and stats.
func (b *Builder) Load(c models.Character) {
	now := b.now
	*b = Builder{
		ID:               c.ID,
		EditingID:        c.ID,
		Name:             c.Name,
		Age:              c.Age,
		Gender:           c.Gender,
		History:          c.History,
		AppearancePrompt: c.AppearancePrompt,
		IsNPC:            c.IsNPC,
		Traits:           slices.Clone(c.Traits),
		Stats:            c.Stats,
		Occupation:       c.Occupation,
		now:              now,
	}
	if b.Traits == nil {
		b.Traits = []models.Trait{}
	}
	used := 0
	for _, t := range b.Traits {
		used += t.Cost
	}
	b.TraitPoints = TraitBudget - used
	b.StatPoints = StatBudget - (c.Stats.Total() - StatBudget)
}

// Build produces the record to save: hp and maxHp from endurance, level 1,
// no experience and an empty inventory.
func (b *Builder) Build() models.Character {
	hp := BaseHP + b.Stats.Endurance*HPPerEndure
	return models.Character{
		ID:               b.ID,
		IsNPC:            b.IsNPC,
		Name:             b.Name,
		Age:              b.Age,
		Gender:           b.Gender,
		History:          b.History,
		AppearancePrompt: b.AppearancePrompt,
		Stats:            b.Stats,
		Traits:           slices.Clone(b.Traits),
		Occupation:       b.Occupation,
		HP:               hp,
		MaxHP:            hp,
		XP:               0,
		Level:            1,
		Inventory:        []models.Item{},
	}
}

// Store is where characters are saved and listed.
type Store interface {
	SaveCharacter(ctx context.Context, c models.Character) error
	ListCharacters(ctx context.Context) ([]models.Character, error)
}

// Save builds and stores the character, then returns the refreshed list.
// On success the form switches to editing the saved id.
func (b *Builder) Save(ctx context.Context, store Store) ([]models.Character, error) {
	c := b.Build()
	if err := store.SaveCharacter(ctx, c); err != nil {
		return nil, fmt.Errorf("save character %s: %w", c.ID, err)
	}
	b.EditingID = c.ID
	list, err := store.ListCharacters(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh characters: %w", err)
	}
	return list, nil
}

// TraitGroups are the selectable traits split by type.
type TraitGroups struct {
	Positive []models.Trait `json:"positive"`
	Negative []models.Trait `json:"negative"`
	Neutral  []models.Trait `json:"neutral"`
}

// FilterTraits drops age traits and already selected ones, keeps those
// whose name or description contains search (case-insensitive) and groups
// the rest by type.
func (b *Builder) FilterTraits(all []models.Trait, search string) TraitGroups {
	s := strings.ToLower(search)
	var g TraitGroups
	for _, t := range all {
		if strings.HasPrefix(t.ID, agedTraitTag) || b.hasTrait(t.ID) >= 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(t.Name), s) && !strings.Contains(strings.ToLower(t.Description), s) {
			continue
		}
		switch t.Type {
		case models.TraitPositive:
			g.Positive = append(g.Positive, t)
		case models.TraitNegative:
			g.Negative = append(g.Negative, t)
		case models.TraitNeutral:
			g.Neutral = append(g.Neutral, t)
		}
	}
	return g
}

// FilterOccupations keeps the occupations of one category; "ALL" or ""
// keeps everything.
func FilterOccupations(all []models.Occupation, category string) []models.Occupation {
	if category == "" || category == "ALL" {
		return all
	}
	var out []models.Occupation
	for _, o := range all {
		if o.Category == category {
			out = append(out, o)
		}
	}
	return out
}
