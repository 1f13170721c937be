package models

// Stats are the six base attributes of a character.
type Stats struct {
	Strength     int `json:"strength"`
	Agility      int `json:"agility"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Endurance    int `json:"endurance"`
	Charisma     int `json:"charisma"`
}

// StatNames lists the stats in display order.
var StatNames = []string{"strength", "agility", "intelligence", "wisdom", "endurance", "charisma"}

// Get returns the named stat and whether the name is known.
func (s Stats) Get(name string) (int, bool) {
	p := s.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Add adds delta to the named stat. Unknown names are ignored.
func (s *Stats) Add(name string, delta int) bool {
	p := s.field(name)
	if p == nil {
		return false
	}
	*p += delta
	return true
}

func (s Stats) Total() int {
	return s.Strength + s.Agility + s.Intelligence + s.Wisdom + s.Endurance + s.Charisma
}

func (s *Stats) field(name string) *int {
	switch name {
	case "strength":
		return &s.Strength
	case "agility":
		return &s.Agility
	case "intelligence":
		return &s.Intelligence
	case "wisdom":
		return &s.Wisdom
	case "endurance":
		return &s.Endurance
	case "charisma":
		return &s.Charisma
	}
	return nil
}

type TraitType string

const (
	TraitPositive TraitType = "positive"
	TraitNegative TraitType = "negative"
	TraitNeutral  TraitType = "neutral"
)

// Trait cost is positive for traits that spend points and negative for
// traits that grant them.
type Trait struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	Type        TraitType `json:"type"`
	Impact      string    `json:"impact,omitempty"`
	Icon        string    `json:"icon,omitempty"`
}

type Occupation struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription"`
	Perks            []string `json:"perks"`
	Icon             string   `json:"icon,omitempty"`
}

type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Effect      string `json:"effect,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type Character struct {
	ID               string      `json:"id"`
	IsNPC            bool        `json:"isNPC"`
	Name             string      `json:"name"`
	Age              int         `json:"age"`
	Gender           string      `json:"gender"`
	History          string      `json:"history"`
	AppearancePrompt string      `json:"appearancePrompt"`
	PortraitURL      string      `json:"portraitUrl,omitempty"`
	Stats            Stats       `json:"stats"`
	Traits           []Trait     `json:"traits"`
	Occupation       *Occupation `json:"occupation,omitempty"`
	HP               int         `json:"hp"`
	MaxHP            int         `json:"maxHp"`
	XP               int         `json:"xp"`
	Level            int         `json:"level"`
	Inventory        []Item      `json:"inventory"`
	Icon             string      `json:"icon,omitempty"`
}
