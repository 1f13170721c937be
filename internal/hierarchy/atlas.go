// Package hierarchy holds a planet's province/duchy/kingdom records and
// edits their parent links and names through the backend.
package hierarchy

import (
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/models"
)

// Atlas indexes the three region tiers by id.
type Atlas struct {
	Provinces map[uint32]*models.Region
	Duchies   map[uint32]*models.Region
	Kingdoms  map[uint32]*models.Region
}

func NewAtlas(provinces, duchies, kingdoms []models.Region) *Atlas {
	return &Atlas{
		Provinces: index(provinces),
		Duchies:   index(duchies),
		Kingdoms:  index(kingdoms),
	}
}

func index(list []models.Region) map[uint32]*models.Region {
	m := make(map[uint32]*models.Region, len(list))
	for i := range list {
		r := list[i]
		m[r.ID] = &r
	}
	return m
}

// Tier returns the records of one tier.
func (a *Atlas) Tier(t mapview.Tier) map[uint32]*models.Region {
	if a == nil {
		return nil
	}
	switch t {
	case mapview.TierDuchy:
		return a.Duchies
	case mapview.TierKingdom:
		return a.Kingdoms
	default:
		return a.Provinces
	}
}

func (a *Atlas) table(et models.EntityType) map[uint32]*models.Region {
	switch et {
	case models.EntityProvince:
		return a.Provinces
	case models.EntityDuchy:
		return a.Duchies
	case models.EntityKingdom:
		return a.Kingdoms
	}
	return nil
}

// Parent returns the current parent of a province (its duchy) or duchy
// (its kingdom). ok is false when the entity or its parent is undefined.
func (a *Atlas) Parent(et models.EntityType, id uint32) (uint32, bool) {
	r := a.table(et)[id]
	if r == nil {
		return 0, false
	}
	switch et {
	case models.EntityProvince:
		if r.DuchyID != nil {
			return *r.DuchyID, true
		}
	case models.EntityDuchy:
		if r.KingdomID != nil {
			return *r.KingdomID, true
		}
	}
	return 0, false
}

// setParent moves an entity under target and keeps the parents' child
// lists in step.
func (a *Atlas) setParent(et models.EntityType, id, target uint32) {
	r := a.table(et)[id]
	if r == nil {
		return
	}
	old, hadOld := a.Parent(et, id)

	switch et {
	case models.EntityProvince:
		r.DuchyID = models.Ptr(target)
		if hadOld {
			if p := a.Duchies[old]; p != nil {
				p.ProvinceIDs = slices.DeleteFunc(p.ProvinceIDs, func(v uint32) bool { return v == id })
			}
		}
		if p := a.Duchies[target]; p != nil && !slices.Contains(p.ProvinceIDs, id) {
			p.ProvinceIDs = append(p.ProvinceIDs, id)
		}
		// A province inherits its new duchy's kingdom.
		if p := a.Duchies[target]; p != nil && p.KingdomID != nil {
			r.KingdomID = models.Ptr(*p.KingdomID)
		}
	case models.EntityDuchy:
		r.KingdomID = models.Ptr(target)
		if hadOld {
			if p := a.Kingdoms[old]; p != nil {
				p.DuchyIDs = slices.DeleteFunc(p.DuchyIDs, func(v uint32) bool { return v == id })
			}
		}
		if p := a.Kingdoms[target]; p != nil && !slices.Contains(p.DuchyIDs, id) {
			p.DuchyIDs = append(p.DuchyIDs, id)
		}
		for _, pid := range r.ProvinceIDs {
			if prov := a.Provinces[pid]; prov != nil {
				prov.KingdomID = models.Ptr(target)
			}
		}
	}
}

func (a *Atlas) name(et models.EntityType, id uint32) (string, bool) {
	r := a.table(et)[id]
	if r == nil {
		return "", false
	}
	return r.Name, true
}

func (a *Atlas) setName(et models.EntityType, id uint32, name string) {
	if r := a.table(et)[id]; r != nil {
		r.Name = name
	}
}

// Summary is what the inspector shows for one region.
type Summary struct {
	Tier          string   `json:"tier"`
	ID            uint32   `json:"id"`
	Name          string   `json:"name"`
	Area          *float64 `json:"area,omitempty"`
	Biome         string   `json:"biome,omitempty"`
	Duchy         string   `json:"duchy,omitempty"`
	Kingdom       string   `json:"kingdom,omitempty"`
	ProvinceCount *int     `json:"provinceCount,omitempty"`
	DuchyCount    *int     `json:"duchyCount,omitempty"`
}

var titleCase = cases.Title(language.English)

// Summary describes region id of the given tier. The de jure duchy is
// only shown for provinces and the kingdom for provinces and duchies.
func (a *Atlas) Summary(t mapview.Tier, id uint32) (Summary, bool) {
	r := a.Tier(t)[id]
	if r == nil {
		return Summary{}, false
	}
	s := Summary{Tier: t.String(), ID: r.ID, Name: r.Name, Area: r.Area}
	if r.BiomePrimary != nil {
		s.Biome = titleCase.String(mapview.BiomeName(*r.BiomePrimary))
	}
	if t == mapview.TierProvince && r.DuchyID != nil {
		if d := a.Duchies[*r.DuchyID]; d != nil {
			s.Duchy = d.Name
		}
	}
	if t != mapview.TierKingdom && r.KingdomID != nil {
		if k := a.Kingdoms[*r.KingdomID]; k != nil {
			s.Kingdom = k.Name
		}
	}
	if r.ProvinceIDs != nil {
		s.ProvinceCount = models.Ptr(len(r.ProvinceIDs))
	}
	if r.DuchyIDs != nil {
		s.DuchyCount = models.Ptr(len(r.DuchyIDs))
	}
	return s, true
}
