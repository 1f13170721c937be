package inspector

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"slices"
	"sync"

	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/models"
	"github.com/ashtrail/devtools/internal/synth"
	"github.com/ashtrail/devtools/internal/texload"
)

// Demo serves generated planets in place of the backend. Each planet id
// seeds its own planet, so switching ids switches worlds. Hierarchy edits
// are accepted and only logged.
type Demo struct {
	Seed    int64
	Options synth.Options

	mu      sync.Mutex
	planets map[string]*synth.Planet
}

func NewDemo(seed int64) *Demo {
	return &Demo{Seed: seed, planets: map[string]*synth.Planet{}}
}

func (d *Demo) planet(planetID string) *synth.Planet {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.planets[planetID]; ok {
		return p
	}
	h := fnv.New64a()
	h.Write([]byte(planetID))
	opts := d.Options
	opts.Seed = d.Seed ^ int64(h.Sum64())
	p := synth.Generate(opts)
	d.planets[planetID] = p
	return p
}

// Load returns a fresh copy of the planet's textures, since the renderer
// releases the sets it replaces.
func (d *Demo) Load(ctx context.Context, src texload.Source) (*mapview.TextureSet, error) {
	if src.PlanetID == "" {
		return nil, fmt.Errorf("demo: planet id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneSet(d.planet(src.PlanetID).Textures), nil
}

func (d *Demo) Regions(ctx context.Context, planetID, tier string) ([]models.Region, error) {
	p := d.planet(planetID)
	switch tier {
	case "provinces":
		return cloneRegions(p.Provinces), nil
	case "duchies":
		return cloneRegions(p.Duchies), nil
	case "kingdoms":
		return cloneRegions(p.Kingdoms), nil
	}
	return nil, fmt.Errorf("demo: unknown region tier %q", tier)
}

func (d *Demo) Reassign(ctx context.Context, planetID string, req models.ReassignRequest) error {
	log.Printf("demo: reassign %s %d -> %d on %s", req.EntityType, req.EntityID, req.TargetID, planetID)
	return nil
}

func (d *Demo) Rename(ctx context.Context, planetID string, req models.RenameRequest) error {
	log.Printf("demo: rename %s %d to %q on %s", req.EntityType, req.EntityID, req.Name, planetID)
	return nil
}

// cloneRegions copies the child id lists too; the atlas edits them in
// place.
func cloneRegions(list []models.Region) []models.Region {
	out := make([]models.Region, len(list))
	for i, r := range list {
		r.ProvinceIDs = slices.Clone(r.ProvinceIDs)
		r.DuchyIDs = slices.Clone(r.DuchyIDs)
		out[i] = r
	}
	return out
}

func cloneSet(t *mapview.TextureSet) *mapview.TextureSet {
	base := *t.Base
	base.Pix = append([]uint8(nil), t.Base.Pix...)
	return &mapview.TextureSet{
		Base:     &base,
		Province: cloneIDs(t.Province),
		Duchy:    cloneIDs(t.Duchy),
		Kingdom:  cloneIDs(t.Kingdom),
		Height:   cloneScalars(t.Height),
		Biome:    cloneScalars(t.Biome),
		Landmask: cloneScalars(t.Landmask),
	}
}

func cloneIDs(m *mapview.IDMap) *mapview.IDMap {
	c := *m
	c.Pix = append([]uint8(nil), m.Pix...)
	return &c
}

func cloneScalars(m *mapview.ScalarMap) *mapview.ScalarMap {
	c := *m
	c.Values = append([]float32(nil), m.Values...)
	return &c
}
