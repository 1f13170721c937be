// Package synth generates small planets with a full texture set and
// region records, for demo mode and tests.
package synth

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"strings"

	"github.com/aquilax/go-perlin"

	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/models"
)

const (
	seaLevel     = 0.45
	mountainLine = 0.85
	volcanicLine = 0.97

	duchyIDBase   = 1 << 12
	kingdomIDBase = 1 << 18
)

type Options struct {
	Width, Height int
	Seed          int64
	// CellSize is the spacing of province seeds in pixels.
	CellSize int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 256
	}
	if o.Height <= 0 {
		o.Height = 128
	}
	if o.CellSize <= 0 {
		o.CellSize = 16
	}
	return o
}

// Planet is a generated texture set plus the region records of its three
// tiers.
type Planet struct {
	Textures  *mapview.TextureSet
	Provinces []models.Region
	Duchies   []models.Region
	Kingdoms  []models.Region
}

type seedPoint struct {
	x, y float64
}

// Generate builds a planet. The same options always give the same planet.
func Generate(opts Options) *Planet {
	o := opts.withDefaults()
	w, h := o.Width, o.Height
	rng := rand.New(rand.NewSource(o.Seed))

	heights := normalizedNoise(perlin.NewPerlin(2, 2, 5, o.Seed), w, h, 5)
	moisture := normalizedNoise(perlin.NewPerlin(2, 2, 3, o.Seed+1), w, h, 3)

	cols := (w + o.CellSize - 1) / o.CellSize
	rows := (h + o.CellSize - 1) / o.CellSize
	seeds := make([]seedPoint, cols*rows)
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			seeds[cy*cols+cx] = seedPoint{
				x: (float64(cx) + 0.15 + 0.7*rng.Float64()) * float64(o.CellSize),
				y: (float64(cy) + 0.15 + 0.7*rng.Float64()) * float64(o.CellSize),
			}
		}
	}

	set := &mapview.TextureSet{
		Base:     image.NewRGBA(image.Rect(0, 0, w, h)),
		Province: mapview.NewIDMap(w, h),
		Duchy:    mapview.NewIDMap(w, h),
		Kingdom:  mapview.NewIDMap(w, h),
		Height:   mapview.NewScalarMap(w, h),
		Biome:    mapview.NewScalarMap(w, h),
		Landmask: mapview.NewScalarMap(w, h),
	}

	type stats struct {
		area   int
		biomes [11]int
	}
	cells := make([]stats, cols*rows)

	for y := 0; y < h; y++ {
		lat := math.Abs(float64(y)/float64(h)-0.5) * 2
		for x := 0; x < w; x++ {
			hv := heights[y*w+x]
			land := hv >= seaLevel
			b := biomeAt(hv, moisture[y*w+x], lat, land)

			set.Height.Set(x, y, float32(hv))
			set.Biome.Set(x, y, float32(b)/255)
			if land {
				set.Landmask.Set(x, y, 1)
			}
			set.Base.SetRGBA(x, y, baseColor(b, hv))

			if !land {
				continue
			}
			cx, cy := nearestCell(seeds, cols, rows, o.CellSize, float64(x)+0.5, float64(y)+0.5)
			ci := cy*cols + cx
			cells[ci].area++
			cells[ci].biomes[b]++
			set.Province.Set(x, y, provinceID(cx, cy, cols))
			set.Duchy.Set(x, y, duchyID(cx, cy, cols))
			set.Kingdom.Set(x, y, kingdomID(cx, cy, cols))
		}
	}

	p := &Planet{Textures: set}
	names := newNamer(rng)
	duchies := map[uint32]*models.Region{}
	kingdoms := map[uint32]*models.Region{}
	var duchyOrder, kingdomOrder []uint32

	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			st := cells[cy*cols+cx]
			if st.area == 0 {
				continue
			}
			pid := uint32(provinceID(cx, cy, cols))
			did := uint32(duchyID(cx, cy, cols))
			kid := uint32(kingdomID(cx, cy, cols))

			s := seeds[cy*cols+cx]
			p.Provinces = append(p.Provinces, models.Region{
				ID:           pid,
				Name:         names.next(),
				Area:         models.Ptr(float64(st.area)),
				SeedX:        models.Ptr(s.x),
				SeedY:        models.Ptr(s.y),
				BiomePrimary: models.Ptr(primaryBiome(st.biomes)),
				DuchyID:      models.Ptr(did),
				KingdomID:    models.Ptr(kid),
			})

			d := duchies[did]
			if d == nil {
				d = &models.Region{ID: did, Name: names.next(), KingdomID: models.Ptr(kid), Area: models.Ptr(0.0)}
				duchies[did] = d
				duchyOrder = append(duchyOrder, did)
			}
			d.ProvinceIDs = append(d.ProvinceIDs, pid)
			*d.Area += float64(st.area)

			k := kingdoms[kid]
			if k == nil {
				k = &models.Region{ID: kid, Name: names.next(), Area: models.Ptr(0.0)}
				kingdoms[kid] = k
				kingdomOrder = append(kingdomOrder, kid)
			}
			if len(d.ProvinceIDs) == 1 {
				k.DuchyIDs = append(k.DuchyIDs, did)
			}
			*k.Area += float64(st.area)
		}
	}
	for _, id := range duchyOrder {
		p.Duchies = append(p.Duchies, *duchies[id])
	}
	for _, id := range kingdomOrder {
		p.Kingdoms = append(p.Kingdoms, *kingdoms[id])
	}
	return p
}

// normalizedNoise samples perlin noise over the grid and rescales it to
// 0..1 using the observed min and max.
func normalizedNoise(p *perlin.Perlin, w, h int, scale float64) []float64 {
	vals := make([]float64, w*h)
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := p.Noise2D(float64(x)/float64(w)*scale, float64(y)/float64(h)*scale)
			vals[y*w+x] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i, v := range vals {
		vals[i] = (v - lo) / span
	}
	return vals
}

// biomeAt picks a palette index from height, moisture and latitude
// (0 at the equator, 1 at the poles).
func biomeAt(height, moisture, lat float64, land bool) int {
	switch {
	case !land:
		return 0
	case height >= volcanicLine:
		return 10
	case height >= mountainLine:
		return 8
	case lat > 0.85:
		return 9
	case lat > 0.7:
		return 1
	case lat > 0.55:
		return 2
	case lat < 0.25 && moisture > 0.5:
		return 7
	case lat < 0.25 && moisture < 0.35:
		return 5
	case lat < 0.25:
		return 6
	case moisture > 0.5:
		return 3
	default:
		return 4
	}
}

func baseColor(biome int, height float64) color.RGBA {
	c := mapview.BiomeColor(float64(biome) / 255)
	shade := 0.75 + 0.5*(height-0.5)
	to8 := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v*shade)) * 255))
	}
	return color.RGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: 0xff}
}

func nearestCell(seeds []seedPoint, cols, rows, cell int, px, py float64) (int, int) {
	cx := min(int(px)/cell, cols-1)
	cy := min(int(py)/cell, rows-1)
	bestX, bestY := cx, cy
	best := math.MaxFloat64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := cx+dx, cy+dy
			if nx < 0 || ny < 0 || nx >= cols || ny >= rows {
				continue
			}
			s := seeds[ny*cols+nx]
			d := (s.x-px)*(s.x-px) + (s.y-py)*(s.y-py)
			if d < best {
				best, bestX, bestY = d, nx, ny
			}
		}
	}
	return bestX, bestY
}

func provinceID(cx, cy, cols int) mapview.ID {
	return mapview.ID(cy*cols + cx + 1)
}

func duchyID(cx, cy, cols int) mapview.ID {
	dcols := (cols + 1) / 2
	return mapview.ID(duchyIDBase + (cy/2)*dcols + cx/2)
}

func kingdomID(cx, cy, cols int) mapview.ID {
	kcols := (cols + 3) / 4
	return mapview.ID(kingdomIDBase + (cy/4)*kcols + cx/4)
}

func primaryBiome(counts [11]int) int {
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
}

var (
	onsets = []string{"b", "d", "f", "g", "k", "l", "m", "n", "r", "s", "t", "v", "th", "br", "kr", "st"}
	nuclei = []string{"a", "e", "i", "o", "u", "ae", "ai", "or"}
	codas  = []string{"", "n", "r", "s", "th", "ld", "nd", "m"}
)

type namer struct {
	rng  *rand.Rand
	used map[string]bool
}

func newNamer(rng *rand.Rand) *namer {
	return &namer{rng: rng, used: map[string]bool{}}
}

func (n *namer) next() string {
	for {
		var b strings.Builder
		for i, parts := 0, 2+n.rng.Intn(2); i < parts; i++ {
			b.WriteString(onsets[n.rng.Intn(len(onsets))])
			b.WriteString(nuclei[n.rng.Intn(len(nuclei))])
		}
		b.WriteString(codas[n.rng.Intn(len(codas))])
		name := b.String()
		name = strings.ToUpper(name[:1]) + name[1:]
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
}
