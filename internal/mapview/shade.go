package mapview

import (
	"math"

	"github.com/gogpu/gg"
)

var (
	clearColor      = gg.RGB(0.03, 0.02, 0.03)
	heightLow       = gg.RGB(0.1, 0.3, 0.15)
	heightHigh      = gg.RGB(0.95, 0.9, 0.85)
	heightWater     = gg.RGB(0.05, 0.12, 0.25)
	tierWater       = gg.RGB(0.05, 0.1, 0.2)
	highlightColor  = gg.RGB(1.0, 0.9, 0.4)
	highlightWeight = 0.5
	finerBorderDim  = 0.3
)

// biomePalette is indexed by the quantized biome value; anything past the
// end falls back to volcanic.
var biomePalette = [...]gg.RGBA{
	gg.RGB(0.08, 0.15, 0.35), // ocean
	gg.RGB(0.75, 0.82, 0.85), // tundra
	gg.RGB(0.2, 0.4, 0.3),    // taiga
	gg.RGB(0.15, 0.55, 0.2),  // temperate
	gg.RGB(0.65, 0.7, 0.32),  // grassland
	gg.RGB(0.85, 0.72, 0.4),  // desert
	gg.RGB(0.7, 0.6, 0.3),    // savanna
	gg.RGB(0.1, 0.5, 0.15),   // tropical
	gg.RGB(0.5, 0.45, 0.4),   // mountain
	gg.RGB(0.9, 0.95, 1.0),   // ice
}

var volcanicColor = gg.RGB(0.4, 0.2, 0.1)

var biomeNames = [...]string{
	"ocean", "tundra", "taiga", "temperate", "grassland",
	"desert", "savanna", "tropical", "mountain", "ice",
}

// BiomeName names a biome index the way the palette does.
func BiomeName(i int) string {
	if i >= 0 && i < len(biomeNames) {
		return biomeNames[i]
	}
	return "volcanic"
}

// BiomeColor maps a normalized biome sample to its palette entry.
func BiomeColor(v float64) gg.RGBA {
	b := int(v*255 + 0.5)
	if b >= 0 && b < len(biomePalette) {
		return biomePalette[b]
	}
	return volcanicColor
}

// IDColor derives a stable color for an id from a hash of its bytes.
func IDColor(id ID) gg.RGBA {
	rb, gb, bb := id.RGB()
	r, g, b := float64(rb), float64(gb), float64(bb)
	h := fract(r*0.13 + g*0.57 + b*0.91)
	s := 0.45 + fract(r*0.37+b*0.23)*0.3
	v := 0.55 + fract(g*0.67+r*0.11)*0.35
	return hsv(h, s, v)
}

func hsv(h, s, v float64) gg.RGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 1.0/6:
		r, g, b = c, x, 0
	case h < 2.0/6:
		r, g, b = x, c, 0
	case h < 3.0/6:
		r, g, b = 0, c, x
	case h < 4.0/6:
		r, g, b = 0, x, c
	case h < 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return gg.RGB(r+m, g+m, b+m)
}

func fract(x float64) float64 {
	return x - math.Floor(x)
}

// BorderAt reports whether any of the 8 neighbors of texel position
// (fx, fy), offset by width texels, carries a different id.
func BorderAt(m *IDMap, fx, fy, width float64) bool {
	center := m.At(int(math.Floor(fx)), int(math.Floor(fy)))
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := int(math.Floor(fx + float64(dx)*width))
			ny := int(math.Floor(fy + float64(dy)*width))
			if m.At(nx, ny) != center {
				return true
			}
		}
	}
	return false
}

// IsBorderTexel runs BorderAt from the center of texel (x, y).
func IsBorderTexel(m *IDMap, x, y int, width float64) bool {
	return BorderAt(m, float64(x)+0.5, float64(y)+0.5, width)
}

// fragment is one sample position in texel space.
type fragment struct {
	fx, fy float64
	x, y   int
}

// shader computes the layer color of one fragment before the final blend
// with the darkened base.
type shader interface {
	shade(t *TextureSet, f fragment, base gg.RGBA) gg.RGBA
}

type baseShader struct{}

func (baseShader) shade(_ *TextureSet, _ fragment, base gg.RGBA) gg.RGBA {
	return base
}

type heightShader struct{}

func (heightShader) shade(t *TextureSet, f fragment, _ gg.RGBA) gg.RGBA {
	if t.Landmask.At(f.x, f.y) < 0.5 {
		return heightWater
	}
	return heightLow.Lerp(heightHigh, t.Height.At(f.x, f.y))
}

type biomeShader struct{}

func (biomeShader) shade(t *TextureSet, f fragment, _ gg.RGBA) gg.RGBA {
	return BiomeColor(t.Biome.At(f.x, f.y))
}

// tierShader colors one administrative tier, blackens its own borders
// and dims the borders of the next finer tier underneath.
type tierShader struct {
	tier         Tier
	finer        Tier
	hasFiner     bool
	borderWidth  float64
	highlight    ID
	hasHighlight bool
}

func (s tierShader) shade(t *TextureSet, f fragment, _ gg.RGBA) gg.RGBA {
	ids := t.IDs(s.tier)
	id := ids.At(f.x, f.y)
	c := IDColor(id)

	switch {
	case BorderAt(ids, f.fx, f.fy, s.borderWidth):
		c = gg.Black
	case s.hasFiner && BorderAt(t.IDs(s.finer), f.fx, f.fy, s.borderWidth):
		c = c.Lerp(gg.Black, finerBorderDim)
	}

	if s.hasHighlight && id == s.highlight {
		c = c.Lerp(highlightColor, highlightWeight)
	}

	if t.Landmask.At(f.x, f.y) < 0.5 {
		c = tierWater
	}
	return c
}

// shaderFor selects the shading function for a frame.
func shaderFor(s Settings) shader {
	switch s.Layer {
	case LayerBase:
		return baseShader{}
	case LayerHeight:
		return heightShader{}
	case LayerBiome:
		return biomeShader{}
	case LayerDuchies:
		return tierShader{tier: TierDuchy, finer: TierProvince, hasFiner: true,
			borderWidth: s.BorderWidth, highlight: s.Highlight, hasHighlight: s.HasHighlight}
	case LayerKingdoms:
		return tierShader{tier: TierKingdom, finer: TierDuchy, hasFiner: true,
			borderWidth: s.BorderWidth, highlight: s.Highlight, hasHighlight: s.HasHighlight}
	default:
		return tierShader{tier: TierProvince,
			borderWidth: s.BorderWidth, highlight: s.Highlight, hasHighlight: s.HasHighlight}
	}
}

// composite blends the layer color over the half-darkened base.
func composite(base, layer gg.RGBA, opacity float64) gg.RGBA {
	dark := gg.RGB(base.R*0.5, base.G*0.5, base.B*0.5)
	return dark.Lerp(layer, opacity)
}
