package mapview

import "fmt"

// Layer selects what the renderer composites over the base image.
type Layer int

const (
	LayerProvinces Layer = iota
	LayerDuchies
	LayerKingdoms
	LayerBiome
	LayerHeight
	LayerBase
)

var layerNames = [...]string{"provinces", "duchies", "kingdoms", "biome", "height", "base"}

// Layers lists every layer in toolbar order.
var Layers = []Layer{LayerProvinces, LayerDuchies, LayerKingdoms, LayerBiome, LayerHeight, LayerBase}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

func ParseLayer(s string) (Layer, error) {
	for i, name := range layerNames {
		if name == s {
			return Layer(i), nil
		}
	}
	return LayerProvinces, fmt.Errorf("unknown layer %q", s)
}

// IsTier reports whether the layer shows an administrative tier.
func (l Layer) IsTier() bool {
	return l == LayerProvinces || l == LayerDuchies || l == LayerKingdoms
}

// PickTier is the ID map consulted when picking on this layer.
func (l Layer) PickTier() Tier {
	switch l {
	case LayerDuchies:
		return TierDuchy
	case LayerKingdoms:
		return TierKingdom
	default:
		return TierProvince
	}
}

const (
	DefaultOpacity     = 0.85
	DefaultBorderWidth = 1.0
	MinBorderWidth     = 0.5
	MaxBorderWidth     = 3.0
)

// Settings are the per-frame render controls.
type Settings struct {
	Layer        Layer
	Opacity      float64
	BorderWidth  float64
	Highlight    ID
	HasHighlight bool
}

func DefaultSettings() Settings {
	return Settings{
		Layer:       LayerProvinces,
		Opacity:     DefaultOpacity,
		BorderWidth: DefaultBorderWidth,
	}
}

// Normalize clamps opacity to [0,1] and border width to >= 0.
func (s Settings) Normalize() Settings {
	if s.Opacity < 0 {
		s.Opacity = 0
	} else if s.Opacity > 1 {
		s.Opacity = 1
	}
	if s.BorderWidth < 0 {
		s.BorderWidth = 0
	}
	return s
}
