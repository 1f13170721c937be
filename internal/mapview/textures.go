package mapview

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
)

// Tier is one administrative level of ID map.
type Tier int

const (
	TierProvince Tier = iota
	TierDuchy
	TierKingdom
)

func (t Tier) String() string {
	switch t {
	case TierDuchy:
		return "duchy"
	case TierKingdom:
		return "kingdom"
	default:
		return "province"
	}
}

// IDMap is the CPU-side copy of a decoded ID map. Pix holds RGBA bytes,
// four per pixel, row-major with stride 4*Width.
type IDMap struct {
	Width, Height int
	Pix           []uint8
}

func NewIDMap(width, height int) *IDMap {
	return &IDMap{Width: width, Height: height, Pix: make([]uint8, width*height*4)}
}

// IDMapFromRGBA takes ownership of img's pixel buffer.
func IDMapFromRGBA(img *image.RGBA) *IDMap {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return &IDMap{Width: b.Dx(), Height: b.Dy(), Pix: img.Pix}
	}
	m := NewIDMap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		copy(m.Pix[y*b.Dx()*4:], src)
	}
	return m
}

// Set writes id at (x, y) with an opaque alpha channel.
func (m *IDMap) Set(x, y int, id ID) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	i := (y*m.Width + x) * 4
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = id.RGB()
	m.Pix[i+3] = 0xff
}

// At returns the id at (x, y), clamping coordinates to the edge.
func (m *IDMap) At(x, y int) ID {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return NoRegion
	}
	x = clampInt(x, 0, m.Width-1)
	y = clampInt(y, 0, m.Height-1)
	i := (y*m.Width + x) * 4
	return IDFromRGB(m.Pix[i], m.Pix[i+1], m.Pix[i+2])
}

// ScalarMap is a single-channel map normalized to 0..1.
type ScalarMap struct {
	Width, Height int
	Values        []float32
}

func NewScalarMap(width, height int) *ScalarMap {
	return &ScalarMap{Width: width, Height: height, Values: make([]float32, width*height)}
}

// ScalarMapFromImage keeps the red channel (luma for gray images) at
// 16-bit precision.
func ScalarMapFromImage(img image.Image) *ScalarMap {
	b := img.Bounds()
	m := NewScalarMap(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var v uint32
			switch c := img.At(b.Min.X+x, b.Min.Y+y).(type) {
			case color.Gray16:
				v = uint32(c.Y)
			case color.Gray:
				v = uint32(c.Y) * 0x101
			default:
				v, _, _, _ = color.NRGBAModel.Convert(c).RGBA()
			}
			m.Values[y*m.Width+x] = float32(v) / 0xffff
		}
	}
	return m
}

func (m *ScalarMap) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Values[y*m.Width+x] = v
}

// At returns the value at (x, y), clamping coordinates to the edge.
func (m *ScalarMap) At(x, y int) float64 {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return 0
	}
	x = clampInt(x, 0, m.Width-1)
	y = clampInt(y, 0, m.Height-1)
	return float64(m.Values[y*m.Width+x])
}

// TextureSet is everything one frame is composited from. All maps share
// the base image's dimensions; this is assumed, not checked.
type TextureSet struct {
	Base     *image.RGBA
	Province *IDMap
	Duchy    *IDMap
	Kingdom  *IDMap
	Height   *ScalarMap
	Biome    *ScalarMap
	Landmask *ScalarMap
}

// Size returns the base image dimensions.
func (t *TextureSet) Size() (int, int) {
	if t == nil || t.Base == nil {
		return 0, 0
	}
	b := t.Base.Bounds()
	return b.Dx(), b.Dy()
}

func (t *TextureSet) IDs(tier Tier) *IDMap {
	if t == nil {
		return nil
	}
	switch tier {
	case TierDuchy:
		return t.Duchy
	case TierKingdom:
		return t.Kingdom
	default:
		return t.Province
	}
}

// Release drops every buffer. A released set renders and picks nothing.
func (t *TextureSet) Release() {
	if t == nil {
		return
	}
	*t = TextureSet{}
}

// Loaded reports whether every map is present.
func (t *TextureSet) Loaded() bool {
	return t != nil && t.Base != nil && t.Province != nil && t.Duchy != nil &&
		t.Kingdom != nil && t.Height != nil && t.Biome != nil && t.Landmask != nil
}

func (t *TextureSet) baseNearest(x, y int) gg.RGBA {
	b := t.Base.Bounds()
	x = clampInt(x, 0, b.Dx()-1)
	y = clampInt(y, 0, b.Dy()-1)
	i := y*t.Base.Stride + x*4
	p := t.Base.Pix
	return gg.RGB(float64(p[i])/255, float64(p[i+1])/255, float64(p[i+2])/255)
}

// baseBilinear samples the base image with linear filtering at texel
// coordinates (fx, fy), texel centers at +0.5.
func (t *TextureSet) baseBilinear(fx, fy float64) gg.RGBA {
	sx := fx - 0.5
	sy := fy - 0.5
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	tx := sx - float64(x0)
	ty := sy - float64(y0)
	c00 := t.baseNearest(x0, y0)
	c10 := t.baseNearest(x0+1, y0)
	c01 := t.baseNearest(x0, y0+1)
	c11 := t.baseNearest(x0+1, y0+1)
	return c00.Lerp(c10, tx).Lerp(c01.Lerp(c11, tx), ty)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
