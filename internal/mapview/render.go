package mapview

import (
	"bytes"
	"image/png"
	"math"
	"runtime"
	"sync"

	"github.com/gogpu/gg"
)

// Renderer composites frames from the installed texture set and answers
// picks against its CPU-side ID buffers.
type Renderer struct {
	mu       sync.RWMutex
	textures *TextureSet
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// SetTextures installs a new texture set and releases the previous one.
// Frames in flight finish on the old set before it is released.
func (r *Renderer) SetTextures(t *TextureSet) {
	r.mu.Lock()
	old := r.textures
	r.textures = t
	if old != nil && old != t {
		old.Release()
	}
	r.mu.Unlock()
}

// Release drops the installed texture set.
func (r *Renderer) Release() {
	r.SetTextures(nil)
}

// Size returns the base image size of the installed set.
func (r *Renderer) Size() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textures.Size()
}

func (r *Renderer) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textures.Loaded()
}

// Render composites one canvasW x canvasH frame.
func (r *Renderer) Render(canvasW, canvasH int, view ViewTransform, s Settings) *gg.Pixmap {
	pm := gg.NewPixmap(canvasW, canvasH)
	pm.Clear(clearColor)

	r.mu.RLock()
	defer r.mu.RUnlock()

	t := r.textures
	if !t.Loaded() || canvasW <= 0 || canvasH <= 0 {
		return pm
	}

	s = s.Normalize()
	imgW, imgH := t.Size()
	inv := view.ScreenToImage(float64(canvasW), float64(canvasH), float64(imgW), float64(imgH))
	sh := shaderFor(s)
	data := pm.Data()

	bands := runtime.GOMAXPROCS(0)
	if bands > canvasH {
		bands = canvasH
	}
	rows := (canvasH + bands - 1) / bands

	var wg sync.WaitGroup
	for y0 := 0; y0 < canvasH; y0 += rows {
		y1 := min(y0+rows, canvasH)
		wg.Go(func() {
			for py := y0; py < y1; py++ {
				for px := 0; px < canvasW; px++ {
					p := inv.TransformPoint(gg.Pt(float64(px)+0.5, float64(py)+0.5))
					if p.X < 0 || p.Y < 0 || p.X > float64(imgW) || p.Y > float64(imgH) {
						continue
					}
					f := fragment{
						fx: p.X, fy: p.Y,
						x: clampInt(int(math.Floor(p.X)), 0, imgW-1),
						y: clampInt(int(math.Floor(p.Y)), 0, imgH-1),
					}
					base := t.baseBilinear(p.X, p.Y)
					c := composite(base, sh.shade(t, f, base), s.Opacity)
					putPixel(data, (py*canvasW+px)*4, c)
				}
			}
		})
	}
	wg.Wait()
	return pm
}

// Pick resolves a screen position to the region id under it in the ID map
// the layer picks from. Black pixels and points outside the image report
// no region.
func (r *Renderer) Pick(canvasW, canvasH int, view ViewTransform, layer Layer, x, y float64) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.textures.IDs(layer.PickTier())
	if ids == nil || ids.Width == 0 || canvasW <= 0 || canvasH <= 0 {
		return NoRegion, false
	}

	inv := view.ScreenToImage(float64(canvasW), float64(canvasH), float64(ids.Width), float64(ids.Height))
	p := inv.TransformPoint(gg.Pt(x, y))
	u := p.X / float64(ids.Width)
	v := p.Y / float64(ids.Height)
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return NoRegion, false
	}

	px := min(int(math.Floor(u*float64(ids.Width))), ids.Width-1)
	py := min(int(math.Floor(v*float64(ids.Height))), ids.Height-1)
	id := ids.At(px, py)
	if id == NoRegion {
		return NoRegion, false
	}
	return id, true
}

// EncodePNG encodes a rendered frame.
func EncodePNG(pm *gg.Pixmap) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, pm.ToImage()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func putPixel(data []uint8, i int, c gg.RGBA) {
	data[i] = to8(c.R)
	data[i+1] = to8(c.G)
	data[i+2] = to8(c.B)
	data[i+3] = 0xff
}

func to8(v float64) uint8 {
	v = v*255 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
