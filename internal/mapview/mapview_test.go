package mapview

import (
	"image"
	"math"
	"testing"

	"github.com/gogpu/gg"
)

// newTestSet builds a w x h set with a black base, all land, and every
// ID map filled with id.
func newTestSet(w, h int, id ID) *TextureSet {
	t := &TextureSet{
		Base:     image.NewRGBA(image.Rect(0, 0, w, h)),
		Province: NewIDMap(w, h),
		Duchy:    NewIDMap(w, h),
		Kingdom:  NewIDMap(w, h),
		Height:   NewScalarMap(w, h),
		Biome:    NewScalarMap(w, h),
		Landmask: NewScalarMap(w, h),
	}
	for i := 3; i < len(t.Base.Pix); i += 4 {
		t.Base.Pix[i] = 0xff
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t.Province.Set(x, y, id)
			t.Duchy.Set(x, y, id)
			t.Kingdom.Set(x, y, id)
			t.Landmask.Set(x, y, 1)
		}
	}
	return t
}

func TestIDRoundTrip(t *testing.T) {
	for r := 0; r < 256; r++ {
		for g := 0; g < 256; g++ {
			for b := 0; b < 256; b++ {
				id := IDFromRGB(uint8(r), uint8(g), uint8(b))
				if want := ID(r | g<<8 | b<<16); id != want {
					t.Fatalf("IDFromRGB(%d,%d,%d) = %d, want %d", r, g, b, id, want)
				}
				cr, cg, cb := id.RGB()
				if int(cr) != r || int(cg) != g || int(cb) != b {
					t.Fatalf("ID(%d).RGB() = (%d,%d,%d), want (%d,%d,%d)", id, cr, cg, cb, r, g, b)
				}
			}
		}
	}
}

func TestHighlightPriority(t *testing.T) {
	sel, hov := ID(1), ID(2)
	tests := []struct {
		name     string
		selected *ID
		hovered  *ID
		bulk     []ID
		want     ID
		wantOK   bool
	}{
		{"selected wins", &sel, &hov, []ID{3}, 1, true},
		{"hovered next", nil, &hov, []ID{3}, 2, true},
		{"last bulk", nil, nil, []ID{3, 4}, 4, true},
		{"nothing", nil, nil, nil, NoRegion, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Highlight(tt.selected, tt.hovered, tt.bulk)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Highlight() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseLayer(t *testing.T) {
	for _, l := range Layers {
		got, err := ParseLayer(l.String())
		if err != nil || got != l {
			t.Errorf("ParseLayer(%q) = (%v, %v), want %v", l.String(), got, err, l)
		}
	}
	if _, err := ParseLayer("counties"); err == nil {
		t.Error("ParseLayer(counties) should fail")
	}
	if LayerDuchies.PickTier() != TierDuchy || LayerKingdoms.PickTier() != TierKingdom ||
		LayerBiome.PickTier() != TierProvince {
		t.Error("unexpected pick tiers")
	}
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name           string
		cw, ch, iw, ih float64
		want           Quad
	}{
		{"wide canvas", 200, 100, 100, 100, Quad{X: 50, Y: 0, W: 100, H: 100}},
		{"tall canvas", 100, 200, 100, 100, Quad{X: 0, Y: 50, W: 100, H: 100}},
		{"exact fit", 400, 200, 2, 1, Quad{X: 0, Y: 0, W: 400, H: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Letterbox(tt.cw, tt.ch, tt.iw, tt.ih); got != tt.want {
				t.Errorf("Letterbox() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestZoomKeepsPointUnderCursor(t *testing.T) {
	const cw, ch, iw, ih = 800.0, 600.0, 512.0, 256.0
	tests := []struct {
		name   string
		view   ViewTransform
		cx, cy float64
		deltas []float64
	}{
		{"zoom in from identity", NewViewTransform(), 400, 300, []float64{-1, -1, -1}},
		{"zoom out panned", ViewTransform{PanX: -120, PanY: 40, Zoom: 2}, 10, 590, []float64{1, 1}},
		{"hits max clamp", ViewTransform{PanX: 5, PanY: 5, Zoom: 7.9}, 333, 111, []float64{-1, -1, -1}},
		{"hits min clamp", ViewTransform{Zoom: 0.55}, 700, 20, []float64{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.view
			for _, d := range tt.deltas {
				cursor := gg.Pt(tt.cx, tt.cy)
				before := v.ScreenToImage(cw, ch, iw, ih).TransformPoint(cursor)
				v.ZoomAt(tt.cx, tt.cy, d)
				after := v.ScreenToImage(cw, ch, iw, ih).TransformPoint(cursor)
				if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
					t.Fatalf("image point moved from %+v to %+v", before, after)
				}
				if v.Zoom < MinZoom || v.Zoom > MaxZoom {
					t.Fatalf("zoom %v outside [%v, %v]", v.Zoom, MinZoom, MaxZoom)
				}
			}
		})
	}
}

func TestZoomSteps(t *testing.T) {
	v := NewViewTransform()
	v.ZoomAt(0, 0, -3)
	if math.Abs(v.Zoom-1.1) > 1e-12 {
		t.Errorf("zoom in = %v, want 1.1", v.Zoom)
	}
	v = NewViewTransform()
	v.ZoomAt(0, 0, 3)
	if math.Abs(v.Zoom-0.9) > 1e-12 {
		t.Errorf("zoom out = %v, want 0.9", v.Zoom)
	}
}

func TestClickClassification(t *testing.T) {
	tests := []struct {
		name       string
		up         Pointer
		inspecting bool
		bulk       bool
		want       OutcomeKind
	}{
		{"still press selects", Pointer{X: 100, Y: 100}, true, false, Select},
		{"4px both axes selects", Pointer{X: 104, Y: 96}, true, false, Select},
		{"5px x is a drag", Pointer{X: 105, Y: 100}, true, false, None},
		{"5px y is a drag", Pointer{X: 100, Y: 95}, true, false, None},
		{"shift toggles", Pointer{X: 101, Y: 101, Shift: true}, true, false, BulkToggle},
		{"ctrl toggles", Pointer{X: 100, Y: 100, Ctrl: true}, true, false, BulkToggle},
		{"meta toggles", Pointer{X: 100, Y: 100, Meta: true}, true, false, BulkToggle},
		{"bulk mode toggles", Pointer{X: 100, Y: 100}, true, true, BulkToggle},
		{"not inspecting", Pointer{X: 100, Y: 100}, false, false, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.PointerDown(Pointer{X: 100, Y: 100})
			got := c.PointerUp(tt.up, tt.inspecting, tt.bulk)
			if got.Kind != tt.want {
				t.Errorf("PointerUp() kind = %v, want %v", got.Kind, tt.want)
			}
			wantState := Idle
			if tt.want != None {
				wantState = ClickPending
			}
			if c.State() != wantState {
				t.Errorf("state = %v, want %v", c.State(), wantState)
			}
		})
	}
}

func TestDragPans(t *testing.T) {
	c := NewController()
	c.PointerDown(Pointer{X: 10, Y: 10})
	c.PointerMove(Pointer{X: 40, Y: -5}, true, nil, 100, 100, LayerProvinces)
	if v := c.View(); v.PanX != 30 || v.PanY != -15 {
		t.Errorf("pan = (%v, %v), want (30, -15)", v.PanX, v.PanY)
	}
	if out := c.PointerUp(Pointer{X: 40, Y: -5}, true, false); out.Kind != None {
		t.Errorf("drag release reported %v", out.Kind)
	}
}

// provinceFixture is a 20x20 set where province (10,10) is id 5 and every
// pixel from x=11 on is id 6.
func provinceFixture() *TextureSet {
	set := newTestSet(20, 20, 5)
	for y := 0; y < 20; y++ {
		for x := 11; x < 20; x++ {
			set.Province.Set(x, y, 6)
		}
	}
	return set
}

func TestHoverAndBorderScenario(t *testing.T) {
	set := provinceFixture()
	r := NewRenderer()
	r.SetTextures(set)

	c := NewController()
	out := c.PointerMove(Pointer{X: 10.5, Y: 10.5}, true, r, 20, 20, LayerProvinces)
	if out.Kind != Hover || !out.OK || out.ID != 5 {
		t.Fatalf("hover outcome = %+v, want id 5", out)
	}
	if again := c.PointerMove(Pointer{X: 10.7, Y: 10.2}, true, r, 20, 20, LayerProvinces); again.Kind != None {
		t.Errorf("unchanged hover reported %+v", again)
	}
	if out := c.PointerMove(Pointer{X: 11.5, Y: 10.5}, true, r, 20, 20, LayerProvinces); out.ID != 6 {
		t.Errorf("hover at (11,10) = %+v, want id 6", out)
	}

	if !IsBorderTexel(set.Province, 10, 10, 1) {
		t.Error("texel (10,10) should be a province border")
	}
	if IsBorderTexel(set.Province, 3, 3, 1) {
		t.Error("texel (3,3) should not be a border")
	}

	frame := r.Render(20, 20, NewViewTransform(), DefaultSettings())
	if got := frame.GetPixel(10, 10); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("border pixel = %+v, want black", got)
	}
	if got := frame.GetPixel(3, 3); got.R+got.G+got.B == 0 {
		t.Error("interior pixel rendered black")
	}
}

func TestPick(t *testing.T) {
	set := newTestSet(4, 4, 7)
	set.Province.Set(0, 0, NoRegion)
	set.Duchy.Set(2, 2, 9)
	r := NewRenderer()
	r.SetTextures(set)
	view := NewViewTransform()

	tests := []struct {
		name   string
		layer  Layer
		x, y   float64
		want   ID
		wantOK bool
	}{
		{"province interior", LayerProvinces, 1.5, 1.5, 7, true},
		{"black is no region", LayerProvinces, 0.5, 0.5, NoRegion, false},
		{"duchy tier", LayerDuchies, 2.5, 2.5, 9, true},
		{"biome picks provinces", LayerBiome, 2.5, 2.5, 7, true},
		{"outside image", LayerProvinces, 5, 1, NoRegion, false},
		{"right edge clamps", LayerProvinces, 4, 4, 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Pick(4, 4, view, tt.layer, tt.x, tt.y)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Pick() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPickFollowsPanAndZoom(t *testing.T) {
	set := newTestSet(10, 10, 1)
	set.Province.Set(9, 9, 2)
	r := NewRenderer()
	r.SetTextures(set)

	view := ViewTransform{PanX: -10, PanY: -10, Zoom: 2}
	// texel (9,9) spans screen [8, 10) after zoom 2 and pan -10.
	if id, ok := r.Pick(10, 10, view, LayerProvinces, 9, 9); !ok || id != 2 {
		t.Errorf("Pick() = (%d, %v), want (2, true)", id, ok)
	}
}

func TestShadingModes(t *testing.T) {
	set := newTestSet(3, 3, 4)
	set.Biome.Set(1, 1, 9.0/255)
	set.Height.Set(1, 1, 1)
	r := NewRenderer()
	r.SetTextures(set)

	full := Settings{Opacity: 1, BorderWidth: 1}

	full.Layer = LayerBiome
	if got := r.Render(3, 3, NewViewTransform(), full).GetPixel(1, 1); !near(got, biomePalette[9]) {
		t.Errorf("biome pixel = %+v, want ice", got)
	}

	full.Layer = LayerHeight
	if got := r.Render(3, 3, NewViewTransform(), full).GetPixel(1, 1); !near(got, heightHigh) {
		t.Errorf("height pixel = %+v, want %+v", got, heightHigh)
	}

	set.Landmask.Set(1, 1, 0)
	if got := r.Render(3, 3, NewViewTransform(), full).GetPixel(1, 1); !near(got, heightWater) {
		t.Errorf("height water pixel = %+v, want %+v", got, heightWater)
	}

	full.Layer = LayerProvinces
	if got := r.Render(3, 3, NewViewTransform(), full).GetPixel(1, 1); !near(got, tierWater) {
		t.Errorf("province water pixel = %+v, want %+v", got, tierWater)
	}

	full.Layer = LayerBase
	if got := r.Render(3, 3, NewViewTransform(), full).GetPixel(1, 1); !near(got, gg.Black) {
		t.Errorf("base pixel = %+v, want black", got)
	}
}

func TestHighlightBlend(t *testing.T) {
	set := newTestSet(5, 5, 3)
	r := NewRenderer()
	r.SetTextures(set)

	s := Settings{Layer: LayerProvinces, Opacity: 1, BorderWidth: 1, Highlight: 3, HasHighlight: true}
	got := r.Render(5, 5, NewViewTransform(), s).GetPixel(2, 2)
	want := IDColor(3).Lerp(highlightColor, highlightWeight)
	if !near(got, want) {
		t.Errorf("highlighted pixel = %+v, want %+v", got, want)
	}
}

// splitAt gives every texel with x >= x0 the id right.
func splitAt(m *IDMap, x0 int, right ID) {
	for y := 0; y < m.Height; y++ {
		for x := x0; x < m.Width; x++ {
			m.Set(x, y, right)
		}
	}
}

func TestNestedTierBorders(t *testing.T) {
	tests := []struct {
		name  string
		layer Layer
		split func(set *TextureSet)
		want  gg.RGBA
	}{
		{
			name:  "duchies dim province border",
			layer: LayerDuchies,
			split: func(set *TextureSet) { splitAt(set.Province, 4, 2) },
			want:  IDColor(1).Lerp(gg.Black, finerBorderDim),
		},
		{
			name:  "kingdoms dim duchy border",
			layer: LayerKingdoms,
			split: func(set *TextureSet) { splitAt(set.Duchy, 4, 2) },
			want:  IDColor(1).Lerp(gg.Black, finerBorderDim),
		},
		{
			name:  "kingdoms ignore province border",
			layer: LayerKingdoms,
			split: func(set *TextureSet) { splitAt(set.Province, 4, 2) },
			want:  IDColor(1),
		},
		{
			name:  "provinces ignore duchy border",
			layer: LayerProvinces,
			split: func(set *TextureSet) { splitAt(set.Duchy, 4, 2) },
			want:  IDColor(1),
		},
		{
			name:  "own border wins over dimmed border",
			layer: LayerDuchies,
			split: func(set *TextureSet) {
				splitAt(set.Province, 4, 2)
				splitAt(set.Duchy, 4, 2)
			},
			want: gg.Black,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := newTestSet(8, 8, 1)
			tt.split(set)
			r := NewRenderer()
			r.SetTextures(set)

			s := Settings{Layer: tt.layer, Opacity: 1, BorderWidth: 1}
			frame := r.Render(8, 8, NewViewTransform(), s)
			if got := frame.GetPixel(3, 4); !near(got, tt.want) {
				t.Errorf("pixel next to the split = %+v, want %+v", got, tt.want)
			}
			if got := frame.GetPixel(1, 4); !near(got, IDColor(1)) {
				t.Errorf("interior pixel = %+v, want %+v", got, IDColor(1))
			}
		})
	}
}

func TestBiomeColorFallback(t *testing.T) {
	if BiomeColor(0) != biomePalette[0] {
		t.Error("biome 0 should be ocean")
	}
	if BiomeColor(10.0/255) != volcanicColor {
		t.Error("biome 10 should fall back to volcanic")
	}
	if BiomeColor(200.0/255) != volcanicColor {
		t.Error("out of range biome should fall back to volcanic")
	}
}

func TestRenderWithoutTextures(t *testing.T) {
	r := NewRenderer()
	got := r.Render(2, 2, NewViewTransform(), DefaultSettings()).GetPixel(1, 1)
	if !near(got, clearColor) {
		t.Errorf("empty frame pixel = %+v, want clear color", got)
	}
	if _, ok := r.Pick(2, 2, NewViewTransform(), LayerProvinces, 1, 1); ok {
		t.Error("pick without textures should report no region")
	}
}

func TestSetTexturesReleasesPrevious(t *testing.T) {
	first := newTestSet(2, 2, 1)
	r := NewRenderer()
	r.SetTextures(first)
	r.SetTextures(newTestSet(2, 2, 2))
	if first.Loaded() {
		t.Error("previous texture set should be released")
	}
}

func near(a, b gg.RGBA) bool {
	const tol = 1.0 / 255
	return math.Abs(a.R-b.R) <= tol && math.Abs(a.G-b.G) <= tol && math.Abs(a.B-b.B) <= tol
}
