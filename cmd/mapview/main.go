// Command mapview opens a planet in a desktop window using the same
// inspector session the web tool drives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/gogpu/gg"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ashtrail/devtools/internal/backend"
	"github.com/ashtrail/devtools/internal/inspector"
	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/storage"
	"github.com/ashtrail/devtools/internal/texload"
)

var layerKeys = []struct {
	key   ebiten.Key
	layer mapview.Layer
}{
	{ebiten.Key1, mapview.LayerProvinces},
	{ebiten.Key2, mapview.LayerDuchies},
	{ebiten.Key3, mapview.LayerKingdoms},
	{ebiten.Key4, mapview.LayerBiome},
	{ebiten.Key5, mapview.LayerHeight},
	{ebiten.Key6, mapview.LayerBase},
}

type Viewer struct {
	session *inspector.Session
	ctx     context.Context

	frame   *ebiten.Image
	version uint64
	drawn   bool

	lastX, lastY int
	status       string
	showHelp     bool
}

func (v *Viewer) pointer(x, y int) mapview.Pointer {
	return mapview.Pointer{
		X:     float64(x),
		Y:     float64(y),
		Shift: ebiten.IsKeyPressed(ebiten.KeyShift),
		Ctrl:  ebiten.IsKeyPressed(ebiten.KeyControl),
		Meta:  ebiten.IsKeyPressed(ebiten.KeyMeta),
	}
}

func (v *Viewer) Update() error {
	s := v.session
	mx, my := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		s.PointerDown(v.pointer(mx, my))
	}
	if mx != v.lastX || my != v.lastY {
		s.PointerMove(v.pointer(mx, my))
		v.lastX, v.lastY = mx, my
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		s.PointerUp(v.pointer(mx, my))
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		// ebiten reports scrolling up as positive; the view zooms in on negative deltas.
		s.Wheel(float64(mx), float64(my), -dy)
	}

	for _, lk := range layerKeys {
		if inpututil.IsKeyJustPressed(lk.key) {
			s.SetLayer(lk.layer)
		}
	}
	settings := s.Settings()
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		s.SetOpacity(settings.Opacity - 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		s.SetOpacity(settings.Opacity + 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		s.SetBorderWidth(settings.BorderWidth - 0.5)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		s.SetBorderWidth(settings.BorderWidth + 0.5)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		s.SetBulkMode(!s.State().BulkMode)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		s.ClearBulk()
		s.Select(nil)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		s.ResetView()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		go func() {
			if err := s.Refresh(v.ctx); err != nil {
				log.Println("Refresh failed:", err)
			}
		}()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		v.copyHovered()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		v.showHelp = !v.showHelp
	}
	return nil
}

// copyHovered puts the hovered (or selected) region id on the clipboard.
func (v *Viewer) copyHovered() {
	st := v.session.State()
	id := st.Hovered
	if id == nil {
		id = st.Selected
	}
	if id == nil {
		v.status = "nothing to copy"
		return
	}
	text := fmt.Sprint(*id)
	if err := clipboard.WriteAll(text); err != nil {
		v.status = "clipboard: " + err.Error()
		return
	}
	v.status = "copied " + text
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if version := v.session.Version(); !v.drawn || version != v.version {
		pm, ver := v.session.Frame()
		img := ebiten.NewImageFromImage(pm.ToImage())
		if v.frame != nil {
			v.frame.Deallocate()
		}
		v.frame, v.version, v.drawn = img, ver, true
	}
	screen.DrawImage(v.frame, nil)
	ebitenutil.DebugPrint(screen, v.overlay())
}

func (v *Viewer) overlay() string {
	st := v.session.State()
	var b strings.Builder
	fmt.Fprintf(&b, "%s  [%s]  layer %s  zoom %.2f\n", st.Source.PlanetID, st.Load, st.Layer, st.View.Zoom)
	if st.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", st.Error)
	}
	if sum, ok := v.session.Summary(); ok {
		fmt.Fprintf(&b, "%s #%d %s", sum.Tier, sum.ID, sum.Name)
		if sum.Biome != "" {
			fmt.Fprintf(&b, "  biome %s", sum.Biome)
		}
		if sum.Duchy != "" {
			fmt.Fprintf(&b, "  duchy %s", sum.Duchy)
		}
		if sum.Kingdom != "" {
			fmt.Fprintf(&b, "  kingdom %s", sum.Kingdom)
		}
		b.WriteString("\n")
	}
	if st.BulkMode || len(st.Bulk) > 0 {
		fmt.Fprintf(&b, "bulk mode %v, %d selected\n", st.BulkMode, len(st.Bulk))
	}
	if v.status != "" {
		b.WriteString(v.status + "\n")
	}
	if v.showHelp {
		b.WriteString("1-6 layer  [ ] opacity  - = border  B bulk  Esc clear\nR reset view  F5 refresh  C copy id  H help\n")
	}
	return b.String()
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	if err := v.session.Resize(outsideWidth, outsideHeight); err != nil {
		log.Println("Resize failed:", err)
	}
	return outsideWidth, outsideHeight
}

func main() {
	backendURL := flag.String("backend", "http://127.0.0.1:8787", "game backend base URL")
	planet := flag.String("planet", "", "planet id to open")
	baseURL := flag.String("base", "", "base texture URL of the planet")
	demo := flag.Bool("demo", false, "open a generated planet instead of the backend")
	seed := flag.Int64("seed", 1, "demo planet seed")
	dataDir := flag.String("data", "", "texture cache directory")
	noCache := flag.Bool("no-cache", false, "do not keep decoded textures on disk")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	flag.Parse()

	gg.SetLogger(slog.Default())

	var session *inspector.Session
	src := texload.Source{PlanetID: *planet, BaseTextureURL: *baseURL}
	if *demo {
		d := inspector.NewDemo(*seed)
		session = inspector.NewSession(d, d, d)
		if src.PlanetID == "" {
			src = texload.Source{PlanetID: "demo", BaseTextureURL: "synth://demo"}
		}
	} else {
		if src.PlanetID == "" || src.BaseTextureURL == "" {
			log.Fatal("-planet and -base are required without -demo")
		}
		api := backend.New(*backendURL)
		loader := texload.New(*backendURL)
		loader.Logf = log.Printf
		if !*noCache {
			cache := storage.NewSnapshotCache(*dataDir)
			loader.Cache = cache
			defer cache.Clear()
		}
		session = inspector.NewSession(loader, api, api)
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := &Viewer{session: session, ctx: ctx, lastX: -1, lastY: -1, showHelp: true}
	go func() {
		if err := session.Reload(ctx, src); err != nil {
			log.Println("Load failed:", err)
		}
	}()

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("Ashtrail map viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
