// Package inspector ties one map view to its texture batch, its pointer
// state and its region records, and pushes frames to connected clients.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"github.com/ashtrail/devtools/internal/hierarchy"
	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/models"
	"github.com/ashtrail/devtools/internal/texload"
)

// ErrStale is returned by Reload when a newer reload superseded it.
var ErrStale = errors.New("inspector: load superseded by a newer request")

type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateError   LoadState = "error"
)

// Tab is the geography panel tab. Hover and click only pick regions on
// the inspector tab.
type Tab string

const (
	TabRegions   Tab = "regions"
	TabCells     Tab = "cells"
	TabPipeline  Tab = "pipeline"
	TabInspector Tab = "inspector"
)

func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabRegions, TabCells, TabPipeline, TabInspector:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Loader produces the texture set of a batch.
type Loader interface {
	Load(ctx context.Context, src texload.Source) (*mapview.TextureSet, error)
}

// RegionFetcher lists one tier of a planet's region records.
type RegionFetcher interface {
	Regions(ctx context.Context, planetID, tier string) ([]models.Region, error)
}

const (
	defaultCanvasW = 960
	defaultCanvasH = 540
	maxCanvasSide  = 4096
)

// Session is the state of one map inspector. Mu guards every field;
// the renderer has its own lock.
type Session struct {
	Mu sync.RWMutex

	renderer *mapview.Renderer
	ctrl     *mapview.Controller
	loader   Loader
	regions  RegionFetcher
	sender   hierarchy.Sender
	editor   *hierarchy.Editor

	settings         mapview.Settings
	canvasW, canvasH int
	tab              Tab

	source  texload.Source
	state   LoadState
	loadErr string
	gen     uint64
	cancel  context.CancelFunc

	hovered  *mapview.ID
	selected *mapview.ID
	bulk     []mapview.ID
	bulkMode bool

	// version changes whenever the next frame would differ from the last.
	version   uint64
	listeners []func(Event)
}

// NewSession creates an idle session. regions and sender may be nil, in
// which case no region records are loaded and edits are refused.
func NewSession(loader Loader, regions RegionFetcher, sender hierarchy.Sender) *Session {
	return &Session{
		renderer: mapview.NewRenderer(),
		ctrl:     mapview.NewController(),
		loader:   loader,
		regions:  regions,
		sender:   sender,
		editor:   hierarchy.NewEditor("", nil, sender),
		settings: mapview.DefaultSettings(),
		canvasW:  defaultCanvasW,
		canvasH:  defaultCanvasH,
		tab:      TabInspector,
		state:    StateIdle,
	}
}

// Subscribe registers fn for every event. fn runs on the goroutine that
// caused the event, after the session lock is released.
func (s *Session) Subscribe(fn func(Event)) {
	s.Mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.Mu.Unlock()
}

func (s *Session) emit(events ...Event) {
	s.Mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.Mu.RUnlock()
	for _, e := range events {
		for _, fn := range listeners {
			fn(e)
		}
	}
}

func (s *Session) touch() {
	s.version++
}

func (s *Session) Renderer() *mapview.Renderer {
	return s.renderer
}

// Editor returns the hierarchy editor of the current planet.
func (s *Session) Editor() *hierarchy.Editor {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.editor
}

// Reload loads the batch named by src. A reload started while another is
// in flight cancels it; whichever finishes, only the newest generation is
// installed and late results are released. On failure the previous
// textures are dropped and the raw error is kept for display.
func (s *Session) Reload(ctx context.Context, src texload.Source) error {
	s.Mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	planetChanged := src.PlanetID != s.source.PlanetID
	s.source = src
	s.state = StateLoading
	s.loadErr = ""
	if planetChanged {
		s.hovered, s.selected, s.bulk = nil, nil, nil
		s.ctrl.ForgetHover()
	}
	s.touch()
	s.Mu.Unlock()
	s.emit(Event{Kind: EventLoad, State: StateLoading})

	set, err := s.loader.Load(ctx, src)
	var atlas *hierarchy.Atlas
	if err == nil {
		atlas = s.fetchAtlas(ctx, src.PlanetID)
	}
	defer cancel()

	s.Mu.Lock()
	if gen != s.gen {
		s.Mu.Unlock()
		if set != nil {
			set.Release()
		}
		return ErrStale
	}
	s.cancel = nil
	if err != nil {
		s.state = StateError
		s.loadErr = err.Error()
		s.renderer.Release()
		s.touch()
		s.Mu.Unlock()
		log.Printf("texture load failed for planet %s: %v", src.PlanetID, err)
		s.emit(Event{Kind: EventLoad, State: StateError, Error: err.Error()})
		return err
	}
	s.renderer.SetTextures(set)
	if planetChanged || s.editor == nil {
		s.editor = hierarchy.NewEditor(src.PlanetID, atlas, s.sender)
	} else if atlas != nil {
		s.editor.SetAtlas(atlas)
	}
	s.ctrl.ForgetHover()
	s.state = StateLoaded
	s.touch()
	s.Mu.Unlock()
	s.emit(Event{Kind: EventLoad, State: StateLoaded})
	return nil
}

// Refresh reloads the current batch with the next refresh token, the way
// the pipeline panel does after a run.
func (s *Session) Refresh(ctx context.Context) error {
	s.Mu.RLock()
	src := s.source
	s.Mu.RUnlock()
	if src.PlanetID == "" {
		return errors.New("inspector: no planet loaded")
	}
	src.Token++
	return s.Reload(ctx, src)
}

// fetchAtlas loads the three record tiers. Missing records only disable
// the inspector summary, so failures are logged rather than returned.
func (s *Session) fetchAtlas(ctx context.Context, planetID string) *hierarchy.Atlas {
	if s.regions == nil {
		return nil
	}
	tiers := []string{"provinces", "duchies", "kingdoms"}
	lists := make([][]models.Region, len(tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range tiers {
		g.Go(func() error {
			list, err := s.regions.Regions(gctx, planetID, tier)
			if err != nil {
				return fmt.Errorf("%s: %w", tier, err)
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("region records unavailable for planet %s: %v", planetID, err)
		return nil
	}
	return hierarchy.NewAtlas(lists[0], lists[1], lists[2])
}

// Close cancels any load in flight and releases the textures.
func (s *Session) Close() {
	s.Mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.Mu.Unlock()
	s.renderer.Release()
}

// Resize sets the canvas size frames are rendered and picked at.
func (s *Session) Resize(w, h int) error {
	if w <= 0 || h <= 0 || w > maxCanvasSide || h > maxCanvasSide {
		return fmt.Errorf("inspector: bad canvas size %dx%d", w, h)
	}
	s.Mu.Lock()
	if s.canvasW != w || s.canvasH != h {
		s.canvasW, s.canvasH = w, h
		s.touch()
	}
	s.Mu.Unlock()
	return nil
}

func (s *Session) SetLayer(l mapview.Layer) {
	s.Mu.Lock()
	if s.settings.Layer != l {
		s.settings.Layer = l
		// The hovered id belongs to the old pick tier.
		s.hovered = nil
		s.ctrl.ForgetHover()
		s.touch()
	}
	s.Mu.Unlock()
}

func (s *Session) SetOpacity(v float64) {
	s.Mu.Lock()
	s.settings.Opacity = v
	s.settings = s.settings.Normalize()
	s.touch()
	s.Mu.Unlock()
}

func (s *Session) SetBorderWidth(v float64) {
	s.Mu.Lock()
	s.settings.BorderWidth = v
	s.settings = s.settings.Normalize()
	s.touch()
	s.Mu.Unlock()
}

// SetTab switches the geography tab. Leaving the inspector tab clears the
// hover, which is only tracked there.
func (s *Session) SetTab(t Tab) {
	s.Mu.Lock()
	s.tab = t
	var events []Event
	if t != TabInspector && s.hovered != nil {
		s.hovered = nil
		s.ctrl.ForgetHover()
		s.touch()
		events = append(events, Event{Kind: EventHover})
	}
	s.Mu.Unlock()
	s.emit(events...)
}

func (s *Session) SetBulkMode(on bool) {
	s.Mu.Lock()
	s.bulkMode = on
	s.Mu.Unlock()
}

// ClearBulk empties the bulk selection.
func (s *Session) ClearBulk() {
	s.Mu.Lock()
	s.bulk = nil
	s.touch()
	s.Mu.Unlock()
	s.emit(Event{Kind: EventBulk})
}

// Select sets or clears the selected region directly, as the region list
// does.
func (s *Session) Select(id *mapview.ID) {
	s.Mu.Lock()
	s.selected = cloneID(id)
	s.touch()
	s.Mu.Unlock()
	s.emit(Event{Kind: EventSelect, ID: toWire(id)})
}

// ToggleBulk adds id to the bulk selection or removes it.
func (s *Session) ToggleBulk(id mapview.ID) {
	s.Mu.Lock()
	s.toggleBulkLocked(id)
	s.Mu.Unlock()
	s.emit(Event{Kind: EventBulk, ID: toWire(&id)})
}

func (s *Session) toggleBulkLocked(id mapview.ID) {
	if i := slices.Index(s.bulk, id); i >= 0 {
		s.bulk = slices.Delete(s.bulk, i, i+1)
	} else {
		s.bulk = append(s.bulk, id)
	}
	s.touch()
}

func (s *Session) PointerDown(p mapview.Pointer) {
	s.Mu.Lock()
	s.ctrl.PointerDown(p)
	s.Mu.Unlock()
}

// PointerMove pans while dragging and tracks the hovered region
// otherwise.
func (s *Session) PointerMove(p mapview.Pointer) {
	s.Mu.Lock()
	before := s.ctrl.View()
	out := s.ctrl.PointerMove(p, s.tab == TabInspector, s.renderer, s.canvasW, s.canvasH, s.settings.Layer)
	if s.ctrl.View() != before {
		s.touch()
	}
	var events []Event
	if out.Kind == mapview.Hover {
		if out.OK {
			s.hovered = cloneID(&out.ID)
		} else {
			s.hovered = nil
		}
		s.touch()
		events = append(events, Event{Kind: EventHover, ID: toWire(s.hovered)})
	}
	s.Mu.Unlock()
	s.emit(events...)
}

// PointerUp ends a gesture; a click selects or toggles the hovered
// region.
func (s *Session) PointerUp(p mapview.Pointer) {
	s.Mu.Lock()
	out := s.ctrl.PointerUp(p, s.tab == TabInspector, s.bulkMode)
	var events []Event
	switch out.Kind {
	case mapview.Select:
		s.selected = cloneID(s.hovered)
		s.touch()
		events = append(events, Event{Kind: EventSelect, ID: toWire(s.selected)})
	case mapview.BulkToggle:
		if s.hovered != nil {
			s.toggleBulkLocked(*s.hovered)
			events = append(events, Event{Kind: EventBulk, ID: toWire(s.hovered)})
		}
	}
	s.Mu.Unlock()
	s.emit(events...)
}

// Wheel zooms toward (x, y).
func (s *Session) Wheel(x, y, deltaY float64) {
	s.Mu.Lock()
	s.ctrl.Wheel(x, y, deltaY)
	s.touch()
	s.Mu.Unlock()
}

func (s *Session) ResetView() {
	s.Mu.Lock()
	s.ctrl.ResetView()
	s.touch()
	s.Mu.Unlock()
}

// Frame renders the current view. The returned version identifies the
// state the frame was rendered from.
func (s *Session) Frame() (*gg.Pixmap, uint64) {
	s.Mu.RLock()
	settings := s.settings
	settings.Highlight, settings.HasHighlight = mapview.Highlight(s.selected, s.hovered, s.bulk)
	view := s.ctrl.View()
	w, h := s.canvasW, s.canvasH
	version := s.version
	s.Mu.RUnlock()
	return s.renderer.Render(w, h, view, settings), version
}

// Version is the current frame version.
func (s *Session) Version() uint64 {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.version
}

// Summary describes the highlighted region in the tier of the active
// layer. Non-tier layers describe provinces.
func (s *Session) Summary() (hierarchy.Summary, bool) {
	s.Mu.RLock()
	id, ok := mapview.Highlight(s.selected, s.hovered, s.bulk)
	tier := s.settings.Layer.PickTier()
	editor := s.editor
	s.Mu.RUnlock()
	if !ok || editor == nil {
		return hierarchy.Summary{}, false
	}
	return editor.Summary(tier, uint32(id))
}

// BulkIDs returns the bulk selection in toggle order.
func (s *Session) BulkIDs() []uint32 {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	ids := make([]uint32, len(s.bulk))
	for i, id := range s.bulk {
		ids[i] = uint32(id)
	}
	return ids
}

func cloneID(id *mapview.ID) *mapview.ID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func toWire(id *mapview.ID) *uint32 {
	if id == nil {
		return nil
	}
	return models.Ptr(uint32(*id))
}
