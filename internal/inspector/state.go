package inspector

import (
	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/texload"
)

type EventKind string

const (
	EventHover  EventKind = "hover"
	EventSelect EventKind = "select"
	EventBulk   EventKind = "bulk"
	EventLoad   EventKind = "load"
)

// Event reports a change clients react to. ID is nil when the hover or
// selection was cleared.
type Event struct {
	Kind  EventKind `json:"kind"`
	ID    *uint32   `json:"id,omitempty"`
	State LoadState `json:"state,omitempty"`
	Error string    `json:"error,omitempty"`
}

type View struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// State is a snapshot of the session for clients.
type State struct {
	Source      texload.Source `json:"source"`
	Load        LoadState      `json:"load"`
	Error       string         `json:"error,omitempty"`
	Layer       string         `json:"layer"`
	Opacity     float64        `json:"opacity"`
	BorderWidth float64        `json:"borderWidth"`
	Tab         Tab            `json:"tab"`
	BulkMode    bool           `json:"bulkMode"`
	Hovered     *uint32        `json:"hovered"`
	Selected    *uint32        `json:"selected"`
	Bulk        []uint32       `json:"bulk"`
	View        View           `json:"view"`
	Gesture     string         `json:"gesture"`
	CanvasW     int            `json:"canvasWidth"`
	CanvasH     int            `json:"canvasHeight"`
	ImageW      int            `json:"imageWidth"`
	ImageH      int            `json:"imageHeight"`
	Version     uint64         `json:"version"`
}

func (s *Session) State() State {
	imgW, imgH := s.renderer.Size()

	s.Mu.RLock()
	defer s.Mu.RUnlock()
	v := s.ctrl.View()
	st := State{
		Source:      s.source,
		Load:        s.state,
		Error:       s.loadErr,
		Layer:       s.settings.Layer.String(),
		Opacity:     s.settings.Opacity,
		BorderWidth: s.settings.BorderWidth,
		Tab:         s.tab,
		BulkMode:    s.bulkMode,
		Hovered:     toWire(s.hovered),
		Selected:    toWire(s.selected),
		Bulk:        make([]uint32, len(s.bulk)),
		View:        View{PanX: v.PanX, PanY: v.PanY, Zoom: v.Zoom},
		Gesture:     s.ctrl.State().String(),
		CanvasW:     s.canvasW,
		CanvasH:     s.canvasH,
		ImageW:      imgW,
		ImageH:      imgH,
		Version:     s.version,
	}
	for i, id := range s.bulk {
		st.Bulk[i] = uint32(id)
	}
	return st
}

// Settings returns the render settings without a highlight.
func (s *Session) Settings() mapview.Settings {
	s.Mu.RLock()
	defer s.Mu.RUnlock()
	return s.settings
}
