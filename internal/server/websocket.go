package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ashtrail/devtools/internal/inspector"
	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/texload"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type PointerAction struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Shift  bool    `json:"shift"`
	Ctrl   bool    `json:"ctrl"`
	Meta   bool    `json:"meta"`
}

func (a PointerAction) pointer() mapview.Pointer {
	return mapview.Pointer{X: a.X, Y: a.Y, Shift: a.Shift, Ctrl: a.Ctrl, Meta: a.Meta}
}

type WheelAction struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

type ResizeAction struct {
	Action string `json:"action"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ReloadAction struct {
	Action string         `json:"action"`
	Source texload.Source `json:"source"`
}

type IDAction struct {
	Action string  `json:"action"`
	ID     *uint32 `json:"id"`
}

type SettingsAction struct {
	Action string `json:"action"`
	settingsRequest
}

func HandleWebsocket(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("ws upgrade error:", err)
			return
		}

		app.Broadcaster.Register(conn)

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				app.Broadcaster.Unregister(conn)
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var base struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(msg, &base); err != nil {
				log.Println("ws json parse error:", err)
				continue
			}
			if err := handleAction(app, conn, base.Action, msg); err != nil {
				if werr := app.Broadcaster.WriteJSON(conn, inspector.Message{Action: "error", Error: err.Error()}); werr != nil {
					log.Println("ws error reply failed:", werr)
				}
			}
		}
	}
}

// handleAction applies one client message. Errors are sent back to the
// client that caused them.
func handleAction(app *App, conn *websocket.Conn, action string, msg []byte) error {
	s := app.Session
	switch action {
	case "pointer_down", "pointer_move", "pointer_up":
		var p PointerAction
		if err := json.Unmarshal(msg, &p); err != nil {
			return err
		}
		switch action {
		case "pointer_down":
			s.PointerDown(p.pointer())
		case "pointer_move":
			s.PointerMove(p.pointer())
		default:
			s.PointerUp(p.pointer())
		}

	case "wheel":
		var w WheelAction
		if err := json.Unmarshal(msg, &w); err != nil {
			return err
		}
		s.Wheel(w.X, w.Y, w.DeltaY)

	case "resize":
		var r ResizeAction
		if err := json.Unmarshal(msg, &r); err != nil {
			return err
		}
		return s.Resize(r.Width, r.Height)

	case "settings":
		var st SettingsAction
		if err := json.Unmarshal(msg, &st); err != nil {
			return err
		}
		if err := applySettings(s, st.settingsRequest); err != nil {
			return err
		}
		app.Broadcaster.BroadcastState()

	case "reload":
		var r ReloadAction
		if err := json.Unmarshal(msg, &r); err != nil {
			return err
		}
		// Loads outlive the message; the outcome arrives as a load event.
		go func() {
			if err := s.Reload(context.Background(), r.Source); err != nil && !errors.Is(err, inspector.ErrStale) {
				log.Println("ws reload failed:", err)
			}
		}()

	case "refresh":
		go func() {
			if err := s.Refresh(context.Background()); err != nil && !errors.Is(err, inspector.ErrStale) {
				log.Println("ws refresh failed:", err)
			}
		}()

	case "select":
		var a IDAction
		if err := json.Unmarshal(msg, &a); err != nil {
			return err
		}
		var id *mapview.ID
		if a.ID != nil {
			v := mapview.ID(*a.ID)
			id = &v
		}
		s.Select(id)

	case "bulk_toggle":
		var a IDAction
		if err := json.Unmarshal(msg, &a); err != nil {
			return err
		}
		if a.ID == nil {
			return errors.New("bulk_toggle needs an id")
		}
		s.ToggleBulk(mapview.ID(*a.ID))

	case "bulk_clear":
		s.ClearBulk()

	case "state":
		st := s.State()
		return app.Broadcaster.WriteJSON(conn, inspector.Message{Action: "state", State: &st})

	case "summary":
		return app.Broadcaster.WriteJSON(conn, app.Broadcaster.SummaryMessage())

	default:
		return errors.New("unknown action " + action)
	}
	return nil
}
