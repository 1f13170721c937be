package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashtrail/devtools/internal/inspector"
	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/texload"
)

func stateHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Session.State())
	}
}

// frameHandler renders the current view. Optional w/h query parameters
// resize the canvas first.
func frameHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ws, hs := c.Query("w"), c.Query("h"); ws != "" || hs != "" {
			w, errW := strconv.Atoi(ws)
			h, errH := strconv.Atoi(hs)
			if errW != nil || errH != nil {
				respondError(c, http.StatusBadRequest, errors.New("w and h must be integers"))
				return
			}
			if err := app.Session.Resize(w, h); err != nil {
				respondError(c, http.StatusBadRequest, err)
				return
			}
		}
		pm, version := app.Session.Frame()
		data, err := mapview.EncodePNG(pm)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Header("X-Frame-Version", strconv.FormatUint(version, 10))
		c.Data(http.StatusOK, "image/png", data)
	}
}

func summaryHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Broadcaster.SummaryMessage().Summary)
	}
}

// reloadHandler loads a texture batch and waits for it. A superseded load
// answers 409 so the caller knows a newer batch won.
func reloadHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var src texload.Source
		if err := c.ShouldBindJSON(&src); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if src.PlanetID == "" || src.BaseTextureURL == "" {
			respondError(c, http.StatusBadRequest, errors.New("planetId and baseTextureUrl are required"))
			return
		}
		reload(c, app.Session.Reload(c.Request.Context(), src), app)
	}
}

func refreshHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		reload(c, app.Session.Refresh(c.Request.Context()), app)
	}
}

func reload(c *gin.Context, err error, app *App) {
	switch {
	case errors.Is(err, inspector.ErrStale):
		respondError(c, http.StatusConflict, err)
	case err != nil:
		respondError(c, http.StatusBadGateway, err)
	default:
		c.JSON(http.StatusOK, app.Session.State())
	}
}

type settingsRequest struct {
	Layer       *string  `json:"layer"`
	Opacity     *float64 `json:"opacity"`
	BorderWidth *float64 `json:"borderWidth"`
	Tab         *string  `json:"tab"`
	BulkMode    *bool    `json:"bulkMode"`
	ResetView   bool     `json:"resetView"`
}

// applySettings is shared by the REST and websocket paths.
func applySettings(s *inspector.Session, req settingsRequest) error {
	if req.Layer != nil {
		l, err := mapview.ParseLayer(*req.Layer)
		if err != nil {
			return err
		}
		s.SetLayer(l)
	}
	if req.Tab != nil {
		t, err := inspector.ParseTab(*req.Tab)
		if err != nil {
			return err
		}
		s.SetTab(t)
	}
	if req.Opacity != nil {
		s.SetOpacity(*req.Opacity)
	}
	if req.BorderWidth != nil {
		s.SetBorderWidth(*req.BorderWidth)
	}
	if req.BulkMode != nil {
		s.SetBulkMode(*req.BulkMode)
	}
	if req.ResetView {
		s.ResetView()
	}
	return nil
}

func settingsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req settingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if err := applySettings(app.Session, req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, app.Session.State())
	}
}

type idRequest struct {
	ID *uint32 `json:"id"`
}

// selectHandler selects a region from a list; a null id deselects.
func selectHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req idRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		var id *mapview.ID
		if req.ID != nil {
			v := mapview.ID(*req.ID)
			id = &v
		}
		app.Session.Select(id)
		c.JSON(http.StatusOK, app.Session.State())
	}
}

// bulkHandler toggles one id, or clears the bulk selection when id is
// null.
func bulkHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req idRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if req.ID == nil {
			app.Session.ClearBulk()
		} else {
			app.Session.ToggleBulk(mapview.ID(*req.ID))
		}
		c.JSON(http.StatusOK, gin.H{"bulk": app.Session.BulkIDs()})
	}
}
