package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashtrail/devtools/internal/character"
	"github.com/ashtrail/devtools/internal/models"
)

// withDraft runs fn on the character draft under its lock and answers
// with the draft afterwards.
func (app *App) withDraft(c *gin.Context, fn func(b *character.Builder) error) {
	app.draftMu.Lock()
	defer app.draftMu.Unlock()
	if fn != nil {
		if err := fn(app.draft); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	c.JSON(http.StatusOK, app.draft)
}

func draftHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app.withDraft(c, nil)
	}
}

func resetDraftHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app.withDraft(c, func(b *character.Builder) error {
			b.Reset()
			return nil
		})
	}
}

// loadDraftHandler opens a saved character for editing.
func loadDraftHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ID string `json:"id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		list, err := app.API.ListCharacters(c.Request.Context())
		if err != nil {
			respondError(c, 0, err)
			return
		}
		for _, ch := range list {
			if ch.ID == req.ID {
				app.withDraft(c, func(b *character.Builder) error {
					b.Load(ch)
					return nil
				})
				return
			}
		}
		respondError(c, http.StatusNotFound, fmt.Errorf("character %q not found", req.ID))
	}
}

type detailsRequest struct {
	Name             *string `json:"name"`
	Age              *int    `json:"age"`
	Gender           *string `json:"gender"`
	History          *string `json:"history"`
	AppearancePrompt *string `json:"appearancePrompt"`
	IsNPC            *bool   `json:"isNPC"`
}

func detailsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req detailsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		app.withDraft(c, func(b *character.Builder) error {
			if req.Age != nil && *req.Age < 0 {
				return fmt.Errorf("age must not be negative")
			}
			if req.Name != nil {
				b.Name = *req.Name
			}
			if req.Age != nil {
				b.Age = *req.Age
			}
			if req.Gender != nil {
				b.Gender = *req.Gender
			}
			if req.History != nil {
				b.History = *req.History
			}
			if req.AppearancePrompt != nil {
				b.AppearancePrompt = *req.AppearancePrompt
			}
			if req.IsNPC != nil {
				b.IsNPC = *req.IsNPC
			}
			return nil
		})
	}
}

// toggleTraitHandler takes the whole trait record so its cost is known
// without another registry fetch.
func toggleTraitHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var t models.Trait
		if err := c.ShouldBindJSON(&t); err != nil || t.ID == "" {
			respondError(c, http.StatusBadRequest, fmt.Errorf("trait with an id is required"))
			return
		}
		app.withDraft(c, func(b *character.Builder) error {
			if !b.ToggleTrait(t) {
				return fmt.Errorf("not enough trait points for %s", t.Name)
			}
			return nil
		})
	}
}

func adjustStatHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Stat  string `json:"stat" binding:"required"`
			Delta int    `json:"delta"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if req.Delta != 1 && req.Delta != -1 {
			respondError(c, http.StatusBadRequest, fmt.Errorf("delta must be 1 or -1"))
			return
		}
		app.withDraft(c, func(b *character.Builder) error {
			if !b.AdjustStat(strings.ToLower(req.Stat), req.Delta) {
				return fmt.Errorf("cannot change %s by %d", req.Stat, req.Delta)
			}
			return nil
		})
	}
}

// occupationHandler sets the occupation; a null body field clears it.
func occupationHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Occupation *models.Occupation `json:"occupation"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		app.withDraft(c, func(b *character.Builder) error {
			b.SetOccupation(req.Occupation)
			return nil
		})
	}
}

// traitsHandler lists the selectable traits for the draft, grouped by
// type and filtered by ?search=.
func traitsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := app.API.ListTraits(c.Request.Context())
		if err != nil {
			respondError(c, 0, err)
			return
		}
		app.draftMu.Lock()
		groups := app.draft.FilterTraits(all, c.Query("search"))
		app.draftMu.Unlock()
		c.JSON(http.StatusOK, groups)
	}
}

func occupationsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := app.API.ListOccupations(c.Request.Context())
		if err != nil {
			respondError(c, 0, err)
			return
		}
		list := character.FilterOccupations(all, c.Query("category"))
		if list == nil {
			list = []models.Occupation{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// saveCharacterHandler saves the draft and answers with the refreshed
// character list.
func saveCharacterHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app.draftMu.Lock()
		list, err := app.draft.Save(c.Request.Context(), app.API)
		app.draftMu.Unlock()
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"characters": list})
	}
}

// registryHandler reloads every game data collection. Collections that
// failed stay empty and the first failure is reported next to the rest.
func registryHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg, err := app.API.FetchRegistry(c.Request.Context())
		if err != nil && reg.Traits == nil && reg.Occupations == nil && reg.Items == nil && reg.Characters == nil {
			respondError(c, 0, err)
			return
		}
		resp := gin.H{"registry": reg}
		if err != nil {
			log.Println("registry partially loaded:", err)
			resp["error"] = err.Error()
		}
		c.JSON(http.StatusOK, resp)
	}
}
