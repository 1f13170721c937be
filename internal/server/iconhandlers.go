package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashtrail/devtools/internal/icons"
	"github.com/ashtrail/devtools/internal/models"
)

func listBatchesHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := app.API.ListBatches(c.Request.Context())
		if err != nil {
			respondError(c, 0, err)
			return
		}
		if list == nil {
			list = []models.BatchSummary{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func getBatchHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := app.API.GetBatch(c.Request.Context(), c.Param("batchId"))
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func generateHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		form := icons.Form{Temperature: icons.DefaultTemperature}
		if err := c.ShouldBindJSON(&form); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		req, err := icons.BuildGenerateRequest(form)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		m, err := app.API.GenerateBatch(c.Request.Context(), req)
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func exportHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := app.API.ExportIcons(c.Request.Context())
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func renameBatchHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRenameRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.NewName == "" {
			respondError(c, http.StatusBadRequest, errors.New("newName is required"))
			return
		}
		m, err := app.API.RenameBatch(c.Request.Context(), c.Param("batchId"), req.NewName)
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

type regenerateForm struct {
	ItemPrompt  string  `json:"itemPrompt"`
	StylePrompt string  `json:"stylePrompt"`
	Temperature float64 `json:"temperature"`
	LocalImage  string  `json:"localImage"`
	GlobalImage string  `json:"globalImage"`
}

func regenerateHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		form := regenerateForm{Temperature: icons.DefaultTemperature}
		if err := c.ShouldBindJSON(&form); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if form.ItemPrompt == "" && form.StylePrompt == "" {
			// Reroll with the prompts the icon was made from.
			batch, err := app.API.GetBatch(c.Request.Context(), c.Param("batchId"))
			if err != nil {
				respondError(c, 0, err)
				return
			}
			for _, icon := range batch.Icons {
				if icon.Filename == c.Param("filename") {
					form.ItemPrompt, form.StylePrompt = icons.EditPrompts(icon)
					break
				}
			}
		}
		req, err := icons.BuildRegenerateRequest(form.ItemPrompt, form.StylePrompt, form.Temperature, form.LocalImage, form.GlobalImage)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		m, err := app.API.RegenerateIcon(c.Request.Context(), c.Param("batchId"), c.Param("filename"), req)
		if err != nil {
			respondError(c, 0, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func assignHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Category string `json:"category" binding:"required"`
			EntityID string `json:"entityId" binding:"required"`
			IconURL  string `json:"iconUrl" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		err := icons.AssignIcon(c.Request.Context(), app.API, req.Category, req.EntityID, req.IconURL)
		switch {
		case errors.Is(err, icons.ErrUnknownCategory):
			respondError(c, http.StatusBadRequest, err)
		case errors.Is(err, icons.ErrEntityNotFound):
			respondError(c, http.StatusNotFound, err)
		case err != nil:
			respondError(c, 0, err)
		default:
			c.JSON(http.StatusOK, gin.H{"ok": true})
		}
	}
}
