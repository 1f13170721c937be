package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashtrail/devtools/internal/hierarchy"
	"github.com/ashtrail/devtools/internal/models"
)

type reassignRequest struct {
	EntityType models.EntityType `json:"entityType" binding:"required"`
	// EntityIDs defaults to the session's bulk selection when empty.
	EntityIDs []uint32 `json:"entityIds"`
	TargetID  uint32   `json:"targetId" binding:"required"`
}

func (app *App) reassignTargets(req reassignRequest) []uint32 {
	if len(req.EntityIDs) > 0 {
		return req.EntityIDs
	}
	return app.Session.BulkIDs()
}

// editStatus maps editor errors onto HTTP statuses.
func editStatus(err error) int {
	switch {
	case errors.Is(err, hierarchy.ErrNothingToUndo), errors.Is(err, hierarchy.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, hierarchy.ErrNotReassignable), errors.Is(err, hierarchy.ErrNoChanges),
		errors.Is(err, hierarchy.ErrEmptyName), errors.Is(err, hierarchy.ErrUnknownEntity):
		return http.StatusBadRequest
	}
	return 0
}

func previewHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reassignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		changes, err := app.Session.Editor().PreviewReassign(req.EntityType, app.reassignTargets(req), req.TargetID)
		if err != nil {
			respondError(c, editStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changes": changes})
	}
}

// reassignHandler applies a bulk reassignment. When a step fails the
// steps already sent stay applied and are reported with the error.
func reassignHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reassignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		applied, err := app.Session.Editor().BulkReassign(c.Request.Context(), req.EntityType, app.reassignTargets(req), req.TargetID)
		if err != nil {
			status := editStatus(err)
			if status == 0 {
				status = http.StatusBadGateway
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "applied": applied})
			return
		}
		app.Session.ClearBulk()
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

func renameHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RenameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if err := app.Session.Editor().Rename(c.Request.Context(), req.EntityType, req.EntityID, req.Name); err != nil {
			respondError(c, editStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func undoHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := app.Session.Editor().Undo(c.Request.Context())
		if err != nil {
			respondError(c, editStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"undone": a.Description})
	}
}

func redoHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := app.Session.Editor().Redo(c.Request.Context())
		if err != nil {
			respondError(c, editStatus(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redone": a.Description})
	}
}

func historyHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		undo, redo := app.Session.Editor().History()
		c.JSON(http.StatusOK, gin.H{"undo": undo, "redo": redo})
	}
}
