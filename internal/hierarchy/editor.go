package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashtrail/devtools/internal/mapview"
	"github.com/ashtrail/devtools/internal/models"
)

var (
	ErrNothingToUndo   = errors.New("hierarchy: nothing to undo")
	ErrNothingToRedo   = errors.New("hierarchy: nothing to redo")
	ErrNotReassignable = errors.New("hierarchy: only provinces and duchies can be reassigned")
	ErrNoChanges       = errors.New("hierarchy: no entity changes parent")
	ErrEmptyName       = errors.New("hierarchy: name is empty")
	ErrUnknownEntity   = errors.New("hierarchy: unknown entity")
)

// Sender applies single edits on the backend.
type Sender interface {
	Reassign(ctx context.Context, planetID string, req models.ReassignRequest) error
	Rename(ctx context.Context, planetID string, req models.RenameRequest) error
}

// Change is one parent move. From is the parent before the move.
type Change struct {
	EntityType models.EntityType `json:"entityType"`
	EntityID   uint32            `json:"entityId"`
	From       uint32            `json:"from"`
	To         uint32            `json:"to"`
}

type stepKind int

const (
	stepReassign stepKind = iota
	stepRename
)

type step struct {
	kind   stepKind
	change Change

	entity   models.EntityType
	id       uint32
	fromName string
	toName   string
}

// Action is one undoable user edit. A bulk reassignment is one action
// made of several steps.
type Action struct {
	Description string
	steps       []step
}

func (a Action) Len() int { return len(a.steps) }

// Editor serializes hierarchy edits for one planet and keeps the undo and
// redo stacks.
type Editor struct {
	mu       sync.Mutex
	planetID string
	atlas    *Atlas
	api      Sender

	undo []Action
	redo []Action
}

func NewEditor(planetID string, atlas *Atlas, api Sender) *Editor {
	if atlas == nil {
		atlas = NewAtlas(nil, nil, nil)
	}
	return &Editor{planetID: planetID, atlas: atlas, api: api}
}

// Atlas returns the edited atlas. Callers must not mutate it, and must
// not read it while edits may run; use Summary for that.
func (e *Editor) Atlas() *Atlas {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atlas
}

// Summary describes one region under the edit lock.
func (e *Editor) Summary(t mapview.Tier, id uint32) (Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atlas.Summary(t, id)
}

// SetAtlas replaces the atlas after a reload. Both stacks are cleared since
// their steps refer to the old records.
func (e *Editor) SetAtlas(atlas *Atlas) {
	if atlas == nil {
		atlas = NewAtlas(nil, nil, nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.atlas = atlas
	e.undo, e.redo = nil, nil
}

// PreviewReassign lists the entities that would actually move: those whose
// current parent is defined and differs from target. Duplicates are
// dropped, order is kept.
func (e *Editor) PreviewReassign(et models.EntityType, ids []uint32, target uint32) ([]Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview(et, ids, target)
}

func (e *Editor) preview(et models.EntityType, ids []uint32, target uint32) ([]Change, error) {
	if et != models.EntityProvince && et != models.EntityDuchy {
		return nil, ErrNotReassignable
	}
	seen := make(map[uint32]bool, len(ids))
	var out []Change
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		parent, ok := e.atlas.Parent(et, id)
		if !ok || parent == target {
			continue
		}
		out = append(out, Change{EntityType: et, EntityID: id, From: parent, To: target})
	}
	return out, nil
}

// BulkReassign sends the previewed moves one by one. Moves already sent
// when one fails stay applied and are recorded as an undoable action; the
// failing error is returned with them.
func (e *Editor) BulkReassign(ctx context.Context, et models.EntityType, ids []uint32, target uint32) ([]Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	changes, err := e.preview(et, ids, target)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	var (
		applied []Change
		steps   []step
		sendErr error
	)
	for _, c := range changes {
		req := models.ReassignRequest{EntityType: c.EntityType, EntityID: c.EntityID, TargetID: c.To}
		if err := e.api.Reassign(ctx, e.planetID, req); err != nil {
			sendErr = fmt.Errorf("reassign %s %d to %d: %w", c.EntityType, c.EntityID, c.To, err)
			break
		}
		e.atlas.setParent(c.EntityType, c.EntityID, c.To)
		applied = append(applied, c)
		steps = append(steps, step{kind: stepReassign, change: c})
	}

	if len(steps) > 0 {
		desc := fmt.Sprintf("move %d %s(s) to %d", len(steps), et, target)
		if sendErr != nil {
			desc += fmt.Sprintf(" (partial, %d of %d)", len(steps), len(changes))
		}
		e.push(Action{Description: desc, steps: steps})
	}
	return applied, sendErr
}

// Rename sets an entity's display name.
func (e *Editor) Rename(ctx context.Context, et models.EntityType, id uint32, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	old, ok := e.atlas.name(et, id)
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrUnknownEntity, et, id)
	}
	if old == name {
		return nil
	}
	req := models.RenameRequest{EntityType: et, EntityID: id, Name: name}
	if err := e.api.Rename(ctx, e.planetID, req); err != nil {
		return fmt.Errorf("rename %s %d: %w", et, id, err)
	}
	e.atlas.setName(et, id, name)
	e.push(Action{
		Description: fmt.Sprintf("rename %s %d to %q", et, id, name),
		steps:       []step{{kind: stepRename, entity: et, id: id, fromName: old, toName: name}},
	})
	return nil
}

func (e *Editor) push(a Action) {
	e.undo = append(e.undo, a)
	e.redo = nil
}

// Undo replays the inverse of the newest action, last step first. If any
// step fails both stacks are left as they were and the error is returned.
func (e *Editor) Undo(ctx context.Context) (Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.undo) == 0 {
		return Action{}, ErrNothingToUndo
	}
	a := e.undo[len(e.undo)-1]
	inverse := make([]step, len(a.steps))
	for i, s := range a.steps {
		inverse[len(a.steps)-1-i] = s.inverse()
	}
	if err := e.replay(ctx, inverse); err != nil {
		return Action{}, fmt.Errorf("undo %s: %w", a.Description, err)
	}
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, a)
	return a, nil
}

// Redo replays the newest undone action in its original order.
func (e *Editor) Redo(ctx context.Context) (Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.redo) == 0 {
		return Action{}, ErrNothingToRedo
	}
	a := e.redo[len(e.redo)-1]
	if err := e.replay(ctx, a.steps); err != nil {
		return Action{}, fmt.Errorf("redo %s: %w", a.Description, err)
	}
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, a)
	return a, nil
}

// History returns the descriptions on both stacks, oldest first.
func (e *Editor) History() (undo, redo []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.undo {
		undo = append(undo, a.Description)
	}
	for _, a := range e.redo {
		redo = append(redo, a.Description)
	}
	return undo, redo
}

// replay sends every step and only touches the atlas once all succeeded.
func (e *Editor) replay(ctx context.Context, steps []step) error {
	for _, s := range steps {
		var err error
		switch s.kind {
		case stepReassign:
			err = e.api.Reassign(ctx, e.planetID, models.ReassignRequest{
				EntityType: s.change.EntityType,
				EntityID:   s.change.EntityID,
				TargetID:   s.change.To,
			})
		case stepRename:
			err = e.api.Rename(ctx, e.planetID, models.RenameRequest{EntityType: s.entity, EntityID: s.id, Name: s.toName})
		}
		if err != nil {
			return err
		}
	}
	for _, s := range steps {
		switch s.kind {
		case stepReassign:
			e.atlas.setParent(s.change.EntityType, s.change.EntityID, s.change.To)
		case stepRename:
			e.atlas.setName(s.entity, s.id, s.toName)
		}
	}
	return nil
}

func (s step) inverse() step {
	inv := s
	switch s.kind {
	case stepReassign:
		inv.change.From, inv.change.To = s.change.To, s.change.From
	case stepRename:
		inv.fromName, inv.toName = s.toName, s.fromName
	}
	return inv
}
