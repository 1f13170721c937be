package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ashtrail/devtools/internal/backend"
	"github.com/ashtrail/devtools/internal/inspector"
	"github.com/ashtrail/devtools/internal/models"
	"github.com/ashtrail/devtools/internal/synth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend stands in for the devtools backend API.
type fakeBackend struct {
	mu         sync.Mutex
	characters []models.Character
	items      []map[string]any
	saved      []string
	failPath   string
	reroll     *models.RegenerateRequest
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == f.failPath {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
		return
	}
	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	switch r.Method + " " + r.URL.Path {
	case "GET /api/data/characters":
		write(f.characters)
	case "POST /api/data/characters":
		var c models.Character
		json.NewDecoder(r.Body).Decode(&c)
		f.characters = append(f.characters, c)
		f.saved = append(f.saved, c.ID)
		write(map[string]bool{"ok": true})
	case "GET /api/data/traits":
		write([]models.Trait{
			{ID: "brave", Name: "Brave", Cost: 3, Type: models.TraitPositive},
			{ID: "age-elder", Name: "Elder", Cost: 0, Type: models.TraitNeutral},
			{ID: "coward", Name: "Coward", Cost: -2, Type: models.TraitNegative},
		})
	case "GET /api/data/items":
		write(f.items)
	case "POST /api/data/items":
		var e map[string]any
		json.NewDecoder(r.Body).Decode(&e)
		f.items = []map[string]any{e}
		write(map[string]bool{"ok": true})
	case "GET /api/icons/batches":
		write([]models.BatchSummary{{BatchID: "b1", BatchName: "weapons", IconCount: 2}})
	case "GET /api/icons/batches/b1":
		write(models.BatchManifest{BatchID: "b1", Icons: []models.BatchIcon{
			{Filename: "sword.png", Prompt: "rusty sword, flat shading"},
		}})
	case "POST /api/icons/batches/b1/icons/sword.png/regenerate":
		var req models.RegenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.reroll = &req
		write(models.BatchManifest{BatchID: "b1"})
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	router  *gin.Engine
	app     *App
	backend *fakeBackend
	demo    *inspector.Demo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{}
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	demo := inspector.NewDemo(4)
	demo.Options = synth.Options{Width: 64, Height: 32, CellSize: 8}
	session := inspector.NewSession(demo, demo, demo)
	t.Cleanup(session.Close)
	app := NewApp(session, inspector.NewBroadcaster(session, 10*time.Millisecond), backend.New(api.URL))
	return &testEnv{router: SetupRouter(app), app: app, backend: fb, demo: demo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) load(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/map/reload", map[string]any{"planetId": "p1", "baseTextureUrl": "demo", "refreshToken": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["status"] != "ok" || got["loaded"] != false {
		t.Errorf("health = %v", got)
	}
}

func TestIndexServesPage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/ws") {
		t.Fatalf("index: %d", rec.Code)
	}
}

func TestMapEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/api/map/reload", map[string]any{"planetId": "p1"}); rec.Code != http.StatusBadRequest {
		t.Errorf("reload without base url: %d", rec.Code)
	}
	env.load(t)

	rec := env.do(t, http.MethodGet, "/api/map/frame.png?w=64&h=32", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("frame: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("frame size %v", b)
	}
	if rec := env.do(t, http.MethodGet, "/api/map/frame.png?w=big&h=1", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad size: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/map/settings", map[string]any{"layer": "rivers"})
	if rec.Code != http.StatusBadRequest || decode[map[string]string](t, rec)["error"] == "" {
		t.Errorf("bad layer: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/api/map/settings", map[string]any{"layer": "duchies", "opacity": 2})
	st := decode[inspector.State](t, rec)
	if st.Layer != "duchies" || st.Opacity != 1 {
		t.Errorf("settings: %+v", st)
	}

	provinces, _ := env.demo.Regions(context.Background(), "p1", "provinces")
	id := (*provinces[0].DuchyID)
	env.do(t, http.MethodPost, "/api/map/select", map[string]any{"id": id})
	sum := decode[inspector.SummaryResult](t, env.do(t, http.MethodGet, "/api/map/summary", nil))
	if !sum.Found || sum.Region.ID != id || sum.Region.Tier != "duchy" {
		t.Errorf("summary = %+v", sum)
	}

	rec = env.do(t, http.MethodPost, "/api/map/bulk", map[string]any{"id": 7})
	if got := decode[map[string][]uint32](t, rec)["bulk"]; len(got) != 1 || got[0] != 7 {
		t.Errorf("bulk = %v", got)
	}
	rec = env.do(t, http.MethodPost, "/api/map/bulk", map[string]any{"id": nil})
	if got := decode[map[string][]uint32](t, rec)["bulk"]; len(got) != 0 {
		t.Errorf("bulk after clear = %v", got)
	}
}

func TestHierarchyEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	ctx := context.Background()
	provinces, _ := env.demo.Regions(ctx, "p1", "provinces")
	duchies, _ := env.demo.Regions(ctx, "p1", "duchies")
	if len(duchies) < 2 {
		t.Skip("planet too small for a reassignment")
	}
	prov := provinces[0]
	target := duchies[0].ID
	if target == *prov.DuchyID {
		target = duchies[1].ID
	}
	body := map[string]any{"entityType": "province", "entityIds": []uint32{prov.ID, prov.ID}, "targetId": target}

	preview := decode[map[string][]map[string]any](t, env.do(t, http.MethodPost, "/api/hierarchy/preview", body))
	if len(preview["changes"]) != 1 {
		t.Fatalf("preview = %v", preview)
	}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/reassign", body); rec.Code != http.StatusOK {
		t.Fatalf("reassign: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/reassign", body); rec.Code != http.StatusBadRequest {
		t.Errorf("no-op reassign: %d", rec.Code)
	}
	kingdom := map[string]any{"entityType": "kingdom", "entityIds": []uint32{1}, "targetId": 2}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/preview", kingdom); rec.Code != http.StatusBadRequest {
		t.Errorf("kingdom preview: %d", rec.Code)
	}

	rename := map[string]any{"entityType": "province", "entityId": prov.ID, "name": "Newmarch"}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/rename", rename); rec.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}
	hist := decode[map[string][]string](t, env.do(t, http.MethodGet, "/api/hierarchy/history", nil))
	if len(hist["undo"]) != 2 {
		t.Fatalf("history = %v", hist)
	}

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/api/hierarchy/undo", nil); rec.Code != http.StatusOK {
			t.Fatalf("undo %d: %d", i, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/undo", nil); rec.Code != http.StatusConflict {
		t.Errorf("empty undo: %d", rec.Code)
	}
	if p, _ := env.app.Session.Editor().Atlas().Parent(models.EntityProvince, prov.ID); p != *prov.DuchyID {
		t.Errorf("parent after undo = %d, want %d", p, *prov.DuchyID)
	}
	if rec := env.do(t, http.MethodPost, "/api/hierarchy/redo", nil); rec.Code != http.StatusOK {
		t.Errorf("redo: %d", rec.Code)
	}
}

func TestCharacterDraft(t *testing.T) {
	env := newTestEnv(t)

	draft := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/character/draft", nil))
	if draft["traitPoints"] != 15.0 || draft["statPoints"] != 18.0 {
		t.Fatalf("draft = %v", draft)
	}

	rec := env.do(t, http.MethodPost, "/api/character/stats/adjust", map[string]any{"stat": "Strength", "delta": 1})
	if got := decode[map[string]any](t, rec)["statPoints"]; got != 17.0 {
		t.Errorf("statPoints = %v", got)
	}
	if rec := env.do(t, http.MethodPost, "/api/character/stats/adjust", map[string]any{"stat": "luck", "delta": 1}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown stat: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/character/traits/toggle", models.Trait{ID: "brave", Name: "Brave", Cost: 3, Type: models.TraitPositive})
	if got := decode[map[string]any](t, rec)["traitPoints"]; got != 12.0 {
		t.Errorf("traitPoints = %v", got)
	}

	groups := decode[map[string][]models.Trait](t, env.do(t, http.MethodGet, "/api/character/traits", nil))
	if len(groups["positive"]) != 0 || len(groups["negative"]) != 1 || len(groups["neutral"]) != 0 {
		t.Errorf("groups = %v", groups)
	}

	env.do(t, http.MethodPost, "/api/character/details", map[string]any{"name": "Ysolde", "age": 31})
	rec = env.do(t, http.MethodPost, "/api/character/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	list := decode[map[string][]models.Character](t, rec)["characters"]
	if len(list) != 1 || list[0].Name != "Ysolde" || list[0].MaxHP != 25 || list[0].Stats.Strength != 4 {
		t.Errorf("saved = %+v", list)
	}

	env.do(t, http.MethodPost, "/api/character/reset", nil)
	rec = env.do(t, http.MethodPost, "/api/character/load", map[string]any{"id": list[0].ID})
	loaded := decode[map[string]any](t, rec)
	if loaded["name"] != "Ysolde" || loaded["statPoints"] != 17.0 || loaded["traitPoints"] != 12.0 {
		t.Errorf("loaded = %v", loaded)
	}
	if rec := env.do(t, http.MethodPost, "/api/character/load", map[string]any{"id": "nobody"}); rec.Code != http.StatusNotFound {
		t.Errorf("missing character: %d", rec.Code)
	}
}

func TestIconEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/api/icons/generate", map[string]any{"prompts": "  \n "}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty prompts: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/icons/batches", nil)
	if got := decode[[]models.BatchSummary](t, rec); len(got) != 1 || got[0].BatchID != "b1" {
		t.Errorf("batches = %+v", got)
	}

	env.backend.mu.Lock()
	env.backend.failPath = "/api/icons/batches"
	env.backend.items = []map[string]any{{"id": "sword", "name": "Sword"}}
	env.backend.mu.Unlock()
	rec = env.do(t, http.MethodGet, "/api/icons/batches", nil)
	if rec.Code != http.StatusBadGateway || !strings.Contains(decode[map[string]string](t, rec)["error"], "backend exploded") {
		t.Errorf("backend failure: %d %s", rec.Code, rec.Body.String())
	}

	assign := map[string]any{"category": "items", "entityId": "sword", "iconUrl": "/icons/b1/sword.png"}
	if rec := env.do(t, http.MethodPost, "/api/icons/assign", assign); rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	env.backend.mu.Lock()
	if env.backend.items[0]["icon"] != "/icons/b1/sword.png" {
		t.Errorf("items = %v", env.backend.items)
	}
	env.backend.mu.Unlock()
	assign["entityId"] = "axe"
	if rec := env.do(t, http.MethodPost, "/api/icons/assign", assign); rec.Code != http.StatusNotFound {
		t.Errorf("missing entity: %d", rec.Code)
	}
}

func TestRegenerateFallsBackToStoredPrompt(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/icons/batches/b1/icons/sword.png/regenerate", map[string]any{"temperature": 0.4})
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate: %d %s", rec.Code, rec.Body.String())
	}
	env.backend.mu.Lock()
	got := env.backend.reroll
	env.backend.mu.Unlock()
	if got == nil || got.ItemPrompt != "" || got.StylePrompt != "rusty sword, flat shading" || got.Temperature != 0.4 {
		t.Errorf("reroll = %+v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/icons/batches/b1/icons/missing.png/regenerate", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown icon: %d", rec.Code)
	}
}

func TestRegistryReportsPartialLoad(t *testing.T) {
	env := newTestEnv(t)
	env.backend.mu.Lock()
	env.backend.items = []map[string]any{{"id": "sword", "name": "Sword"}}
	env.backend.mu.Unlock()

	rec := env.do(t, http.MethodGet, "/api/registry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("registry: %d %s", rec.Code, rec.Body.String())
	}
	type response struct {
		Registry backend.Registry `json:"registry"`
		Error    string           `json:"error"`
	}
	got := decode[response](t, rec)
	if len(got.Registry.Traits) != 3 || len(got.Registry.Items) != 1 {
		t.Errorf("registry = %+v", got.Registry)
	}
	// The fake backend has no occupations collection.
	if got.Error == "" || got.Registry.Occupations != nil {
		t.Errorf("error = %q, occupations = %v", got.Error, got.Registry.Occupations)
	}
}

func TestWebsocketActions(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.app.Broadcaster.Run(ctx)

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	read := func(action string) inspector.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("waiting for %s: %v", action, err)
			}
			if kind != websocket.TextMessage {
				continue
			}
			var msg inspector.Message
			json.Unmarshal(data, &msg)
			if msg.Action == action {
				return msg
			}
		}
	}
	send := func(v any) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatal(err)
		}
	}

	read("state")
	send(map[string]any{"action": "resize", "width": 64, "height": 32})
	send(map[string]any{"action": "wheel", "x": 32, "y": 16, "deltaY": -100})
	send(map[string]any{"action": "state"})
	st := read("state").State
	for st.CanvasW != 64 || st.View.Zoom == 1 {
		send(map[string]any{"action": "state"})
		st = read("state").State
	}
	if st.View.Zoom < 1.09 || st.View.Zoom > 1.11 {
		t.Errorf("zoom = %v", st.View.Zoom)
	}

	send(map[string]any{"action": "teleport"})
	if msg := read("error"); !strings.Contains(msg.Error, "teleport") {
		t.Errorf("error = %q", msg.Error)
	}
}
