package server

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ashtrail/devtools/internal/backend"
	"github.com/ashtrail/devtools/internal/character"
	"github.com/ashtrail/devtools/internal/inspector"
)

//go:embed static/index.html
var static embed.FS

// App is everything the handlers share.
type App struct {
	Session     *inspector.Session
	Broadcaster *inspector.Broadcaster
	API         *backend.Client
	Started     time.Time

	draftMu sync.Mutex
	draft   *character.Builder
}

func NewApp(session *inspector.Session, broadcaster *inspector.Broadcaster, api *backend.Client) *App {
	return &App{
		Session:     session,
		Broadcaster: broadcaster,
		API:         api,
		Started:     time.Now(),
		draft:       character.NewBuilder(),
	}
}

func SetupRouter(app *App) *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.ParseFS(static, "static/index.html")))

	r.GET("/", indexHandler)
	r.GET("/ws", HandleWebsocket(app))
	r.GET("/api/health", healthHandler(app))
	r.GET("/api/registry", registryHandler(app))

	m := r.Group("/api/map")
	m.GET("/state", stateHandler(app))
	m.GET("/frame.png", frameHandler(app))
	m.GET("/summary", summaryHandler(app))
	m.POST("/reload", reloadHandler(app))
	m.POST("/refresh", refreshHandler(app))
	m.POST("/settings", settingsHandler(app))
	m.POST("/select", selectHandler(app))
	m.POST("/bulk", bulkHandler(app))

	h := r.Group("/api/hierarchy")
	h.POST("/preview", previewHandler(app))
	h.POST("/reassign", reassignHandler(app))
	h.POST("/rename", renameHandler(app))
	h.POST("/undo", undoHandler(app))
	h.POST("/redo", redoHandler(app))
	h.GET("/history", historyHandler(app))

	c := r.Group("/api/character")
	c.GET("/draft", draftHandler(app))
	c.POST("/reset", resetDraftHandler(app))
	c.POST("/load", loadDraftHandler(app))
	c.POST("/details", detailsHandler(app))
	c.POST("/traits/toggle", toggleTraitHandler(app))
	c.POST("/stats/adjust", adjustStatHandler(app))
	c.POST("/occupation", occupationHandler(app))
	c.GET("/traits", traitsHandler(app))
	c.GET("/occupations", occupationsHandler(app))
	c.POST("/save", saveCharacterHandler(app))

	i := r.Group("/api/icons")
	i.GET("/batches", listBatchesHandler(app))
	i.GET("/batches/:batchId", getBatchHandler(app))
	i.POST("/generate", generateHandler(app))
	i.POST("/export", exportHandler(app))
	i.PUT("/batches/:batchId/rename", renameBatchHandler(app))
	i.POST("/batches/:batchId/icons/:filename/regenerate", regenerateHandler(app))
	i.POST("/assign", assignHandler(app))

	return r
}

func indexHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

func healthHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"status":  "ok",
			"uptime":  time.Since(app.Started).Round(time.Second).String(),
			"clients": app.Broadcaster.ClientCount(),
			"loaded":  app.Session.Renderer().Loaded(),
		}
		if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
			if mem, err := p.MemoryInfo(); err == nil {
				resp["rssBytes"] = mem.RSS
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError answers {"error": msg}. Backend failures keep their status
// when it is a client error and become 502 otherwise.
func respondError(c *gin.Context, status int, err error) {
	if status == 0 {
		switch code := backend.StatusOf(err); {
		case code >= 400 && code < 500:
			status = code
		case code != 0:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}
	if status >= 500 {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
