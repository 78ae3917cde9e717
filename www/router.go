package www

import (
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"fleetconsole/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	tmpls    map[string]*template.Template
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	sessionStore := newSessionStore(eng.AppConfig().Web.SessionSecret)

	// Parse layout + partials as a base template set. Each page is cloned separately
	// to avoid the "last define wins" problem with {{define "content"}}.
	base := template.New("").Funcs(templateFuncs())
	base = template.Must(base.ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html"))

	pages := []string{
		"templates/console.html",
		"templates/robots.html",
		"templates/missions.html",
		"templates/diagnostics.html",
		"templates/login.html",
		"templates/config.html",
	}
	tmpls := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		clone := template.Must(base.Clone())
		clone = template.Must(clone.ParseFS(templateFS, p))
		name := p[len("templates/"):]
		tmpls[name] = clone
	}

	h := &Handlers{
		engine:   eng,
		sessions: sessionStore,
		tmpls:    tmpls,
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// SSE push channel
	r.Get("/events", h.handleSSE)

	// Pages
	r.Get("/", h.handleConsole)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/robots", h.handleRobots)
	r.Get("/missions", h.handleMissions)

	// Read API (no auth required)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.apiState)
		r.Get("/robots", h.apiRobots)
		r.Get("/robots/{robot}/telemetry", h.apiTelemetry)
		r.Get("/robots/{robot}/telemetry/{channel}", h.apiTelemetryChannel)
		r.Get("/robots/{robot}/path", h.apiPath)
		r.Get("/robots/{robot}/mission", h.apiMission)
		r.Get("/robots/{robot}/missions", h.apiMissionHistory)
		r.Get("/robots/{robot}/commands", h.apiCommandLog)
		r.Get("/health", h.apiHealth)
	})

	// Operator actions and configuration
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/robots/{robot}/mission/waypoints", h.apiAddWaypoint)
		r.Delete("/api/robots/{robot}/mission/waypoints/{index}", h.apiDeleteWaypoint)
		r.Post("/api/robots/{robot}/mission/customer", h.apiSetCustomer)
		r.Post("/api/robots/{robot}/mission/start", h.apiStartMission)
		r.Post("/api/robots/{robot}/mission/stop", h.apiStopMission)
		r.Post("/api/robots/{robot}/mission/clear", h.apiClearMission)
		r.Post("/api/robots/{robot}/nav", h.apiQuickNav)
		r.Post("/api/robots/{robot}/estop", h.apiEmergencyStop)
		r.Post("/api/robots/{robot}/cancel", h.apiCancelTask)
		r.Post("/api/robots/{robot}/lid", h.apiSetLid)
		r.Post("/api/robots/{robot}/enabled", h.apiSetEnabled)
		r.Get("/diagnostics", h.handleDiagnostics)
		r.Get("/config", h.handleConfig)
		r.Post("/config/save", h.handleConfigSave)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := h.tmpls[name]
	if !ok {
		log.Printf("render: template %q not found", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Page":          "login",
		"Authenticated": h.isAuthenticated(r),
	}
	h.render(w, "login.html", data)
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.engine.DB().GetAdminUser(username)
	if err != nil || !checkPassword(user.PasswordHash, password) {
		data := map[string]any{
			"Page":  "login",
			"Error": "Invalid username or password",
		}
		h.render(w, "login.html", data)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
