package handlers

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/sbilibin2017/gw-item-tracker/internal/sessions"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{"login.html", "register.html", "dashboard.html", "item_form.html"}

// SessionManager persists and rotates browser sessions.
type SessionManager interface {
	Save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error
	Renew(ctx context.Context, s *sessions.Session) error
}

// PageData is passed to every page template.
type PageData struct {
	Flashes  []sessions.Flash
	UserName string
	Items    []models.Item
	Item     *models.Item
	Email    string
	Name     string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages    map[string]*template.Template
	sessions SessionManager
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer(sm SessionManager) (*Renderer, error) {
	rd := &Renderer{pages: make(map[string]*template.Template, len(pages)), sessions: sm}
	for _, page := range pages {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		rd.pages[page] = tmpl
	}
	return rd, nil
}

// Render writes page with status. Pending flashes are consumed and the
// session is saved before anything is written.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		logger.FromContext(r.Context()).Errorw("unknown template", "page", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if s := sessions.FromContext(r.Context()); s != nil {
		data.Flashes = s.Flashes()
		if data.UserName == "" {
			data.UserName, _ = s.Get(sessions.KeyUserName)
		}
		if err := rd.sessions.Save(w, r, s); err != nil {
			logger.FromContext(r.Context()).Errorw("failed to save session", "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.FromContext(r.Context()).Errorw("failed to render template", "page", page, "error", err)
	}
}

// redirectWithFlash queues a flash and redirects to url.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, sm SessionManager, kind, msg, url string) {
	if s := sessions.FromContext(r.Context()); s != nil {
		s.AddFlash(kind, msg)
		if err := sm.Save(w, r, s); err != nil {
			logger.FromContext(r.Context()).Errorw("failed to save session", "error", err)
		}
	}
	http.Redirect(w, r, url, http.StatusFound)
}
