package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/media"
	"github.com/fpang/photo-curator/internal/metadata"
)

//go:embed templates/*.html static/*
var assets embed.FS

var pageNames = []string{"login", "search", "curate", "editor", "audit", "insights"}

var funcs = template.FuncMap{
	"ratingLabel": media.RatingLabel,
	"intPtr":      media.IntPtr,
	"mapsURL":     metadata.MapsURL,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
}

// pages holds one parsed template set per page, each sharing the layout.
type pages struct {
	sets   map[string]*template.Template
	static http.Handler
}

func loadPages() (*pages, error) {
	p := &pages{sets: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.sets[name] = t
	}
	p.static = http.FileServerFS(assets)
	return p, nil
}

// pageData is what the layout renders; Body is the page's own data.
type pageData struct {
	Title string
	Nav   string
	User  string
	Body  any
}

// render executes a page into a buffer first so a template error never
// produces half a page.
func (p *pages) render(w http.ResponseWriter, status int, name string, data pageData) {
	t, ok := p.sets[name]
	if !ok {
		httpError(w, http.StatusInternalServerError, "internal error", "unknown page "+name)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("Template execution failed")
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (sess *session) email() string {
	as, err := sess.auth.Session()
	if err != nil || as == nil {
		return ""
	}
	return as.User.Email
}
