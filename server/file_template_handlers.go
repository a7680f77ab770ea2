package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"unicode"

	"github.com/jrsteele09/go-tenant-portal/dashboard"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

const (
	layoutAuth = "layout_auth.html"
	layoutApp  = "layout_app.html"
	partials   = "partials.html"
)

const (
	pageLogin          = "login.html"
	pageRegister       = "register.html"
	pagePasswordReset  = "password_reset.html"
	pagePasswordUpdate = "password_update.html"
	pageChangePassword = "change_password.html"
	pageDashboard      = "dashboard.html"
	pageNotFound       = "not_found.html"
)

// pageLayouts maps every page to the layout it renders inside.
var pageLayouts = map[string]string{
	pageLogin:          layoutAuth,
	pageRegister:       layoutAuth,
	pagePasswordReset:  layoutAuth,
	pagePasswordUpdate: layoutAuth,
	pageNotFound:       layoutAuth,
	pageChangePassword: layoutApp,
	pageDashboard:      layoutApp,
}

var templateFuncs = template.FuncMap{
	"brl":         dashboard.FormatBRL,
	"count":       dashboard.FormatCount,
	"taxID":       validation.FormatTaxID,
	"phone":       validation.FormatPhone,
	"initials":    initials,
	"periodLabel": func(p validation.Period) string { return p.Label() },
}

type pageSet struct {
	pages map[string]*template.Template
}

// parsePages parses each page together with its layout and the shared partials.
func parsePages() (*pageSet, error) {
	set := &pageSet{pages: make(map[string]*template.Template, len(pageLayouts))}
	for page := range pageLayouts {
		tmpl, err := ParseTemplate(page)
		if err != nil {
			return nil, fmt.Errorf("[pageSet parse] %s: %w", page, err)
		}
		set.pages[page] = tmpl
	}
	return set, nil
}

// ParseTemplate parses a single page with its layout from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	layout, ok := pageLayouts[name]
	if !ok {
		return nil, fmt.Errorf("[ParseTemplate] unknown page %s", name)
	}
	return template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layout, partials, name)
}

// render executes page into a buffer first so a template error never leaves a half written response.
func (s *Server) render(w http.ResponseWriter, page string, status int, data any) {
	tmpl, ok := s.pages.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("render of unknown page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug().Err(err).Str("page", page).Msg("client went away while rendering")
	}
}

// initials returns up to two initials for the avatar in the user menu.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if unicode.IsLetter(r) {
			out = append(out, unicode.ToUpper(r))
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}
