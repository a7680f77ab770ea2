package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	flashCookieName = "portal_flash"
	flashMaxAge     = 60
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
	FlashWarning FlashKind = "warning"
)

// Flash is a one-shot notification shown by the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"k"`
	Message string    `json:"m"`
}

func (s *Server) setFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	if f.Message == "" {
		return
	}
	raw, err := json.Marshal(f)
	if err != nil {
		log.Err(err).Msg("could not encode flash message")
		return
	}
	s.setCookie(w, r, flashCookieName, base64.RawURLEncoding.EncodeToString(raw), flashMaxAge)
}

// takeFlash reads the pending notification and clears it.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	raw := cookieValue(r, flashCookieName)
	if raw == "" {
		return nil
	}
	s.clearCookie(w, r, flashCookieName)

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(decoded, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}
