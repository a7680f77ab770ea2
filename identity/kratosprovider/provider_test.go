package kratosprovider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-portal/identity/kratosprovider"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	validToken    = "ory_st_valid"
	recoveryToken = "ory_st_recovery"
	flowID        = "7f1e1a5c-0000-4000-8000-000000000001"
	identityID    = "5d9c1b1e-0000-4000-8000-000000000002"
	sessionID     = "3b7e2a9d-0000-4000-8000-000000000003"
)

var expiresAt = time.Date(2024, 5, 9, 11, 0, 0, 0, time.UTC)

func sessionJSON() map[string]interface{} {
	return map[string]interface{}{
		"id":         sessionID,
		"active":     true,
		"expires_at": expiresAt.Format(time.RFC3339),
		"issued_at":  expiresAt.Add(-time.Hour).Format(time.RFC3339),
		"identity": map[string]interface{}{
			"id":         identityID,
			"schema_id":  "default",
			"schema_url": "http://kratos/schemas/default",
			"traits":     map[string]interface{}{"email": "ada@example.com", "full_name": "Ada Lovelace"},
		},
	}
}

func loginFlowJSON(messages ...map[string]interface{}) map[string]interface{} {
	if messages == nil {
		messages = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":          flowID,
		"type":        "api",
		"state":       "choose_method",
		"expires_at":  expiresAt.Format(time.RFC3339),
		"issued_at":   expiresAt.Add(-time.Hour).Format(time.RFC3339),
		"request_url": "http://kratos/self-service/login/api",
		"ui": map[string]interface{}{
			"action":   "http://kratos/self-service/login?flow=" + flowID,
			"method":   "POST",
			"nodes":    []interface{}{},
			"messages": messages,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newKratos(t *testing.T, whoamiStatus int) *kratosprovider.Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/whoami", func(w http.ResponseWriter, r *http.Request) {
		if whoamiStatus != http.StatusOK {
			writeJSON(w, whoamiStatus, map[string]interface{}{"error": map[string]interface{}{"code": whoamiStatus, "message": "no"}})
			return
		}
		if r.Header.Get("X-Session-Token") == recoveryToken {
			session := sessionJSON()
			session["authentication_methods"] = []map[string]interface{}{{"method": "code_recovery"}}
			writeJSON(w, http.StatusOK, session)
			return
		}
		if r.Header.Get("X-Session-Token") != validToken {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": map[string]interface{}{"code": 401, "message": "unauthorized"}})
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON())
	})
	mux.HandleFunc("GET /self-service/login/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, loginFlowJSON())
	})
	mux.HandleFunc("POST /self-service/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, flowID, r.URL.Query().Get("flow"))
		if body["password"] != "s3cretpass" {
			writeJSON(w, http.StatusBadRequest, loginFlowJSON(map[string]interface{}{
				"id": 4000006, "text": "The provided credentials are invalid", "type": "error",
			}))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session":       sessionJSON(),
			"session_token": validToken,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return kratosprovider.New(srv.URL, srv.URL, 2*time.Second)
}

func TestLookupSession(t *testing.T) {
	ctx := context.Background()
	p := newKratos(t, http.StatusOK)

	t.Run("valid token", func(t *testing.T) {
		session, err := p.LookupSession(ctx, validToken)
		require.NoError(t, err)
		require.Equal(t, identityID, session.IdentityID)
		require.Equal(t, "ada@example.com", session.Email)
		require.True(t, expiresAt.Equal(session.ExpiresAt))
		require.Equal(t, validToken, session.Token)
		require.False(t, session.Recovery)
	})

	t.Run("recovery session", func(t *testing.T) {
		session, err := p.LookupSession(ctx, recoveryToken)
		require.NoError(t, err)
		require.True(t, session.Recovery)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := p.LookupSession(ctx, "ory_st_other")
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}

func TestLookupSessionServerError(t *testing.T) {
	p := newKratos(t, http.StatusServiceUnavailable)

	_, err := p.LookupSession(context.Background(), validToken)
	var transient *apperrors.TransientError
	require.True(t, errors.As(err, &transient), "got %v", err)
}

func TestUnreachableKratosIsTransient(t *testing.T) {
	p := kratosprovider.New("http://127.0.0.1:1", "http://127.0.0.1:1", 200*time.Millisecond)

	_, err := p.LookupSession(context.Background(), validToken)
	var transient *apperrors.TransientError
	require.True(t, errors.As(err, &transient), "got %v", err)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	p := newKratos(t, http.StatusOK)

	t.Run("success", func(t *testing.T) {
		session, err := p.Authenticate(ctx, "ada@example.com", "s3cretpass")
		require.NoError(t, err)
		require.Equal(t, validToken, session.Token)
		require.Equal(t, identityID, session.IdentityID)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}
