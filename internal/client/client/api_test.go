package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

func writeEnvelope(w http.ResponseWriter, code int, success bool, entity any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if entity == nil {
		entity = struct{}{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "entity": entity, "message": msg})
}

func newTestServer(t *testing.T) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "correct horse" {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "invalid email or password")
			return
		}
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"client": map[string]any{"id": 7, "email": in["email"], "isConfirmed": true},
			"token":  "tok-123",
		}, "login successful")
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "authorization token is invalid")
			return
		}
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"client": map[string]any{"id": 7, "email": "ana@example.com", "address": map[string]any{"city": "Recife"}},
		}, "ok")
	})
	mux.HandleFunc("GET /api/clients", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"clients": []map[string]any{{"id": 1}, {"id": 2}},
		}, "ok")
	})
	mux.HandleFunc("POST /api/clients", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		writeEnvelope(w, http.StatusConflict, false, nil, "already exists: e-mail ana@example.com")
	})
	mux.HandleFunc("DELETE /api/clients/me", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r)
		writeEnvelope(w, http.StatusOK, true, nil, "client deleted")
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestLoginAndMe(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewAPIClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	p, err := c.Login(ctx, "ana@example.com", []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, c.LoggedIn())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me.Address)
	assert.Equal(t, "Recife", me.Address.City)

	c.Logout()
	assert.False(t, c.LoggedIn())
}

func TestLogin_WrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewAPIClient(srv.URL, time.Second)

	_, err := c.Login(context.Background(), "ana@example.com", []byte("nope"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Message)
	assert.False(t, c.LoggedIn())
}

func TestRegister_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewAPIClient(srv.URL, time.Second)

	_, err := c.Register(context.Background(), RegisterRequest{Email: "ana@example.com", Password: "x"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestListAndDelete(t *testing.T) {
	srv, seen := newTestServer(t)
	c := NewAPIClient(srv.URL, time.Second)
	ctx := context.Background()
	_, err := c.Login(ctx, "ana@example.com", []byte("correct horse"))
	require.NoError(t, err)

	list, err := c.List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	last := (*seen)[len(*seen)-1]
	assert.Equal(t, "5", last.URL.Query().Get("limit"))
	assert.Equal(t, "10", last.URL.Query().Get("offset"))

	require.NoError(t, c.Delete(ctx))
	assert.False(t, c.LoggedIn(), "deleting the account ends the session")
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.NoError(t, NewAPIClient(srv.URL, time.Second).Ping(context.Background()))

	srv.Close()
	err := NewAPIClient(srv.URL, time.Second).Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAPIError_Unwrap(t *testing.T) {
	tests := map[int]error{
		http.StatusBadRequest:          common.ErrorValidation,
		http.StatusUnauthorized:        common.ErrorUnauthorized,
		http.StatusForbidden:           common.ErrorNotConfirmed,
		http.StatusNotFound:            common.ErrorNotFound,
		http.StatusConflict:            common.ErrorConflict,
		http.StatusTooManyRequests:     ErrRateLimited,
		http.StatusInternalServerError: common.ErrorInternal,
		http.StatusTeapot:              ErrUnexpected,
	}
	for code, want := range tests {
		assert.ErrorIs(t, &APIError{Status: code}, want, "status %d", code)
	}
}
