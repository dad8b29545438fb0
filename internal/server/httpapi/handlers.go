package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/server/notify"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	return nil
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, true, map[string]any{
		"client": newClientView(res.Profile),
		"token":  res.Token,
	}, "login successful")
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, true, map[string]any{
		"client": newClientView(p),
	}, "client created, check your e-mail to confirm the account")
}

// Confirm is the target of the e-mailed link. A fresh confirmation gets an
// HTML page, everything else the usual JSON envelope.
func (a *API) Confirm(w http.ResponseWriter, r *http.Request) {
	status, client, err := a.accounts.Confirm(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	if status == services.ConfirmStatusAlreadyConfirmed {
		writeEnvelope(w, http.StatusOK, true, nil, "account already confirmed")
		return
	}

	page, err := a.pages.Render(client, notify.KindConfirmAccountCreation, "")
	if err != nil {
		a.logger.Error(r.Context(), "confirmation page render failed", "error", err)
		writeEnvelope(w, http.StatusOK, true, nil, "account confirmed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	p, err := a.accounts.Me(r.Context(), claims.SubjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, true, map[string]any{"client": newClientView(p)}, "ok")
}

func (a *API) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := a.accounts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]*clientView, 0, len(list))
	for _, p := range list {
		views = append(views, newClientView(p))
	}
	writeEnvelope(w, http.StatusOK, true, map[string]any{
		"clients": views,
		"limit":   limit,
		"offset":  offset,
	}, "ok")
}

func (a *API) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	var in services.UpdateInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.accounts.Update(r.Context(), claims.SubjectID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, true, map[string]any{"client": newClientView(p)}, "client updated")
}

func (a *API) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if err := a.accounts.Delete(r.Context(), claims.SubjectID); err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, true, nil, "client deleted")
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "clientkeeper"})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		a.logger.Warn(r.Context(), "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, name)
	}
	return v, nil
}
