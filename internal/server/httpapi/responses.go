package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
)

type envelope struct {
	Success bool   `json:"success"`
	Entity  any    `json:"entity"`
	Message string `json:"message"`
}

func writeEnvelope(w http.ResponseWriter, code int, success bool, entity any, message string) {
	if entity == nil {
		entity = struct{}{}
	}
	writeJSON(w, code, envelope{Success: success, Entity: entity, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and token errors to a status code. A rolled-back
// write reports its failed step and cause; other internal details never reach
// the client.
func writeError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	writeEnvelope(w, code, false, nil, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorTransaction):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, common.ErrorInternal):
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrMalformedHeader):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrMissingToken),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorNotConfirmed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "client not found"
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

type addressView struct {
	ID           int64  `json:"id"`
	ZipCode      string `json:"zipCode"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// clientView is what callers see of a client. Credentials are not part of it.
type clientView struct {
	ID          int64        `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Document    string       `json:"document,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	BirthDate   string       `json:"birthDate,omitempty"`
	Avatar      string       `json:"avatar,omitempty"`
	IsConfirmed bool         `json:"isConfirmed"`
	CreatedAt   time.Time    `json:"createdAt"`
	Address     *addressView `json:"address,omitempty"`
}

func newClientView(p *services.Profile) *clientView {
	c := p.Client
	v := &clientView{
		ID:          c.ID,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Document:    c.Document,
		Phone:       c.Phone,
		Avatar:      p.AvatarURL,
		IsConfirmed: c.IsConfirmed,
		CreatedAt:   c.CreatedAt,
	}
	if c.BirthDate != nil {
		v.BirthDate = c.BirthDate.Format("2006-01-02")
	}
	if p.Address != nil {
		v.Address = newAddressView(p.Address)
	}
	return v
}

func newAddressView(a *models.Address) *addressView {
	return &addressView{
		ID:           a.ID,
		ZipCode:      a.ZipCode,
		Street:       a.Street,
		Number:       a.Number,
		Complement:   a.Complement,
		Neighborhood: a.Neighborhood,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
	}
}
