// Package httpapi is the public HTTP surface of the account backend: JSON
// endpoints under /api, the confirmation page, health checks and metrics.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/netip"

	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/notify"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
)

// maxBodyBytes leaves room for a base64 avatar at storage.MaxImageBytes.
const maxBodyBytes = 8 << 20

// Accounts is the part of services.AccountService the handlers use.
type Accounts interface {
	Login(ctx context.Context, email, secret string) (*services.LoginResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.Profile, error)
	Confirm(ctx context.Context, rawToken string) (services.ConfirmStatus, *models.Client, error)
	Me(ctx context.Context, clientID int64) (*services.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*services.Profile, error)
	Update(ctx context.Context, clientID int64, in services.UpdateInput) (*services.Profile, error)
	Delete(ctx context.Context, clientID int64) error
}

// TokenValidator checks an Authorization header value.
type TokenValidator interface {
	Validate(rawHeader string) (*auth.ValidatedClaims, error)
}

// PageRenderer renders the HTML shown after a confirmation link is followed.
type PageRenderer interface {
	Render(client *models.Client, kind notify.Kind, extra string) (string, error)
}

// ReadyCheck reports whether the database is reachable.
type ReadyCheck struct {
	DB *sql.DB
}

func (rp ReadyCheck) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// RateLimit configures per-IP throttling of login and registration. A
// non-positive PerSecond disables it.
//
// X-Forwarded-For is honoured only when the direct peer falls in one of
// TrustedProxies; the client is then the rightmost untrusted hop. With no
// trusted proxies the peer address is used as is.
type RateLimit struct {
	PerSecond      int
	Burst          int
	TrustedProxies []netip.Prefix
}

type API struct {
	mux      *http.ServeMux
	accounts Accounts
	tokens   TokenValidator
	pages    PageRenderer
	ready    ReadyCheck
	logger   logging.Logger
	limiter  *ipLimiter
}

func New(accounts Accounts, tokens TokenValidator, pages PageRenderer, ready ReadyCheck, limit RateLimit, logger logging.Logger) *API {
	if logger == nil {
		logger = logging.Nop{}
	}
	a := &API{
		mux:      http.NewServeMux(),
		accounts: accounts,
		tokens:   tokens,
		pages:    pages,
		ready:    ready,
		logger:   logger.With("module", "http_api"),
		limiter:  newIPLimiter(limit),
	}

	a.mux.Handle("POST /api/login", a.limiter.Middleware(http.HandlerFunc(a.Login)))
	a.mux.Handle("POST /api/clients", a.limiter.Middleware(http.HandlerFunc(a.Register)))
	a.mux.HandleFunc("GET /api/confirm/{token}", a.Confirm)

	a.mux.Handle("GET /api/me", a.RequireAuth(http.HandlerFunc(a.Me)))
	a.mux.Handle("GET /api/clients", a.RequireAuth(http.HandlerFunc(a.List)))
	a.mux.Handle("PUT /api/clients/me", a.RequireAuth(http.HandlerFunc(a.Update)))
	a.mux.Handle("DELETE /api/clients/me", a.RequireAuth(http.HandlerFunc(a.Delete)))

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", metrics.Handler())

	return a
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	return RequestID(metrics.Instrument(a.Logging(SecurityHeaders(MaxBodyBytes(a.mux, maxBodyBytes)))))
}
