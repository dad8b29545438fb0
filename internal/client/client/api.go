package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

type Address struct {
	ZipCode      string `json:"zipCode,omitempty"`
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
}

type Profile struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Document    string   `json:"document"`
	Phone       string   `json:"phone"`
	BirthDate   string   `json:"birthDate"`
	Avatar      string   `json:"avatar"`
	IsConfirmed bool     `json:"isConfirmed"`
	Address     *Address `json:"address"`
}

type RegisterRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName,omitempty"`
	Document  string   `json:"document,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	BirthDate string   `json:"birthDate,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// UpdateRequest is a partial change; nil fields are not sent.
type UpdateRequest struct {
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Entity  json.RawMessage `json:"entity"`
	Message string          `json:"message"`
}

type APIClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Logout forgets the session token. Tokens are stateless, so nothing is sent.
func (c *APIClient) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *APIClient) Login(ctx context.Context, email string, password []byte) (*Profile, error) {
	var out struct {
		Client Profile `json:"client"`
		Token  string  `json:"token"`
	}
	body := map[string]string{"email": email, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, false, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return &out.Client, nil
}

func (c *APIClient) Register(ctx context.Context, in RegisterRequest) (*Profile, error) {
	var out struct {
		Client Profile `json:"client"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/clients", in, false, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

func (c *APIClient) Me(ctx context.Context) (*Profile, error) {
	var out struct {
		Client Profile `json:"client"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, true, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

func (c *APIClient) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out struct {
		Clients []Profile `json:"clients"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/clients?"+q.Encode(), nil, true, &out); err != nil {
		return nil, err
	}
	return out.Clients, nil
}

func (c *APIClient) Update(ctx context.Context, in UpdateRequest) (*Profile, error) {
	var out struct {
		Client Profile `json:"client"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/clients/me", in, true, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

// Delete removes the account and logs out.
func (c *APIClient) Delete(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/clients/me", nil, true, nil); err != nil {
		return err
	}
	c.Logout()
	return nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in any, authed bool, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "undecodable response"}
	}
	if resp.StatusCode/100 != 2 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Entity) > 0 {
		if err := json.Unmarshal(env.Entity, out); err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpected, err)
		}
	}
	return nil
}
