package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/client/client"
	"github.com/dmitrijs2005/clientkeeper/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// accountAPI is the part of client.APIClient the commands use.
type accountAPI interface {
	Ping(ctx context.Context) error
	Login(ctx context.Context, email string, password []byte) (*client.Profile, error)
	Register(ctx context.Context, in client.RegisterRequest) (*client.Profile, error)
	Me(ctx context.Context) (*client.Profile, error)
	List(ctx context.Context, limit, offset int) ([]client.Profile, error)
	Update(ctx context.Context, in client.UpdateRequest) (*client.Profile, error)
	Delete(ctx context.Context) error
	Logout()
	LoggedIn() bool
}

type App struct {
	config   *config.Config
	api      accountAPI
	userName string
	reader   *bufio.Reader
	out      io.Writer

	// mode is written by the watcher goroutine.
	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	api := client.NewAPIClient(c.ServerURL, c.RequestTimeout)
	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	return s + string(a.Mode())
}

// Run greets the user, starts the connectivity watcher and blocks in the
// REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to clientkeeper CLI (type 'help' for commands)")

	pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
	if err := a.api.Ping(pctx); err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
	pcancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.api.Ping(ctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
