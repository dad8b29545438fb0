// Package server wires the account backend together: configuration, logger,
// database and migrations, token manager, avatar storage, notifications, the
// account service and the HTTP and gRPC listeners. Run blocks until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/server/auth"
	"github.com/dmitrijs2005/clientkeeper/internal/server/config"
	"github.com/dmitrijs2005/clientkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/clientkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/clientkeeper/internal/server/notify"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/clientkeeper/internal/server/services"
	"github.com/dmitrijs2005/clientkeeper/internal/server/storage"

	gs "github.com/dmitrijs2005/clientkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.API
	grpc   *gs.GRPCServer
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if c.SecretKey == "" {
		return nil, fmt.Errorf("secret key is not configured")
	}
	proxies, err := httpapi.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var opts []auth.Option
	if c.TokenRevocation {
		opts = append(opts, auth.WithRevocationList(auth.NewMemoryRevocationList(time.Now)))
	}
	tokens := auth.NewManager([]byte(c.SecretKey), c.TokenValidityDuration, opts...)
	logger.Info(ctx, "token manager ready", "ttl", tokens.TTL().String(), "revocation", c.TokenRevocation)

	images, err := storage.NewS3ImageStore(ctx, storage.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		Folder:       c.ImageFolder,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	notifier, err := notify.NewTemplateNotifier(notify.NewLogSender(logger), c.MailFrom, c.PublicBaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("templates error: %w", err)
	}

	metrics.Init()

	accounts := services.NewAccountService(db, rm, tokens, images, notifier, c, logger)
	api := httpapi.New(accounts, tokens, notifier, httpapi.ReadyCheck{DB: db},
		httpapi.RateLimit{PerSecond: c.LoginRatePerSecond, Burst: c.LoginRateBurst, TrustedProxies: proxies}, logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		api:    api,
		grpc:   gs.NewGRPCServer(c.EndpointAddrGRPC, logger, tokens),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.api.Serve(ctx, app.config.EndpointAddrHTTP); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
