// Package server wires the application together: storage, password hashing,
// sessions, the OAuth broker and the HTTP server, and runs it until a
// termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/auth"
	"github.com/dmitrijs2005/usersecrets/internal/server/config"
	"github.com/dmitrijs2005/usersecrets/internal/server/httpserver"
	"github.com/dmitrijs2005/usersecrets/internal/server/metrics"
	"github.com/dmitrijs2005/usersecrets/internal/server/oauth"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersecrets/internal/server/services"
	"github.com/dmitrijs2005/usersecrets/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

// App is the service context built once at startup and handed to the HTTP
// layer. Nothing in it is global.
type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	closers []func() error
	server  *httpserver.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	repos, err := openRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.repos = repos
	app.closers = append(app.closers, repos.Close)

	if err := repos.RunMigrations(ctx); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := app.openSessionStore(ctx)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("session store init error: %w", err)
	}

	hasher, err := auth.NewHasher(c.PasswordHasher, c.BcryptCost)
	if err != nil {
		app.close()
		return nil, err
	}

	us, err := services.NewUserService(repos, hasher, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	var external services.Strategy
	if c.OAuthEnabled() {
		broker := oauth.NewBroker(oauth.Config{
			ClientID:     c.OAuthClientID,
			ClientSecret: c.OAuthClientSecret,
			RedirectURL:  c.OAuthRedirectURL,
			Scopes:       c.OAuthScopes,
			AuthURL:      c.OAuthAuthURL,
			TokenURL:     c.OAuthTokenURL,
			UserInfoURL:  c.OAuthUserInfoURL,
			PendingTTL:   c.OAuthPendingTTL,
		}, repos.Users(), logger)
		external = services.NewOAuth2Strategy("google", broker)
	} else {
		logger.Warn(ctx, "OAuth client not configured, provider login disabled")
	}

	h := httpserver.NewHandler(httpserver.Deps{
		Users:         us,
		Secrets:       services.NewSecretService(repos, logger),
		Local:         services.NewLocalStrategy(us),
		External:      external,
		Sessions:      sessions.NewManager(store, []byte(c.SessionSecret), c.SessionTTL, logger),
		Repos:         repos,
		Metrics:       metrics.New(),
		Logger:        logger,
		CookieSecure:  c.CookieSecure,
		OAuthStateTTL: c.OAuthPendingTTL,
	})

	srv, err := httpserver.NewHTTPServer(httpserver.Options{
		Address:         c.HTTPAddr,
		ShutdownTimeout: c.ShutdownTimeout,
		AllowedOrigins:  c.AllowedOrigins,
	}, h, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.server = srv

	return app, nil
}

// openRepositories is a seam for tests.
var openRepositories = func(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StorageDriver {
	case config.StorageDriverMemory:
		return repomanager.NewMemoryRepositoryManager(), nil
	default:
		return repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	}
}

func (app *App) openSessionStore(ctx context.Context) (sessions.Store, error) {
	if app.config.SessionStore != config.SessionStoreRedis {
		return sessions.NewMemoryStore(), nil
	}

	client, err := sessions.NewRedisClient(ctx, app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)
	return sessions.NewRedisStore(client), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// releases the storage and session backends.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

// SetGinMode keeps gin quiet outside debug logging.
func SetGinMode(level string) {
	if level == "debug" {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
