// Package server initializes and runs the identity service: it opens the
// database and Redis, selects the mail transport, builds the auth service and
// serves the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/dmitrijs2005/talenthub/internal/server/auth"
	"github.com/dmitrijs2005/talenthub/internal/server/codecache"
	"github.com/dmitrijs2005/talenthub/internal/server/config"
	"github.com/dmitrijs2005/talenthub/internal/server/httpapi"
	"github.com/dmitrijs2005/talenthub/internal/server/metrics"
	"github.com/dmitrijs2005/talenthub/internal/server/notify"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/talenthub/internal/server/services"
	"github.com/dmitrijs2005/talenthub/internal/server/telemetry"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	nats     *nats.Conn
	handler  http.Handler
	shutdown telemetry.Shutdown
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	shutdown, err := telemetry.Init(ctx, c.ServiceName, c.OTLPEndpoint)
	if err != nil {
		return err
	}
	app.shutdown = shutdown

	app.db, err = dbx.Open(ctx, c.DatabaseDSN, dbx.DefaultPoolOptions)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, app.db); err != nil {
			return fmt.Errorf("migrations error: %w", err)
		}
	}

	app.redis, err = codecache.NewRedisClient(ctx, c.RedisURL)
	if err != nil {
		return fmt.Errorf("redis init error: %w", err)
	}

	mailer, nc, err := newMailer(c, app.logger)
	if err != nil {
		return fmt.Errorf("mail transport error: %w", err)
	}
	app.nats = nc

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewAuth(registry)

	codec, err := auth.NewCodec(auth.CodecConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return err
	}

	gateway := notify.NewGateway(mailer, app.logger, m, notify.GatewayConfig{
		Brand:           c.Mail.FromName,
		FrontendURL:     c.FrontendURL,
		APIBaseURL:      c.APIBaseURL,
		VerificationTTL: c.VerificationTokenValidityDuration,
		TwoFactorTTL:    c.TwoFactorCodeValidityDuration,
	})

	authService := services.NewAuthService(services.AuthDeps{
		DB:          app.db,
		RepoManager: rm,
		Codec:       codec,
		Codes:       codecache.NewRedisCache(app.redis),
		Notifier:    gateway,
		Hasher:      auth.NewBcryptHasher(c.BcryptCost),
		Logger:      app.logger,
		Metrics:     m,
	}, c)

	app.handler = httpapi.NewRouter(httpapi.RouterOptions{
		Auth:               authService,
		Logger:             app.logger,
		Gatherer:           registry,
		Ready:              app.ready,
		AllowedOrigins:     c.AllowedOrigins,
		RateLimitPerMinute: c.RateLimitPerMinute,
		ServiceName:        c.ServiceName,
	})
	return nil
}

// newMailer builds the transport selected by c.Mail.Transport. The returned
// NATS connection is non-nil only for the nats transport.
func newMailer(c *config.Config, logger logging.Logger) (notify.Mailer, *nats.Conn, error) {
	from := notify.Sender{Address: c.Mail.FromAddress, Name: c.Mail.FromName}

	switch c.Mail.Transport {
	case config.MailTransportLog:
		return notify.NewLogMailer(logger), nil, nil
	case config.MailTransportSMTP:
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     c.Mail.SMTPHost,
			Port:     c.Mail.SMTPPort,
			Username: c.Mail.SMTPUsername,
			Password: c.Mail.SMTPPassword,
			Secure:   c.Mail.SMTPSecure,
			From:     from,
		}), nil, nil
	case config.MailTransportBrevo:
		client := &http.Client{Timeout: 10 * time.Second}
		return notify.NewBrevoMailer(client, c.Mail.BrevoEndpoint, c.Mail.BrevoAPIKey, from), nil, nil
	case config.MailTransportNATS:
		nc, err := notify.ConnectNATS(c.Mail.NATSURL, c.ServiceName)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewNATSMailer(nc, c.Mail.NATSSubject, from), nc, nil
	}
	return nil, nil, fmt.Errorf("unknown mail transport %q", c.Mail.Transport)
}

func (app *App) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var errs []error
	if err := app.db.PingContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	if err := app.redis.Ping(ctx).Err(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if app.nats != nil && !app.nats.IsConnected() {
		errs = append(errs, errors.New("nats: not connected"))
	}
	return errors.Join(errs...)
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
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
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

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close(context.WithoutCancel(ctx))
}

// Close releases every client the app opened. It is safe on a partially
// initialized App.
func (app *App) Close(ctx context.Context) {
	if app.nats != nil {
		app.nats.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close failed", "error", err)
		}
	}
	if app.shutdown != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := app.shutdown(sctx); err != nil {
			app.logger.Warn(ctx, "telemetry shutdown failed", "error", err)
		}
	}
}
