// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/petauth/admin"
	"github.com/moov-io/petauth/pkg/revocation"

	"github.com/caarlos0/env/v11"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	httpAddr  = flag.String("http.addr", ":8080", "HTTP listen address")
	adminAddr = flag.String("admin.addr", ":9090", "Admin HTTP listen address")

	logger log.Logger

	// Metrics
	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})
	authInactivations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_inactivations",
		Help: "Count of tokens invalidated by logout",
	}, []string{"method"})

	tokenGenerations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_token_generations",
		Help: "Count of auth tokens created",
	}, []string{"method"})

	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "http_errors",
		Help: "Count of how many 5xx errors we send out",
	}, []string{"component"})
)

const Version = "0.2.0-dev"

// config is read from the environment.
type config struct {
	SqlitePath   string        `env:"SQLITE_DB_PATH" envDefault:"auth.db"`
	DenylistPath string        `env:"DENYLIST_DB_PATH" envDefault:"denylist.db"`
	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"petauth"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`

	Profiles admin.ProfileConfig
}

func readConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("problem reading config: %v", err)
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	// Setup logging, default to stdout
	logger = log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting auth server version %s", Version))

	if err := run(logger); err != nil {
		logger.Log("exit", err)
		os.Exit(1)
	}
}

// run wires everything together and serves until a signal arrives
// or a listener fails. Startup errors are returned.
func run(logger log.Logger) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	admin.Init(cfg.Profiles)

	// Listen for application termination.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	db, err := migrate(logger, cfg.SqlitePath)
	if err != nil {
		return err
	}
	accounts := &sqliteAccountRepository{db}
	defer accounts.close()

	ctx, cancelCollector := context.WithCancel(context.Background())
	defer cancelCollector()
	go promMetricCollector{}.run(ctx, db)

	revoked, err := revocation.New(cfg.DenylistPath)
	if err != nil {
		return err
	}
	defer revoked.Close()

	svc, err := newAuthService(logger, cfg, accounts, revoked)
	if err != nil {
		return err
	}

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:    *httpAddr,
		Handler: svc.handler(),
		TLSConfig: &tls.Config{
			InsecureSkipVerify:       false,
			PreferServerCipherSuites: true,
			MinVersion:               tls.VersionTLS12,
		},
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}
	shutdownServer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serve.Shutdown(ctx); err != nil {
			logger.Log("shutdown", err)
		}
	}

	adminService := admin.SetupServer(*adminAddr, cfg.Profiles)
	adminService.AddLivenessCheck("sqlite", db.PingContext)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminService.BindAddress()))
		if err := adminService.Listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		errs <- serve.ListenAndServe()
	}()

	select {
	case sig := <-signals:
		logger.Log("shutdown", sig)
		err = nil
	case err = <-errs:
	}
	adminService.Shutdown()
	shutdownServer()
	return err
}

func newAuthService(logger log.Logger, cfg config, accounts accountRepository, revoked denylist) (*authService, error) {
	hasher, err := newPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := newTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, revoked)
	if err != nil {
		return nil, err
	}
	return &authService{
		logger:   logger,
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
	}, nil
}
