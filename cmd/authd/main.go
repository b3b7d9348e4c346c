// Command authd runs the identity provider: account registration and login,
// session management, permission-gated project listings, and an OAuth 2.0
// authorization code provider.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AustinSDK/Authincation-service/auth"
	"github.com/AustinSDK/Authincation-service/config"
	"github.com/AustinSDK/Authincation-service/logging"
	"github.com/AustinSDK/Authincation-service/oauth"
	"github.com/AustinSDK/Authincation-service/project"
	"github.com/AustinSDK/Authincation-service/ratelimit"
	"github.com/AustinSDK/Authincation-service/server"
	"github.com/AustinSDK/Authincation-service/store"
	"github.com/AustinSDK/Authincation-service/store/memstore"
	"github.com/AustinSDK/Authincation-service/store/postgres"
	"github.com/AustinSDK/Authincation-service/store/sqlite"
)

func main() {
	config.EnsureDefaultsLoaded()

	logger := logging.NewProdLogger()
	if config.Bool("logging.dev") {
		logger = logging.NewDevLogger()
	}
	logging.SetDefault(logger)

	if msg := config.FormatValidationWarnings(config.ValidateKeys(config.Config)); msg != "" {
		logger.Warn(msg)
	}

	signingKey := config.Bytes("auth.signingKey")
	if len(signingKey) == 0 {
		logger.Fatal("auth.signingKey must be configured")
	}

	st, err := openStore()
	if err != nil {
		logger.Fatalw("failed to open store", "error", err)
	}
	defer st.Close()

	authSvc, err := auth.NewService(st, auth.DefaultHasher, signingKey,
		config.Int("cache.userCacheSize"))
	if err != nil {
		logger.Fatalw("failed to initialize auth service", "error", err)
	}

	srv := server.New(server.Options{
		Addr:            net.JoinHostPort(config.String("server.host"), strconv.Itoa(config.Int("server.port"))),
		ExternalAddress: config.String("address"),
		Auth:            authSvc,
		Projects:        project.NewService(st),
		OAuth: oauth.NewService(st,
			config.Duration("oauth.codeExpiry"),
			config.Duration("oauth.tokenExpiry")),
		Limiter: ratelimit.New(config.Int("ratelimit.limit"), config.Duration("ratelimit.window")),
		Logger:  logger,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorw("shutdown error", "error", err)
		}
	}()

	logger.Infow("starting", "name", config.String("name"), "driver", config.String("storage.driver"))
	if err := srv.Start(); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}

func openStore() (store.Store, error) {
	dsn := config.String("storage.dsn")
	switch driver := config.String("storage.driver"); driver {
	case "postgres":
		return postgres.Open(dsn)
	case "memory":
		return memstore.New(), nil
	default:
		return sqlite.Open(dsn)
	}
}
