package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stowagehq/stowage/backend/internal/accounts"
	"github.com/stowagehq/stowage/backend/internal/auth"
	"github.com/stowagehq/stowage/backend/internal/config"
	"github.com/stowagehq/stowage/backend/internal/conversations"
	"github.com/stowagehq/stowage/backend/internal/database"
	"github.com/stowagehq/stowage/backend/internal/listings"
	"github.com/stowagehq/stowage/backend/internal/logging"
	"github.com/stowagehq/stowage/backend/internal/media"
	"github.com/stowagehq/stowage/backend/internal/orders"
	"github.com/stowagehq/stowage/backend/internal/reviews"
	"github.com/stowagehq/stowage/backend/internal/server"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stowage-api",
		Short: "Stowage marketplace backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("identity-audience", defaults.GetString("identity.audience"), "Identity provider audience (project id)")
	cmd.PersistentFlags().String("identity-jwks-url", defaults.GetString("identity.jwks_url"), "Identity provider JWKS URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "identity.audience", "identity-audience")
	bindFlag(cmd, "identity.jwks_url", "identity-jwks-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "stowage-auth",
		Audience:      "stowage-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	identityVerifier, err := auth.NewIdentityVerifier(auth.IdentityVerifierConfig{
		Audience: appConfig.IdentityAudience,
		JWKSURL:  appConfig.IdentityJWKSURL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var identityAdmin auth.IdentityAdmin
	if appConfig.IdentityAdminURL != "" {
		adminClient, err := auth.NewIdentityAdminClient(auth.IdentityAdminClientConfig{
			BaseURL: appConfig.IdentityAdminURL,
			APIKey:  appConfig.IdentityAdminKey,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		identityAdmin = adminClient
	}

	var mediaStore accounts.MediaStore
	if appConfig.MediaBucket != "" {
		store, err := media.NewStore(media.StoreConfig{
			Endpoint:      appConfig.MediaEndpoint,
			AccessKey:     appConfig.MediaAccessKey,
			SecretKey:     appConfig.MediaSecretKey,
			Bucket:        appConfig.MediaBucket,
			Region:        appConfig.MediaRegion,
			PublicBaseURL: appConfig.MediaPublicBaseURL,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		mediaStore = store
	}

	accountsService, err := accounts.NewService(accounts.ServiceConfig{
		Database:         db,
		IdentityAdmin:    identityAdmin,
		Media:            mediaStore,
		IdentityCDNHosts: appConfig.IdentityCDNHosts,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	listingsService, err := listings.NewService(listings.ServiceConfig{
		Database: db,
		Trips:    accountsService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	conversationsService, err := conversations.NewService(conversations.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ordersService, err := orders.NewService(orders.ServiceConfig{
		Database: db,
		Listings: listingsService,
		Sales:    listingsService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	reviewsService, err := reviews.NewService(reviews.ServiceConfig{
		Database:       db,
		SellerRatings:  accountsService,
		ListingRatings: listingsService,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		IdentityVerifier: identityVerifier,
		TokenManager:     tokenManager,
		Accounts:         accountsService,
		Listings:         listingsService,
		Conversations:    conversationsService,
		Orders:           ordersService,
		Reviews:          reviewsService,
		CookieName:       appConfig.CookieName,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
