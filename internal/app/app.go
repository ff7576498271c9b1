// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/internal/bootstrap"
	"github.com/AccelByte/extend-challenge-ledger/internal/config"
	"github.com/AccelByte/extend-challenge-ledger/internal/server"
	actionBuiltin "github.com/AccelByte/extend-challenge-ledger/pkg/action/builtin"
	"github.com/AccelByte/extend-challenge-ledger/pkg/handler"
	"github.com/AccelByte/extend-challenge-ledger/pkg/ledger"
	"github.com/AccelByte/extend-challenge-ledger/pkg/pipeline"
	"github.com/AccelByte/extend-challenge-ledger/pkg/service"
	"github.com/AccelByte/extend-challenge-ledger/pkg/session"
	"github.com/AccelByte/extend-challenge-ledger/pkg/state"
	"github.com/cenkalti/backoff/v4"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	httpServer        *server.HTTPServer
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	hooks             *pipeline.Manager
	redisClient       *redis.Client
	shutdownTelemetry func(context.Context) error

	// AccelByte SDK repositories, set only when a platform service is needed
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates and initializes a new application instance.
//
// Components are initialized in dependency order:
//  1. Redis (ledger and session state)
//  2. Hooks config (YAML)
//  3. AccelByte SDK, when entitlement payouts or hooks need it
//  4. Stores and platform services
//  5. Hooks (actions → hook manager)
//  6. Payer and ledger, publishing to the hook manager
//  7. Session mirror
//  8. Servers (HTTP, gRPC, metrics)
//  9. Telemetry (OpenTelemetry tracing)
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// Step 1: Initialize Redis
	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	// Step 2: Load hooks configuration
	hooksConfig, err := pipeline.LoadConfig(cfg.HooksConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load hooks config from %s: %w", cfg.HooksConfigPath, err)
	}
	logrus.Infof("loaded hooks configuration from %s", cfg.HooksConfigPath)

	// Step 3: Initialize Client Auth using AccelByte SDK when needed
	usePlatform := cfg.PayoutMode == config.PayoutModeEntitlement || bootstrap.NeedsPlatform(hooksConfig)
	if usePlatform {
		if err := cfg.ValidateAccelByte(); err != nil {
			return nil, fmt.Errorf("AccelByte configuration required: %w", err)
		}
		if err := app.initAccelByteSDKAuth(); err != nil {
			return nil, fmt.Errorf("failed to init AccelByte SDK: %w", err)
		}
	} else {
		logrus.Info("no AccelByte services needed, skipping SDK login")
	}

	// Step 4: Stores and platform services
	store := state.NewRedisStore(app.redisClient, state.RedisStoreConfig{})
	sessions := state.NewRedisSessionStore(app.redisClient, state.RedisSessionStoreConfig{TTL: cfg.SessionTTL})

	var (
		itemGranter     service.EntitlementGranter
		userStatUpdater service.UserStatisticUpdater
	)
	if usePlatform {
		itemGranter = app.initItemGranter()
		userStatUpdater = app.initStatisticService()
	}

	// Step 5: Hooks
	deps := &actionBuiltin.Dependencies{
		EntitlementGranter: itemGranter,
		UserStatUpdater:    userStatUpdater,
		UserResolver:       store,
		Logger:             logrus.StandardLogger(),
	}
	actionExecutor, actionRegistry, err := bootstrap.InitActionExecutor(hooksConfig, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to init action executor: %w", err)
	}
	if err := pipeline.ValidateWiring(actionRegistry, hooksConfig); err != nil {
		return nil, fmt.Errorf("hook wiring validation failed: %w", err)
	}
	logrus.Info("hook wiring validation passed")
	app.hooks = bootstrap.InitHooks(actionExecutor, hooksConfig, cfg.HookQueueSize)

	// Step 6: Payer and ledger
	payer, err := app.initPayer(store, itemGranter)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	operators := append([]string{cfg.OperatorAddress}, cfg.BootstrapOperators...)
	l, err := bootstrap.InitLedger(ctx, store, payer,
		ledger.Config{Policy: policy, Owner: cfg.OwnerAddress},
		operators,
		ledger.WithEventSink(app.hooks),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger: %w", err)
	}

	// Step 7: Session mirror
	sessionService, err := session.NewService(l, sessions, session.Config{
		Operator:     cfg.OperatorAddress,
		Projection:   cfg.ProjectionPolicy(),
		NpcTalkRate:  cfg.NpcTalkRate,
		NpcTalkBurst: cfg.NpcTalkBurst,
	}, session.WithUserLinker(store))
	if err != nil {
		return nil, fmt.Errorf("failed to init session service: %w", err)
	}

	// Step 8: Setup servers
	healthChecker := state.NewHealthChecker(app.redisClient)
	routes := []server.Routes{
		handler.NewChallenge(sessionService, cfg.ClaimSignatureRequired),
		handler.NewRPC(l, cfg.ChainID),
	}
	if cfg.AdminToken != "" {
		routes = append(routes, handler.NewAdmin(l, cfg.AdminToken))
	} else {
		logrus.Warn("ADMIN_TOKEN not set, admin endpoints disabled")
	}
	if !cfg.ClaimSignatureRequired {
		logrus.Warn("claim signatures are not required")
	}

	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, healthChecker, routes...)
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, healthChecker)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	// Step 9: Setup telemetry
	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.OtelServiceName, cfg.Environment, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initPayer selects how committed payouts reach the player.
func (a *App) initPayer(store *state.RedisStore, granter service.EntitlementGranter) (ledger.Payer, error) {
	switch a.cfg.PayoutMode {
	case config.PayoutModeEntitlement:
		logrus.Infof("payout mode: entitlement (item %s per unit)", a.cfg.RewardItemID)
		return service.NewEntitlementPayer(granter, store, a.cfg.RewardItemID), nil
	case config.PayoutModeLedger:
		logrus.Info("payout mode: ledger balance")
		return service.NewLedgerPayer(store), nil
	default:
		return nil, fmt.Errorf("unknown payout mode %q", a.cfg.PayoutMode)
	}
}

// initAccelByteSDKAuth initializes the AccelByte SDK auth by performing client login.
//
// The Client Auth is configured via environment variables:
// - AB_BASE_URL: AccelByte platform base URL
// - AB_CLIENT_ID: OAuth2 client ID
// - AB_CLIENT_SECRET: OAuth2 client secret
// - AB_NAMESPACE: Game namespace
//
// The SDK uses automatic token refresh (RefreshRate: 0.8 = 80% of TTL).
// configRepo and tokenRepo must be reused by all AccelByte services to share authentication.
func (a *App) initAccelByteSDKAuth() error {
	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()
	refreshRepo := &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8}

	oauthService := iam.OAuth20Service{
		Client:                 factory.NewIamClient(a.configRepo),
		ConfigRepository:       a.configRepo,
		TokenRepository:        a.tokenRepo,
		RefreshTokenRepository: refreshRepo,
	}

	clientID := a.configRepo.GetClientId()
	clientSecret := a.configRepo.GetClientSecret()

	if err := oauthService.LoginClient(&clientID, &clientSecret); err != nil {
		return fmt.Errorf("unable to login using clientId and clientSecret: %w", err)
	}

	logrus.Info("AccelByte SDK initialized and authenticated")
	return nil
}

// initRedis connects to Redis, retrying with exponential backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisAddr(),
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithContext(maxRetries, ctx),
	)

	if err != nil {
		_ = client.Close()
		return err
	}

	a.redisClient = client
	logrus.Infof("Redis client initialized (%s)", a.cfg.RedisAddr())
	return nil
}

// initItemGranter creates the entitlement service used by item payouts and
// grant_item hooks. It reuses the SDK session from initAccelByteSDKAuth.
func (a *App) initItemGranter() service.EntitlementGranter {
	fulfillmentService := &platform.FulfillmentService{
		Client:           factory.NewPlatformClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}

	return service.NewEntitlementService(fulfillmentService,
		service.EntitlementServiceConfig{
			Namespace: a.cfg.ABNamespace,
		})
}

// initStatisticService creates the statistic service used by update_stat hooks.
// It reuses the SDK session from initAccelByteSDKAuth.
func (a *App) initStatisticService() service.UserStatisticUpdater {
	statisticService := &social.UserStatisticService{
		Client:           factory.NewSocialClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}

	return service.NewStatisticService(statisticService,
		service.StatisticServiceConfig{
			Namespace: a.cfg.ABNamespace,
		})
}
