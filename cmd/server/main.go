package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asr-auth/internal/audit"
	auditrepo "asr-auth/internal/audit/repository"
	"asr-auth/internal/auth"
	"asr-auth/internal/config"
	"asr-auth/internal/db"
	"asr-auth/internal/health"
	"asr-auth/internal/logger"
	"asr-auth/internal/policy/engine"
	"asr-auth/internal/security"
	"asr-auth/internal/server"
	"asr-auth/internal/server/interceptors"
	"asr-auth/internal/session/registry"
	"asr-auth/internal/telemetry"
	otelsetup "asr-auth/internal/telemetry/otel"
	"asr-auth/internal/telemetry/producer"
	"asr-auth/internal/token"
	tokenrepo "asr-auth/internal/token/repository"
	"asr-auth/internal/user"
	userrepo "asr-auth/internal/user/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	serviceName         = "asr-auth"
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

// stores are the persistence backends: Postgres when DATABASE_URL is set, memory otherwise.
type stores struct {
	conn   *sql.DB
	users  auth.UserRepo
	tokens tokenrepo.Store
	audit  auditrepo.Repository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").Fatalf("config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.conn != nil {
		defer st.conn.Close()
	}

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}
	reg := registry.NewMemoryRegistry()
	svc := auth.Wire(st.users, st.tokens, reg, issuer, security.NewHasher(cfg.BcryptCost), auth.Options{
		TTL:                     cfg.TokenLifetime(),
		LockoutThreshold:        cfg.LockoutThreshold,
		PreventLoginWhenMaximum: cfg.PreventLoginWhenMaximum,
		Log:                     log,
	})

	policy := ""
	if cfg.AuthzPolicyFile != "" {
		if policy, err = engine.LoadPolicyFile(cfg.AuthzPolicyFile); err != nil {
			return err
		}
	}
	evaluator, err := engine.NewOPAEvaluator(ctx, policy)
	if err != nil {
		return err
	}

	emitters := []telemetry.EventEmitter{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.WithField("topic", cfg.TelemetryKafkaTopic).Info("auth events published to kafka")
	}
	emitter := telemetry.Multi(emitters...)

	checker := &health.Checker{PolicyChecker: evaluator}
	if st.conn != nil {
		checker.Pinger = st.conn
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	auditLogger := audit.NewLogger(st.audit, interceptors.ClientIP, log)
	router, err := server.NewRouter(server.HTTPDeps{
		Auth:      svc,
		Registry:  reg,
		AllowList: cfg.AllowListPatterns(),
		Evaluator: evaluator,
		Audit:     auditLogger,
		AuditRepo: st.audit,
		Emitter:   emitter,
		Health:    checker,
		// Forwarded headers are only honoured from TRUSTED_PROXIES.
		TrustedProxies: cfg.TrustedProxyList(),
		Log:            log,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var stopGRPC func()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv, hs := server.NewGRPCServer(server.GRPCDeps{
			Authenticator: svc,
			Evaluator:     evaluator,
			Audit:         auditLogger,
			Emitter:       emitter,
			Log:           log,
		})
		go server.WatchHealth(ctx, hs, checker, healthCheckInterval, log)
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
		stopGRPC = grpcSrv.GracefulStop
	}

	sweeper := &token.Sweeper{
		Tokens:   st.tokens,
		Sessions: reg,
		Interval: cfg.SweepInterval(),
		TTL:      cfg.TokenLifetime(),
		Log:      log,
	}
	go sweeper.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-errCh:
		log.WithError(err).Error("listener failed; shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	if stopGRPC != nil {
		stopGRPC()
	}

	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		log.WithError(err).Warn("kafka producer close")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("otel shutdown")
	}
	log.Info("stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stores, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres stores")
		return &stores{
			conn:   conn,
			users:  userrepo.NewPostgresRepository(conn),
			tokens: tokenrepo.NewPostgresStore(conn),
			audit:  auditrepo.NewPostgresRepository(conn),
		}, nil
	}

	users := userrepo.NewMemoryRepository()
	if cfg.Env != "production" {
		n, err := user.SeedDevUsers(ctx, users, security.NewHasher(cfg.BcryptCost))
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"users": n, "login": user.DevUser}).Warn("DATABASE_URL not set; using in-memory stores with development users")
	} else {
		log.Warn("DATABASE_URL not set; using empty in-memory stores")
	}
	return &stores{
		users:  users,
		tokens: tokenrepo.NewMemoryStore(),
		audit:  auditrepo.NewMemoryRepository(),
	}, nil
}

func newIssuer(cfg *config.Config) (security.Issuer, error) {
	if cfg.TokenFormat != config.TokenFormatJWT {
		return security.NewOpaqueIssuer(), nil
	}
	priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewJWTIssuer(priv, pub, cfg.JWTIssuer, cfg.JWTAudience), nil
}
