package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/config"
	"github.com/vnkhanh/taskboard-server/controllers"
	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/middleware"
	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/routes"
	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/tokenstore"
	"github.com/vnkhanh/taskboard-server/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(utils.LogConfig{
		Service: "taskboard-server",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	pingers := map[string]controllers.Pinger{}
	store, err := newTokenStore(cfg, pingers)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	jwt := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	hub := realtime.NewHub(logger)

	notifier := services.NewNotifier(m)
	authz := services.NewAuthzService(db)
	tokens := services.NewTokenService(store)
	boards := services.NewBoardService(db, authz)
	members := services.NewMemberService(db, authz, notifier, cfg.FrontendBaseURL)
	lists := services.NewListService(db, authz, hub)
	cards := services.NewCardService(db, authz, hub)
	invitations := services.NewInvitationService(db, tokens, authz, members, notifier, services.InvitationConfig{
		AcceptBaseURL:         cfg.BackendBaseURL + "/api/scrumboard",
		TTL:                   cfg.InviteTTL,
		ValidateBeforeConsume: cfg.InviteCompleteValidateFirst,
	})
	exports := services.NewExportService(db, authz, cfg.ExportDir)
	attachments := services.NewAttachmentService(db, cards, newUploader(cfg), hub)

	var google services.IdentityVerifier
	if cfg.GoogleClientID != "" {
		google = utils.NewGoogleVerifier(cfg.GoogleClientID)
	}
	authSvc := services.NewAuthService(db, jwt, google)
	auth := middleware.NewAuth(jwt, authSvc)

	loginLimiter := middleware.NewIPRateLimiter(10, 5, 5*time.Minute)
	defer loginLimiter.Close()
	inviteLimiter := middleware.NewIPRateLimiter(20, 10, 5*time.Minute)
	defer inviteLimiter.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowWildcard:    true,
	}))
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}

	routes.SetupRoutes(r, routes.Deps{
		Auth:          auth,
		LoginLimiter:  loginLimiter,
		InviteLimiter: inviteLimiter,
		Users:         controllers.NewAuthController(authSvc),
		Boards:        controllers.NewBoardController(boards, members),
		Lists:         controllers.NewListController(lists),
		Cards:         controllers.NewCardController(cards),
		Invitations:   controllers.NewInvitationController(invitations, cfg.FrontendBaseURL),
		Exports:       controllers.NewExportController(exports),
		Attachments:   controllers.NewAttachmentController(attachments),
		Realtime:      controllers.NewRealtimeController(realtime.NewHandler(hub, auth, authz, cfg.CORSOrigins), hub),
		Health:        controllers.NewHealthController(db, pingers),
	})

	return serve(cfg, logger, r, func() {
		notifier.Wait()
		exports.Wait()
	})
}

func newTokenStore(cfg *config.Config, pingers map[string]controllers.Pinger) (tokenstore.Store, error) {
	if cfg.TokenStore != "valkey" {
		return tokenstore.NewMemory(time.Minute), nil
	}
	v, err := tokenstore.NewValkey(tokenstore.ValkeyConfig{
		Addr:     cfg.ValkeyAddr,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		return nil, err
	}
	pingers["valkey"] = v
	return v, nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) (mailer.Mailer, error) {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		logger.Warn("SMTP not configured, emails are only logged")
		return mailer.NewLog(logger), nil
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func newUploader(cfg *config.Config) services.Uploader {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil
	}
	return utils.NewSupabaseUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
}

// serve runs the HTTP server until SIGINT/SIGTERM and then drains background work.
func serve(cfg *config.Config, logger *slog.Logger, h http.Handler, drain func()) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	drain()
	return err
}
