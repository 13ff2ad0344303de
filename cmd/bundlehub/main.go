package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rookgm/bundlehub/config"
	"github.com/rookgm/bundlehub/internal/auth"
	"github.com/rookgm/bundlehub/internal/blob"
	handler "github.com/rookgm/bundlehub/internal/handler/http"
	"github.com/rookgm/bundlehub/internal/middleware"
	"github.com/rookgm/bundlehub/internal/notify"
	"github.com/rookgm/bundlehub/internal/payment"
	"github.com/rookgm/bundlehub/internal/ratelimit"
	"github.com/rookgm/bundlehub/internal/repository"
	"github.com/rookgm/bundlehub/internal/repository/postgres"
	"github.com/rookgm/bundlehub/internal/service"
	"github.com/rookgm/bundlehub/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// newLogger creates logger with log level
func newLogger(level string) (*zap.Logger, error) {

	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	return loggerCfg.Build()
}

// newSender returns SMTP sender or, without SMTP host, sender that only logs emails
func newSender(cfg *config.Config, logger *zap.Logger) notify.Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP host is not set, emails are written to log")
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// create context cancelled on SIGINT and SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	err = db.Migrate()
	if err != nil {
		logger.Fatal("Error migrating database", zap.Error(err))
	}

	tokenKey, err := hex.DecodeString(cfg.TokenKey)
	if err != nil {
		logger.Fatal("Error extracting token key", zap.Error(err))
	}
	token := auth.NewAuthToken(tokenKey)

	files, err := blob.NewFileStore(cfg.UploadDir, cfg.FilesBaseURL)
	if err != nil {
		logger.Fatal("Error initializing file store", zap.Error(err))
	}

	qr, err := payment.NewQR(cfg.PaymentQRContent)
	if err != nil {
		logger.Fatal("Error generating payment QR", zap.Error(err))
	}

	notifier := notify.NewGateway(newSender(cfg, logger), cfg.ShopName, cfg.ShopInbox)
	resp := handler.NewResponder(logger, !cfg.IsProduction())

	// dependency injection
	// repositories
	orderRepo := repository.NewOrderRepository(db)
	bundleRepo := repository.NewBundleRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	storefrontRepo := repository.NewStorefrontRepository(db)

	// auth
	authService := service.NewAuthService(adminRepo, token)
	authHandler := handler.NewAuthHandler(authService, resp, cfg.IsProduction())
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Fatal("Error seeding admin", zap.Error(err))
		}
		logger.Info("Admin account is ready", zap.String("email", cfg.AdminEmail))
	}

	// checkout
	checkoutService := service.NewCheckoutService(orderRepo, bundleRepo, notifier, files, qr, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, resp)

	// admin review
	adminService := service.NewAdminService(orderRepo, notifier, logger)
	orderHandler := handler.NewOrderHandler(adminService, resp)

	// catalogue
	catalogueService := service.NewCatalogueService(bundleRepo, files, logger)
	bundleHandler := handler.NewBundleHandler(catalogueService, resp)

	// newsletter, contact, reviews
	storefrontService := service.NewStorefrontService(storefrontRepo, catalogueService, notifier, logger)
	storefrontHandler := handler.NewStorefrontHandler(storefrontService, resp)

	// health
	healthHandler := handler.NewHealthHandler(service.NewHealthService(db), resp)

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(middleware.ClientIP(cfg.TrustProxy))
	router.Use(middleware.Logging(logger))
	router.Use(chimw.Recoverer)

	router.Get("/health", healthHandler.Health())

	router.Get("/bundles", bundleHandler.ListBundles())
	router.Get("/bundles/{slug}", bundleHandler.GetBundle())
	router.Get("/bundles/{slug}/reviews", storefrontHandler.ListReviews())
	router.Get("/checkout/orders/{orderId}", checkoutHandler.GetOrderStatus())
	router.Handle("/files/"+blob.CategoryBundles+"/*",
		http.StripPrefix("/files/"+blob.CategoryBundles, files.Handler(blob.CategoryBundles)))

	// rate limited public routes
	router.Group(func(group chi.Router) {
		group.Use(middleware.RateLimit(limiter, logger))
		group.Post("/checkout/create", checkoutHandler.CreateOrder())
		group.Post("/checkout/resend-otp", checkoutHandler.ResendOtp())
		group.Post("/checkout/verify-email", checkoutHandler.VerifyEmail())
		group.Post("/checkout/upload-payment", checkoutHandler.UploadPayment())
		group.Post("/bundles/{slug}/reviews", storefrontHandler.CreateReview())
		group.Post("/newsletter/subscribe", storefrontHandler.Subscribe())
		group.Post("/newsletter/unsubscribe", storefrontHandler.Unsubscribe())
		group.Post("/contact", storefrontHandler.Contact())
		group.Post("/admin/login", authHandler.LoginAdmin())
	})

	// routes that require admin authentication
	router.Group(func(group chi.Router) {
		group.Use(handler.AuthMiddleware(token, resp))
		group.Use(handler.RequireAdmin(resp))
		group.Get("/admin/orders", orderHandler.ListOrders())
		group.Get("/admin/orders/{orderId}", orderHandler.GetOrder())
		group.Post("/admin/orders/{orderId}/approve", orderHandler.ApproveOrder())
		group.Post("/admin/orders/{orderId}/reject", orderHandler.RejectOrder())
		group.Get("/admin/bundles", bundleHandler.AdminListBundles())
		group.Post("/admin/bundles", bundleHandler.CreateBundle())
		group.Patch("/admin/bundles/{bundleId}/active", bundleHandler.SetBundleActive())
		group.Post("/admin/bundles/{bundleId}/archive", bundleHandler.UploadArchive())
		group.Handle("/files/"+blob.CategoryPayments+"/*",
			http.StripPrefix("/files/"+blob.CategoryPayments, files.Handler(blob.CategoryPayments)))
	})

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.NewOTPSweeper(checkoutService, cfg.OTPSweepInterval, logger).Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Running server", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}
