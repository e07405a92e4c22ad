package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hotspotlabs/ms-go-vouchers/app/controller"
	"github.com/hotspotlabs/ms-go-vouchers/app/entity"
	"github.com/hotspotlabs/ms-go-vouchers/app/notify"
	"github.com/hotspotlabs/ms-go-vouchers/app/provider"
	"github.com/hotspotlabs/ms-go-vouchers/app/repository"
	"github.com/hotspotlabs/ms-go-vouchers/app/service"
	"github.com/hotspotlabs/ms-go-vouchers/app/types"
	"github.com/hotspotlabs/ms-go-vouchers/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payment initiation, status polling, provider callbacks, and voucher lookup.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, billingService, cleanup := mustCreateBillingService()
	defer cleanup()

	billingController := controller.NewBillingController(billingService)
	e := setupHTTPServer(billingController, cfg.App.APIKey)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(billingController *controller.BillingController, operatorAPIKey string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", billingController.Health)

	// Customer-facing surface: captive portal pages call these directly.
	payments := e.Group("/payments")
	payments.POST("", billingController.InitiatePayment)
	payments.GET("/status/:reference", billingController.PollStatus)

	vouchers := e.Group("/vouchers")
	vouchers.GET("/lookup", billingController.VoucherLookup)

	// Providers deliver asynchronous confirmations here. No API key: the
	// payload itself is verified against tenant credentials.
	webhooks := e.Group("/webhooks/providers")
	webhooks.POST("/:provider", billingController.HandleProviderCallback)

	operator := e.Group("/payments", requireAPIKey(operatorAPIKey))
	operator.GET("", billingController.ListTransactions)

	return e
}

func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			provided := strings.TrimSpace(ctx.Request().Header.Get("X-API-Key"))
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreateBillingService() (*config.Config, *service.BillingService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	txRepo := repository.NewTransactionRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	settingsRepo := repository.NewGatewaySettingsRepository(db)
	packageRepo := repository.NewBillingPackageRepository(db)

	registry := provider.NewRegistry()
	registry.Register(entity.GatewayDaraja, provider.NewDarajaBuilder(
		cfg.Gateways.DarajaBaseURL,
		cfg.Gateways.PublicBaseURL+"/webhooks/providers/daraja",
		cfg.Gateways.DarajaHTTPTimeout,
	))
	registry.Register(entity.GatewayPaystack, provider.NewPaystackBuilder(
		cfg.Gateways.PaystackBaseURL,
		cfg.Gateways.PublicBaseURL+"/webhooks/providers/paystack",
		cfg.Gateways.PaystackHTTPTimeout,
	))

	billingService := service.NewBillingService(
		txRepo,
		voucherRepo,
		settingsRepo,
		packageRepo,
		registry,
		buildNotifier(cfg),
		cfg.Jobs,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, billingService, cleanup
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	switch strings.ToLower(cfg.SMS.Provider) {
	case "africastalking":
		return notify.NewAfricasTalkingNotifier(notify.AfricasTalkingConfig{
			Username:    cfg.SMS.Username,
			APIKey:      cfg.SMS.APIKey,
			SenderID:    cfg.SMS.SenderID,
			BaseURL:     cfg.SMS.BaseURL,
			HTTPTimeout: cfg.SMS.HTTPTimeout,
		})
	default:
		logrus.WithField("provider", cfg.SMS.Provider).Warn("SMS disabled, vouchers delivered via poll and lookup only")
		return notify.NopNotifier{}
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
