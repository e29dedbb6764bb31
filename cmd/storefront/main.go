package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/menswear-india/storefront-service/internal/clients"
	"github.com/menswear-india/storefront-service/internal/config"
	"github.com/menswear-india/storefront-service/internal/events"
	"github.com/menswear-india/storefront-service/internal/handlers"
	"github.com/menswear-india/storefront-service/internal/logging"
	"github.com/menswear-india/storefront-service/internal/metrics"
	"github.com/menswear-india/storefront-service/internal/repository"
	"github.com/menswear-india/storefront-service/internal/server"
	"github.com/menswear-india/storefront-service/internal/service"
	"github.com/menswear-india/storefront-service/internal/tax"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger("storefront-service")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	home := tax.StateCode(cfg.Tax.HomeStateCode)
	if !home.Valid() {
		logger.Fatal("Unknown home state code", logging.Fields{"home_state_code": cfg.Tax.HomeStateCode})
	}

	db, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	settingsRepo, err := initTaxSettings(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to initialise tax settings", logging.Fields{"error": err.Error()})
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	orderRepo := repository.NewPostgresOrderRepository(db, logging.NewLogger("order-repository"))
	orderCache := repository.NewRedisOrderCache(redisClient, cfg.Redis.TTL, logging.NewLogger("order-cache"))
	cartStore := repository.NewRedisCartStore(redisClient, cfg.Redis.CartTTL, logging.NewLogger("cart-store"))

	paymentClient := clients.NewHTTPPaymentClient(cfg.PaymentService, logging.NewLogger("payment-client"))
	notificationClient := clients.NewHTTPNotificationClient(cfg.NotificationService, logging.NewLogger("notification-client"))

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logging.NewLogger("event-publisher"))
	defer eventPublisher.Close()

	m := metrics.New()
	resolver := tax.NewResolver(home)
	loader := tax.NewLoader(settingsRepo, logging.NewLogger("tax-loader"))
	calculator := service.NewOrderAmountCalculator(service.ShippingPolicy{
		FreeThreshold: cfg.Shipping.FreeShippingThreshold,
		FlatFee:       cfg.Shipping.FlatShippingFee,
	})

	checkoutService := service.NewCheckoutService(
		loader,
		resolver,
		calculator,
		orderRepo,
		orderCache,
		cartStore,
		paymentClient,
		notificationClient,
		eventPublisher,
		m,
		cfg,
	)
	orderService := service.NewOrderService(orderRepo, orderCache, paymentClient, notificationClient, eventPublisher, m, cfg)
	cartService := service.NewCartService(cartStore, calculator, logging.NewLogger("cart-service"))
	taxSettingsService := service.NewTaxSettingsService(settingsRepo, logging.NewLogger("tax-settings-service"))
	paymentService := service.NewPaymentService(paymentClient, orderRepo)

	h := handlers.NewHandlers(
		checkoutService,
		orderService,
		cartService,
		taxSettingsService,
		paymentService,
		cfg,
		handlers.ReadinessCheck{Name: "postgres", Ping: db.PingContext},
		handlers.ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	)

	srv := server.New(h, m, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", logging.Fields{
			"port":                        cfg.Server.Port,
			"home_state":                  home.Name(),
			"charge_shipping_at_checkout": cfg.Features.ChargeShippingAtCheckout,
			"memory_settings":             cfg.Features.UseMemorySettings,
		})
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Features.EnablePaymentConsumer {
		consumer := events.NewKafkaConsumer(cfg.Kafka, orderService, logging.NewLogger("payment-consumer"))
		g.Go(func() error {
			return consumer.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			consumer.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("Server exited")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}

// initTaxSettings picks the rate table store and prepares it. Legacy rows
// are migrated first, then the YAML file seeds whatever is still missing.
func initTaxSettings(ctx context.Context, cfg *config.Config, db *sql.DB, logger *logging.Logger) (repository.TaxSettingsRepository, error) {
	var repo repository.TaxSettingsRepository
	if cfg.Features.UseMemorySettings {
		repo = repository.NewMemoryTaxSettingsRepository()
	} else {
		repo = repository.NewPostgresTaxSettingsRepository(db, logging.NewLogger("tax-settings-repository"))
	}

	seed, err := repository.LoadTaxSettingsFile(cfg.Tax.RatesFile)
	if err != nil {
		if cfg.Features.UseMemorySettings {
			return nil, err
		}
		logger.Warn("Rate seed file not loaded", logging.Fields{
			"path":  cfg.Tax.RatesFile,
			"error": err.Error(),
		})
	}

	bootstrap := service.NewTaxSettingsService(repo, logging.NewLogger("tax-settings-bootstrap"))
	if err := bootstrap.Bootstrap(ctx, seed); err != nil {
		return nil, err
	}

	logger.Info("Tax settings ready", logging.Fields{
		"path":  cfg.Tax.RatesFile,
		"count": len(seed),
	})
	return repo, nil
}
