package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/command"
	"github.com/cfmail/console/internal/config"
	"github.com/cfmail/console/internal/db"
	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/handler"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/notify"
	"github.com/cfmail/console/internal/query"
	redisClient "github.com/cfmail/console/internal/redis"
	"github.com/cfmail/console/internal/repository"
	"github.com/cfmail/console/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

const (
	shutdownTimeout  = 10 * time.Second
	cleanupTimeout   = time.Minute
	notifyMarkerKeys = "notify:sent:"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.MustInitJWTSecret(cfg.JWTSecret)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.Otel.Endpoint, cfg.Otel.Enabled)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("Failed to flush traces: %v", err)
		}
	}()

	// Database connection (write store)
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()
	if err := db.InitSchema(ctx, conn); err != nil {
		log.Fatalf("Failed to initialise schema: %v", err)
	}

	// Redis connection (view cache, rate limiter, event streaming)
	redis, err := redisClient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	cf := cloudflare.NewClient(cloudflare.Config{
		BaseURL:       cfg.Cloudflare.BaseURL,
		APIToken:      cfg.Cloudflare.APIToken,
		APIEmail:      cfg.Cloudflare.APIEmail,
		APIKey:        cfg.Cloudflare.APIKey,
		ZoneID:        cfg.Cloudflare.ZoneID,
		AccountID:     cfg.Cloudflare.AccountID,
		EmailDomain:   cfg.Cloudflare.EmailDomain,
		Timeout:       cfg.Cloudflare.Timeout,
		RetryAttempts: cfg.Cloudflare.RetryAttempts,
		RetryDelay:    cfg.Cloudflare.RetryDelay,
	})

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	userWrites := repository.NewUserWriteRepository(conn)
	userReads := repository.NewUserReadRepository(conn, redis.Client)
	emails := repository.NewEmailRepository(conn)
	cards := repository.NewCardRepository(conn)
	recharges := repository.NewRechargeRepository(conn)
	settings := repository.NewSettingsRepository(conn, redis.Client)
	stats := repository.NewStatsRepository(conn)

	userCmds := command.NewUserCommandService(userWrites, userReads, emails, cf, cf, settings, publisher)
	emailCmds := command.NewEmailCommandService(userWrites, userReads, emails, cf, publisher)
	cardCmds := command.NewCardCommandService(cards)
	rechargeCmds := command.NewRechargeCommandService(recharges, userReads, settings, publisher)
	settingsCmds := command.NewSettingsCommandService(settings)

	authQrys := query.NewAuthQueryService(userWrites, settings)
	userQrys := query.NewUserQueryService(userReads)
	emailQrys := query.NewEmailQueryService(emails, cf)
	cardQrys := query.NewCardQueryService(cards)
	rechargeQrys := query.NewRechargeQueryService(recharges)
	settingsQrys := query.NewSettingsQueryService(settings)
	dashboardQrys := query.NewDashboardQueryService(stats, time.Now())

	if cfg.Admin.Username != "" {
		created, err := userCmds.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatalf("Failed to seed administrator: %v", err)
		}
		if created {
			log.Printf("Seeded administrator %s", cfg.Admin.Username)
		}
	}

	// Setup router
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.LoggingMiddleware(),
		middleware.TracingMiddleware(),
		middleware.MetricsMiddleware(),
	)
	router.GET("/metrics", middleware.MetricsHandler())

	handler.RegisterRoutes(router, handler.Handlers{
		Auth:        handler.NewAuthHandler(userCmds, authQrys),
		User:        handler.NewUserHandler(userCmds, userQrys),
		Email:       handler.NewEmailHandler(emailCmds, emailQrys),
		Destination: handler.NewDestinationHandler(cf),
		Card:        handler.NewCardHandler(cardCmds, cardQrys),
		Recharge:    handler.NewRechargeHandler(rechargeCmds, rechargeQrys),
		Settings:    handler.NewSettingsHandler(settingsCmds, settingsQrys),
		Dashboard:   handler.NewDashboardHandler(dashboardQrys),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(conn.PingContext),
			"redis":    redis,
		}),
	}, settings, redisClient.NewFixedWindowLimiter(redis.Client, middleware.RateLimitWindow))

	var workers sync.WaitGroup

	// Start notification subscribers
	if cfg.SMTP.Enabled() {
		notifier := notify.NewNotifier(
			notify.NewSMTPMailer(cfg.SMTP),
			settings,
			redisClient.NewMarkers(redis.Client, notifyMarkerKeys, notify.MarkerTTL),
		)
		consumer := consumerName()
		for _, stream := range []string{events.QuotaEventsStream, events.EmailEventsStream} {
			subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
				Group:    notify.Group,
				Consumer: consumer,
				Stream:   stream,
				Handler:  notifier.Handle,
			})
			workers.Add(1)
			go func() {
				defer workers.Done()
				if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("Subscriber stopped: %v", err)
				}
			}()
		}
	} else {
		log.Println("SMTP_HOST or SMTP_FROM_EMAIL not set, email notifications disabled")
	}

	// Scheduled removal of expired card codes
	if cfg.CardCleanupSchedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.CardCleanupSchedule, func() {
			runCtx, done := context.WithTimeout(ctx, cleanupTimeout)
			defer done()
			removed, err := cardCmds.CleanExpired(runCtx)
			if err != nil {
				log.Printf("Card cleanup failed: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("Card cleanup removed %d expired codes", removed)
			}
		})
		if err != nil {
			log.Fatalf("Invalid CARD_CLEANUP_SCHEDULE %q: %v", cfg.CardCleanupSchedule, err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Console starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	workers.Wait()
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "console-1"
	}
	return host
}
