package bootstrap

import (
	"context"
	"log"
	"time"

	"marketplace-be/internal/config"
	"marketplace-be/internal/controller"
	"marketplace-be/internal/entity"
	"marketplace-be/internal/handler"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/pkg/clock"
	"marketplace-be/internal/pkg/lock"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/pkg/mailer"
	"marketplace-be/internal/repository/implementation"
	"marketplace-be/internal/repository/unitofwork"
	"marketplace-be/internal/service"
	"marketplace-be/internal/websocket"
	"marketplace-be/internal/worker"
	"marketplace-be/pkg/events"
	"marketplace-be/pkg/payment"
	"marketplace-be/pkg/payment/midtrans"
	"marketplace-be/pkg/payment/paystack"

	pktNats "marketplace-be/pkg/nats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SubscriptionController controller.ISubscriptionController
	PaymentController      controller.IPaymentController
	AdminController        controller.IAdminController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Background Services (Exposed for main.go to run)
	Scheduler       *worker.Scheduler
	QueueDispatcher *service.QueueDispatcher
	JobService      service.IJobService

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	notifLogger := logger.NewIsolatedLogger(cfg.Notification.LogFilePath)
	rec := metrics.New(prometheus.NewRegistry())

	c := &Container{Metrics: rec, Logger: sysLogger}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Infrastructure
	// NATS is optional; without it domain events are not published and
	// async job triggers are refused.
	var publisher events.Publisher
	var triggers worker.TriggerSource
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		triggers = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis backs the job lock and cross-instance push fan-out.
	rdb := connectRedis(cfg.App.RedisURL)
	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	wsHub := websocket.NewHub(rdb, notifLogger)
	c.WebSocketHub = wsHub

	// 3. Notification pipeline
	notifRepo := implementation.NewNotificationRepository(db)
	userRepo := implementation.NewUserRepository(db)
	notifier := service.NewNotifier(emailService, notifRepo, wsHub, rec, notifLogger)

	var dispatcher service.Dispatcher
	if cfg.Notification.Mode == "queue" {
		qd := service.NewQueueDispatcher(service.NewWatermillPubSub(), cfg.Notification.Topic, userRepo, notifier, publisher, cfg.App.ClientURL, notifLogger)
		c.QueueDispatcher = qd
		dispatcher = qd
	} else {
		dispatcher = service.NewSyncDispatcher(userRepo, notifier, publisher, cfg.App.ClientURL, notifLogger)
	}

	// 4. Services
	clk := clock.System()
	subscriptionService := service.NewSubscriptionService(uowFactory, dispatcher, clk, rec, sysLogger)
	sweepService := service.NewSweepService(uowFactory, dispatcher, clk, rec, sysLogger)
	jobService := service.NewJobService(sweepService, locker, cfg.Scheduler.LockTTL, cfg.Scheduler.ReminderDays, sysLogger)
	c.JobService = jobService

	gateway, signatureHeader := NewGateway(cfg.Payment)
	paymentService := service.NewPaymentService(uowFactory, gateway, subscriptionService, service.PaymentConfig{
		Currency:    cfg.Payment.Currency,
		CallbackURL: cfg.Payment.CallbackURL,
		DedupTTL:    cfg.Payment.WebhookDedupTTL,
	}, rec, sysLogger)

	notifService := service.NewNotificationService(notifRepo, notifLogger)

	if cfg.Scheduler.Enabled {
		c.Scheduler = worker.NewScheduler(jobService, cfg.Scheduler, triggers, sysLogger)
	}

	trackStatusGauges(rec, subscriptionService)

	// 5. Controllers
	c.SubscriptionController = controller.NewSubscriptionController(subscriptionService)
	c.PaymentController = controller.NewPaymentController(paymentService, signatureHeader)
	c.AdminController = controller.NewAdminController(jobService, subscriptionService, publisher, sysLogger)
	c.NotificationHandler = handler.NewNotificationHandler(notifService, wsHub, cfg.App.JwtSecret, notifLogger)

	return c
}

// NewGateway returns the configured payment provider and the request header
// carrying its webhook signature.
func NewGateway(cfg config.PaymentConfig) (payment.Gateway, string) {
	switch cfg.Provider {
	case "midtrans":
		log.Printf("[INFO] Using Payment Provider: MIDTRANS")
		return midtrans.NewClient(cfg.MidtransServerKey, cfg.MidtransIsProd), ""
	default:
		log.Printf("[INFO] Using Payment Provider: PAYSTACK")
		return paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.HTTPTimeout), paystack.SignatureHeader
	}
}

func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to single-instance mode", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func trackStatusGauges(rec *metrics.Metrics, subscriptions service.ISubscriptionService) {
	for _, status := range []entity.SubscriptionStatus{
		entity.SubscriptionStatusActive,
		entity.SubscriptionStatusPaymentFailed,
		entity.SubscriptionStatusCancelled,
		entity.SubscriptionStatusExpired,
	} {
		status := status
		rec.TrackGauge("subscriptions_"+string(status), "Subscriptions currently "+string(status), func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			counts, err := subscriptions.CountByStatus(ctx)
			if err != nil {
				return 0
			}
			return float64(counts[status])
		})
	}
}

// Start runs the background workers until ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if c.QueueDispatcher != nil {
		if err := c.QueueDispatcher.Consume(ctx); err != nil {
			return err
		}
	}
	if c.Scheduler != nil {
		if err := c.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for scheduler loops and releases connections. Cancel the
// context given to Start first.
func (c *Container) Close() {
	if c.Scheduler != nil {
		c.Scheduler.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
