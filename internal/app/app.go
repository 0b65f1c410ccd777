package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hercules_backend/database"
	"hercules_backend/internal/accounting"
	"hercules_backend/internal/config"
	"hercules_backend/internal/email"
	"hercules_backend/internal/handlers"
	"hercules_backend/internal/logger"
	"hercules_backend/internal/repositories"
	billingrepo "hercules_backend/internal/repositories/billing"
	"hercules_backend/internal/routes"
	"hercules_backend/internal/services"
	billingsvc "hercules_backend/internal/services/billing"
	"hercules_backend/internal/validator"
	"hercules_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App owns the wired application: database, services, HTTP server, and the
// background sweep.
type App struct {
	cfg    *config.Config
	db     *gorm.DB
	server *http.Server
	worker *workers.BillingWorker

	stopWorker context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	// Repositories.
	userRepo := repositories.NewUserRepository()
	foodRepo := repositories.NewFoodRepository()
	ledger := billingrepo.NewRepository()

	// Outbound collaborators.
	mailer := email.NewBillingMailer(email.NewSMTPSender(cfg))
	gateway := billingsvc.NewStripeGateway(cfg.Billing.StripeSecretKey)

	var mirror billingsvc.AccountingMirror
	if poClient := accounting.NewClient(cfg); poClient.Enabled() {
		mirror = poClient
	} else {
		logger.Info("accounting mirror disabled, no credentials configured")
	}

	// Services.
	lifecycle := billingsvc.NewLifecycleService(ledger, userRepo, gateway, mailer, mirror, cfg)
	reconciler := billingsvc.NewReconcilerService(ledger, userRepo, lifecycle)
	authSvc := services.NewAuthService(userRepo, lifecycle)
	userSvc := services.NewUserService(userRepo)
	foodSvc := services.NewFoodService(foodRepo, services.NewOpenFoodFactsClient())

	worker := workers.NewBillingWorker(db, ledger, lifecycle,
		time.Duration(cfg.Billing.SweepIntervalMin)*time.Minute)

	// HTTP surface.
	base := handlers.NewBaseHandler(validator.New())
	h := &routes.Handlers{
		Auth:    handlers.NewAuthHandler(base, authSvc),
		User:    handlers.NewUserHandler(base, userSvc),
		Food:    handlers.NewFoodHandler(base, foodSvc),
		Billing: handlers.NewBillingHandler(base, lifecycle, ledger, worker),
		Webhook: handlers.NewWebhookHandler(base, reconciler, cfg),
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.Register(router, db, h, ledger)

	return &App{
		cfg: cfg,
		db:  db,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		worker: worker,
	}, nil
}

// Run starts the sweep worker and serves until the listener fails.
func (a *App) Run() error {
	workerCtx, cancel := context.WithCancel(context.Background())
	a.stopWorker = cancel
	go a.worker.Start(workerCtx)

	logger.Info("http server listening", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the worker and drains the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopWorker != nil {
		a.stopWorker()
	}
	return a.server.Shutdown(ctx)
}
