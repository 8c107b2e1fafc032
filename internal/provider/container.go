package provider

import (
	"github.com/teranga-pos/payments/internal/cache"
	"github.com/teranga-pos/payments/internal/config"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/queue"
	"github.com/teranga-pos/payments/internal/repository"
	"github.com/teranga-pos/payments/internal/service"
)

// Container is the dependency injection container.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo       repository.PaymentRepository
	PaymentMethodRepo repository.PaymentMethodRepository
	CashDrawerRepo    repository.CashDrawerRepository

	// Services
	PaymentService        *service.PaymentService
	CashDrawerService     *service.CashDrawerService
	ReconciliationService *service.ReconciliationService
}

// NewContainer initializes the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.PaymentMethodRepo = repository.NewPaymentMethodRepository(db)
	c.CashDrawerRepo = repository.NewCashDrawerRepository(db)
}

func (c *Container) initServices() {
	c.PaymentService = service.NewPaymentService(
		models.DB,
		c.PaymentRepo,
		c.PaymentMethodRepo,
		c.CashDrawerRepo,
		c.QueueClient,
		&c.Config.Payment,
	)
	c.CashDrawerService = service.NewCashDrawerService(c.CashDrawerRepo, c.PaymentRepo)
	c.ReconciliationService = service.NewReconciliationService(c.PaymentRepo)
}
