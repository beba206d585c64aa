package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"marketplace-backend/internal/config"
	infraCache "marketplace-backend/internal/infrastructure/cache"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/infrastructure/email"
	"marketplace-backend/internal/infrastructure/realtime"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/pkg/cache"
	"marketplace-backend/pkg/jwt"
	"marketplace-backend/pkg/logger"

	couponHandler "marketplace-backend/internal/domains/coupon/handler"
	couponRepo "marketplace-backend/internal/domains/coupon/repository"
	couponService "marketplace-backend/internal/domains/coupon/service"
	mediaHandler "marketplace-backend/internal/domains/media/handler"
	mediaRepo "marketplace-backend/internal/domains/media/repository"
	mediaService "marketplace-backend/internal/domains/media/service"
	notifHandler "marketplace-backend/internal/domains/notification/handler"
	notifRepo "marketplace-backend/internal/domains/notification/repository"
	notifService "marketplace-backend/internal/domains/notification/service"
	orderHandler "marketplace-backend/internal/domains/order/handler"
	orderRepo "marketplace-backend/internal/domains/order/repository"
	orderService "marketplace-backend/internal/domains/order/service"
	productRepo "marketplace-backend/internal/domains/product/repository"
	userRepo "marketplace-backend/internal/domains/user/repository"
)

// ========================================
// CONTAINER STRUCT
// ========================================
// Container is the root of the dependency graph. Everything in it is a
// singleton living for the process lifetime.
type Container struct {
	// Infrastructure
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	RedisCache  *infraCache.RedisCache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Storage     *storage.MinIOStorage
	Hub         *realtime.Hub
	EmailSender email.Sender

	// Repositories
	OrderRepo        orderRepo.OrderRepository
	CouponRepo       couponRepo.CouponRepository
	NotificationRepo notifRepo.NotificationRepository
	UserRepo         userRepo.UserRepository
	ProductRepo      productRepo.ProductRepository
	MediaRepo        mediaRepo.MediaRepository

	// Services
	OrderService        orderService.OrderService
	CouponService       couponService.CouponService
	NotificationService notifService.NotificationService
	MediaService        mediaService.MediaService

	// Handlers
	OrderHandler        *orderHandler.OrderHandler
	CouponHandler       *couponHandler.CouponHandler
	NotificationHandler *notifHandler.NotificationHandler
	MediaHandler        *mediaHandler.MediaHandler
}

// ========================================
// CONSTRUCTOR
// ========================================
// Initialization order matters: config, infrastructure, repositories,
// services, handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	// Step 1: configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment)
	log.Printf("[Container] Config loaded (environment: %s)", cfg.App.Environment)

	// Step 2: infrastructure
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.DB = database.NewPostgresDB(cfg.Database)
	if err := c.DB.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Println("[Container] PostgreSQL connected")

	c.RedisCache = infraCache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.RedisCache.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Cache = c.RedisCache
	log.Println("[Container] Redis connected")

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)
	c.AsynqClient = asynq.NewClient(c.RedisOpt())

	c.Storage, err = storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	log.Println("[Container] MinIO ready")

	c.Hub = realtime.NewHub()
	c.EmailSender = email.NewSMTPSender(cfg.SMTP)

	// Step 3: repositories
	c.OrderRepo = orderRepo.NewPostgresOrderRepository(c.DB.Pool)
	c.CouponRepo = couponRepo.NewPostgresCouponRepository(c.DB.Pool)
	c.NotificationRepo = notifRepo.NewPostgresNotificationRepository(c.DB.Pool)
	c.UserRepo = userRepo.NewPostgresUserRepository(c.DB.Pool)
	c.ProductRepo = productRepo.NewPostgresProductRepository(c.DB.Pool)
	c.MediaRepo = mediaRepo.NewPostgresMediaRepository(c.DB.Pool)

	// Step 4: services
	c.OrderService = orderService.NewOrderService(c.OrderRepo, c.CouponRepo, c.AsynqClient)
	c.CouponService = couponService.NewCouponService(c.CouponRepo, c.UserRepo, c.AsynqClient)
	c.NotificationService = notifService.NewNotificationService(
		c.NotificationRepo, c.UserRepo, c.Cache, c.Hub, c.EmailSender)
	c.Hub.SetNotificationService(c.NotificationService)
	c.MediaService = mediaService.NewMediaService(
		c.MediaRepo, c.ProductRepo, c.Storage, storage.NewImageProcessor(), c.AsynqClient)

	// Step 5: handlers
	c.OrderHandler = orderHandler.NewOrderHandler(c.OrderService)
	c.CouponHandler = couponHandler.NewCouponHandler(c.CouponService)
	c.NotificationHandler = notifHandler.NewNotificationHandler(c.NotificationService)
	c.MediaHandler = mediaHandler.NewMediaHandler(c.MediaService)

	log.Println("[Container] Dependency graph ready")
	return c, nil
}

// RedisOpt builds the asynq redis connection options from config.
func (c *Container) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// Cleanup releases every external connection. Call on shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("[Container] Failed to close asynq client: %v", err)
		}
	}
	if c.RedisCache != nil {
		if err := c.RedisCache.Close(); err != nil {
			log.Printf("[Container] Failed to close redis: %v", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Println("[Container] Cleanup complete")
}
