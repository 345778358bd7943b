package main

import (
	"os"
	"time"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/blobstore"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Tailoring Back Office API
// @version         1.0
// @description     Bills, payments, customers, measurement configs, services and app updates for a tailoring shop.
// @host            localhost:8080
// @BasePath        /
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info().Msg("no configs/.env file found")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if envOr("LOG_PRETTY", "") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Amounts serialize as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "postgres") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Blob storage for reference images and update packages
	blobs := blobstore.NewLocalStore(
		envOr("STORAGE_DIR", "./storage"),
		envOr("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		envOr("DOWNLOAD_URL_SECRET", "dev-download-secret"),
	)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	billRepo := repository.NewBillRepository(db)
	billItemRepo := repository.NewBillItemRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	configRepo := repository.NewMeasurementConfigRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	appVersionRepo := repository.NewAppVersionRepository(db)

	billingService := service.NewBillingService(billRepo, billItemRepo, txManager, wsHub)
	imageService := service.NewImageService(billRepo, billItemRepo, blobs)
	customerService := service.NewCustomerService(customerRepo)
	configService := service.NewMeasurementConfigService(configRepo)
	catalogService := service.NewCatalogService(serviceRepo)
	updateService := service.NewAppUpdateService(appVersionRepo, blobs)

	billHandler := handler.NewBillHandler(billingService, imageService)
	customerHandler := handler.NewCustomerHandler(customerService)
	configHandler := handler.NewMeasurementConfigHandler(configService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	updateHandler := handler.NewAppUpdateHandler(updateService)

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	// CORS: the API is consumed by the shop app from anywhere
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Stored blobs (reference images) are served straight from disk
	router.Static("/files", envOr("STORAGE_DIR", "./storage"))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// Register API Routes
	billHandler.RegisterRoutes(router.Group(""))
	customerHandler.RegisterRoutes(router.Group(""))
	configHandler.RegisterRoutes(router.Group(""))
	catalogHandler.RegisterRoutes(router.Group(""))
	updateHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
