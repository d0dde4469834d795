package main

import (
	"fmt"
	"net/http"
	"os"

	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/handlers"
	"famledger/internal/logger"
	"famledger/internal/middleware"
	"famledger/internal/models"
	"famledger/internal/services"
	"famledger/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "famledger/internal/docs" // Import swagger docs
)

// @title           Famledger API
// @version         1.0
// @description     Famledger is a family finance tracker built around budget templates, period rollover, and shared category budgets.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	familyService := services.NewFamilyService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db)
	spendService := services.NewSpendService(db)
	templateService := services.NewTemplateService(db)
	generatorService := services.NewGeneratorService(db, spendService)
	transferService := services.NewTransferService(db, spendService)
	budgetService := services.NewBudgetService(db, spendService)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	familyHandler := handlers.NewFamilyHandler(familyService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	templateHandler := handlers.NewTemplateHandler(templateService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, generatorService, transferService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Family routes
	protected.POST("/families", familyHandler.CreateFamily)
	protected.GET("/families", familyHandler.GetFamilies)

	// Family-scoped routes: viewers can read, members can write,
	// admins manage membership.
	viewer := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleViewer))
	member := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleMember))
	admin := protected.Group("/families/:familyID",
		middleware.RequireFamilyRole(familyService, models.RoleAdmin))

	viewer.GET("", familyHandler.GetFamily)
	admin.POST("/members", familyHandler.AddMember)

	// Category routes
	admin.POST("/categories", categoryHandler.CreateCategory)
	viewer.GET("/categories", categoryHandler.GetCategories)
	admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
	admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	member.POST("/transactions", transactionHandler.CreateTransaction)
	viewer.GET("/transactions", transactionHandler.GetTransactions)
	viewer.GET("/transactions/:id", transactionHandler.GetTransaction)
	member.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	// Template routes
	admin.POST("/templates", templateHandler.CreateTemplate)
	viewer.GET("/templates", templateHandler.GetTemplates)
	viewer.GET("/templates/:id", templateHandler.GetTemplate)
	admin.PUT("/templates/:id", templateHandler.UpdateTemplate)
	admin.DELETE("/templates/:id", templateHandler.DeleteTemplate)

	// Budget routes
	member.POST("/budgets", budgetHandler.CreateBudget)
	member.POST("/budgets/generate", budgetHandler.GenerateBudget)
	viewer.GET("/budgets/missing", budgetHandler.GetMissingBudgets)
	member.POST("/budgets/generate-missing", budgetHandler.GenerateMissingBudgets)
	viewer.GET("/budgets", budgetHandler.GetBudgets)
	viewer.GET("/budgets/:id", budgetHandler.GetBudget)
	viewer.GET("/budgets/:id/status", budgetHandler.GetBudgetStatus)
	viewer.GET("/budgets/:id/rollover-preview", budgetHandler.PreviewRollover)
	member.POST("/budgets/:id/transfer", budgetHandler.TransferFunds)
	member.PUT("/budgets/:id", budgetHandler.UpdateBudget)
	member.DELETE("/budgets/:id", budgetHandler.DeleteBudget)

	log.Infof("Starting Famledger backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
