package router

import (
	"time"

	"stitcherp/internal/config"
	"stitcherp/internal/handler"
	"stitcherp/internal/ledger"
	"stitcherp/internal/middleware"
	"stitcherp/internal/repository"
	"stitcherp/internal/service"
	"stitcherp/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	workOrderRepo := repository.NewWorkOrderRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	shiftRepo := repository.NewShiftProductionRepository(db)
	dailyRepo := repository.NewDailyProductionRepository(db)
	billRepo := repository.NewBillRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	prodLedger := ledger.Default()
	reconSvc := service.NewReconciliationService(allocationRepo, prodLedger)
	progressSvc := service.NewProgressService(allocationRepo, prodLedger, rdb)
	allocationSvc := service.NewAllocationService(allocationRepo, workOrderRepo, machineRepo, reconSvc, progressSvc)
	productionSvc := service.NewProductionService(shiftRepo, dailyRepo, reconSvc, progressSvc, dispatcher)
	billingSvc := service.NewBillingService(billRepo, reconSvc, progressSvc, cfg.BillingMode)

	// ── Handlers ─────────────────────────────────────────────────────────────
	workOrdersH := handler.NewWorkOrderHandler(workOrderRepo)
	machinesH := handler.NewMachineHandler(machineRepo)
	allocationsH := handler.NewAllocationHandler(allocationSvc)
	productionH := handler.NewProductionHandler(productionSvc)
	billingH := handler.NewBillingHandler(billingSvc)
	progressH := handler.NewProgressHandler(progressSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes. Tokens are issued by the plant identity service.
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(middleware.RoleOperator, middleware.RoleSupervisor, middleware.RoleAdmin)
		planRole := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdmin)

		v1.GET("/work-orders", anyRole, workOrdersH.List)
		v1.GET("/work-orders/:id", anyRole, workOrdersH.Get)
		v1.POST("/work-orders", planRole, workOrdersH.Create)

		v1.GET("/machines", anyRole, machinesH.List)
		v1.POST("/machines", planRole, machinesH.Create)

		// Allocation planning is a supervisor concern
		v1.GET("/work-orders/:id/allocations", anyRole, allocationsH.List)
		v1.PUT("/work-orders/:id/allocations", planRole, allocationsH.Replace)
		v1.DELETE("/allocations/:id", planRole, allocationsH.Delete)

		// Production entries come from shop-floor terminals
		prod := v1.Group("/production", anyRole)
		{
			prod.POST("/shift", productionH.LogShift)
			prod.PUT("/shift/:id", productionH.UpdateShift)
			prod.DELETE("/shift/:id", productionH.DeleteShift)
			prod.POST("/daily", productionH.LogDaily)
			prod.PUT("/daily/:id", productionH.UpdateDaily)
			prod.DELETE("/daily/:id", productionH.DeleteDaily)
		}

		bills := v1.Group("/bills", planRole)
		{
			bills.POST("", billingH.CreateBill)
			bills.GET("/:id", billingH.GetBill)
			bills.DELETE("/:id", billingH.DeleteBill)
			bills.POST("/:id/items", billingH.AddItem)
			bills.PUT("/:id/items/:itemId", billingH.UpdateItem)
			bills.DELETE("/:id/items/:itemId", billingH.DeleteItem)
		}

		v1.GET("/progress/:workOrderId/:machineId", anyRole, progressH.Get)
	}

	// Swagger UI is only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
