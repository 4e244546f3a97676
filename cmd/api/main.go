package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"loanflow/internal/adapter/bureau"
	httpadp "loanflow/internal/adapter/http"
	"loanflow/internal/adapter/middleware"
	"loanflow/internal/adapter/repository/mysql"
	"loanflow/internal/config"
	"loanflow/internal/domain/application"
	"loanflow/internal/domain/auditlog"
	"loanflow/internal/domain/customer"
	"loanflow/internal/infrastructure/cache"
	"loanflow/internal/infrastructure/db"
	"loanflow/internal/infrastructure/seed"
	"loanflow/internal/usecase/kyc"
	"loanflow/internal/usecase/orchestrator"
	"loanflow/internal/usecase/sanction"
	"loanflow/internal/usecase/underwriting"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	err = gdb.AutoMigrate(
		&application.Application{},
		&application.AgentState{},
		&application.UnderwritingResult{},
		&application.SanctionLetter{},
		&auditlog.AuditLogEntry{},
		&auditlog.WorkflowLogEntry{},
		&auditlog.AgentMessage{},
		&customer.Customer{},
		&customer.CrmRecord{},
	)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	appRepo := mysql.NewApplicationRepository(gdb)
	custRepo := mysql.NewCustomerRepository(gdb)
	logRepo := mysql.NewLogRepository(gdb)
	uow := mysql.NewGormUoW(gdb)

	if cfg.SeedDemoData {
		if err := seed.Demo(context.Background(), custRepo); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	kycProvider := bureau.NewCrmKycProvider(custRepo)
	creditBureau := bureau.NewStoreCreditBureau(custRepo)
	salaryParser := bureau.NewStatementParser()
	salaryExtractor := bureau.NewSalaryExtractor(custRepo, salaryParser)

	verifier := kyc.NewService(kycProvider, creditBureau)
	engine := underwriting.NewEngine(underwriting.Config{
		DTIRatio:                 cfg.DTIRatio,
		ExcellentLimitMultiplier: cfg.ExcellentLimitMult,
	})
	issuer := sanction.NewIssuer()

	wf := orchestrator.NewUsecase(orchestrator.Deps{
		Applications:      appRepo,
		Customers:         custRepo,
		Logs:              logRepo,
		UoW:               uow,
		Verifier:          verifier,
		SalaryParser:      salaryParser,
		Engine:            engine,
		Issuer:            issuer,
		DefaultAnnualRate: cfg.DefaultAnnualRate,
	})

	h := httpadp.NewHandler()
	appHandler := httpadp.NewApplicationHandler(wf)
	auditHandler := httpadp.NewAuditHandler(wf)
	custHandler := httpadp.NewCustomerHandler(custRepo, creditBureau)
	salaryHandler := httpadp.NewSalaryHandler(salaryExtractor)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/applications", appHandler.StartApplication, idemp)
	api.POST("/applications/:application_id/advance", appHandler.AdvanceApplication, idemp)
	api.GET("/applications/:application_id", appHandler.GetApplication)
	api.POST("/applications/:application_id/cancel", appHandler.CancelApplication)
	api.GET("/applications/:application_id/audit", auditHandler.GetAuditTrail)
	api.GET("/applications/:application_id/workflow", auditHandler.GetWorkflowTrail)
	api.GET("/applications/:application_id/messages", auditHandler.GetMessages)
	api.GET("/customers/:customer_id", custHandler.GetCustomer)
	api.GET("/customers/:customer_id/credit", custHandler.GetCustomerCredit)
	api.POST("/extract-salary", salaryHandler.ExtractSalary)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
