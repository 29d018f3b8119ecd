package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/handler"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/middleware"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/notify"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/storage/memory"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/storage/postgres"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/account"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/config"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/notification"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/worker"
)

// accountStorage is everything both the transfer engine and the account
// lifecycle need from one backend.
type accountStorage interface {
	transfer.AccountStore
	account.Store
}

type notificationStorage interface {
	notification.Store
	worker.Queue
}

type userStorage interface {
	transfer.UserDirectory
	account.UserDirectory
	handler.UserStore
	middleware.KeyResolver
}

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var (
		accounts      accountStorage
		ledger        transfer.Ledger
		notifications notificationStorage
		users         userStorage
		pool          *pgxpool.Pool
	)

	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.ConnectDB(cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := postgres.Init(context.Background(), pool); err != nil {
			slog.Error("schema initialization failed", "error", err)
			os.Exit(1)
		}
		accounts = postgres.NewAccountRepository(pool)
		ledger = postgres.NewLedgerRepository(pool)
		notifications = postgres.NewNotificationRepository(pool)
		users = postgres.NewUserRepository(pool)
		slog.Info("connected to postgres")
	} else {
		store := memory.New()
		accounts, ledger, notifications, users = store, store, store, store
		slog.Warn("DATABASE_URL not set, using in-memory storage")
	}

	notificationService := notification.NewService(notifications)
	engine := transfer.NewEngine(accounts, ledger, users, notificationService, logger)
	accountService := account.NewService(accounts, users, cfg.OpeningBalance, cfg.MaxAccounts)

	var publisher worker.Publisher
	switch {
	case cfg.NatsURL != "":
		natsPublisher, err := notify.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			slog.Error("nats connection failed", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	case cfg.WebhookURL != "":
		publisher = notify.NewWebhookPublisher(cfg.WebhookURL)
	default:
		publisher = &notify.LogPublisher{Log: logger}
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	worker.NewDispatcher(notifications, publisher, logger).Start(dispatcherCtx)

	userHandler := &handler.UserHandler{Store: users}
	accountHandler := &handler.AccountHandler{Service: accountService}
	transactionHandler := &handler.TransactionHandler{Engine: engine}
	notificationHandler := &handler.NotificationHandler{Service: notificationService}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New())

	api := app.Group("/v1")
	api.Post("/users", userHandler.Register)

	private := api.Use(middleware.Protected(users))
	private.Post("/accounts", accountHandler.CreateAccount)
	private.Get("/accounts", accountHandler.GetAccounts)
	private.Get("/accounts/lookup", accountHandler.GetAccountByNumber)
	private.Delete("/accounts/:id", accountHandler.DeactivateAccount)
	private.Post("/transactions", transactionHandler.Transfer)
	private.Get("/transactions", transactionHandler.GetTransactions)
	private.Get("/notifications", notificationHandler.GetNotifications)
	private.Patch("/notifications/:id", notificationHandler.MarkRead)
	private.Delete("/notifications/:id", notificationHandler.DeleteNotification)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	stopDispatcher()
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if pool != nil {
		pool.Close()
		slog.Info("database connection closed")
	}
	slog.Info("server exited")
}
