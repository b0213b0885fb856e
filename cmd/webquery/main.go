package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/term"

	"github.com/erdemdnmz2/WebQuery/internal/api"
	"github.com/erdemdnmz2/WebQuery/internal/config"
	"github.com/erdemdnmz2/WebQuery/internal/data"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
	"github.com/erdemdnmz2/WebQuery/internal/pool"
	"github.com/erdemdnmz2/WebQuery/internal/registry"
	"github.com/erdemdnmz2/WebQuery/internal/service"

	// Target database drivers (ODBC is registered in driver_odbc.go)
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	// Check for CLI subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "create-admin":
			handleCreateAdmin(os.Args[2:])
			return
		case "reset-password":
			handleResetPassword(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	startServer()
}

func printHelp() {
	fmt.Println("WebQuery - Credential-Scoped SQL Execution Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  webquery                            Start the server")
	fmt.Println("  webquery create-admin -u <user>     Create the first admin user (interactive)")
	fmt.Println("  webquery reset-password -u <user>   Reset user password (interactive)")
	fmt.Println("  webquery help                       Show this help")
}

// readPasswordTwice prompts for a password with confirmation, input hidden.
func readPasswordTwice() (string, error) {
	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := string(passBytes)

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if password != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func handleCreateAdmin(args []string) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	username := fs.String("u", "", "Admin username")
	email := fs.String("e", "", "Admin email")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: webquery create-admin -u <username> [-e <email>]")
		os.Exit(1)
	}

	password, err := readPasswordTwice()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitDiscard()

	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authSvc := service.NewAuthService(data.NewUserRepo(db))
	if _, err := authSvc.CreateAdmin(*username, *email, password); err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin user '%s' created successfully.\n", *username)
}

func handleResetPassword(args []string) {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("u", "", "Username to reset")
	fs.Parse(args)

	if *username == "" {
		fmt.Println("Usage: webquery reset-password -u <username>")
		os.Exit(1)
	}

	password, err := readPasswordTwice()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitDiscard()

	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		fmt.Printf("Failed to init database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	authSvc := service.NewAuthService(data.NewUserRepo(db))
	if err := authSvc.ResetPassword(*username, password); err != nil {
		fmt.Printf("Failed to reset password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Password for user '%s' has been reset successfully.\n", *username)
}

func startServer() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\nCheck .env file or WEBQUERY_KEY environment variable.\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	logDir := "logs"
	if err := logger.Init(logDir); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info.Println("Starting WebQuery...")

	// 3. Initialize DB
	db, err := data.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	// 4. Initialize Repos
	userRepo := data.NewUserRepo(db)
	queryRepo := data.NewQueryRepo(db)
	execLogRepo := data.NewExecutionLogRepo(db)
	loginLogRepo := data.NewLoginLogRepo(db)
	databaseRepo := data.NewDatabaseRepo(db)

	// 5. Initialize Services
	// Credentials are encrypted with an ephemeral key that dies with the
	// process; a restart invalidates every cached password by construction.
	cryptoSvc, err := service.NewEphemeralEncryptionService()
	if err != nil {
		logger.Error.Fatalf("Failed to init crypto service: %v", err)
	}
	credentials := service.NewCredentialCache(cryptoSvc, time.Duration(cfg.SessionTimeoutMinutes)*time.Minute)

	connPool := pool.New(cfg.PoolMaxEntries, cfg.PoolMaxConnsPerEntry, time.Duration(cfg.PoolIdleTTLMinutes)*time.Minute)
	connPool.StartSweep(time.Duration(cfg.PoolSweepIntervalSeconds) * time.Second)
	defer connPool.Close()

	reg := registry.New(cfg, databaseRepo)
	reg.Refresh(context.Background())

	authSvc := service.NewAuthService(userRepo)
	classifier := service.NewRiskClassifier()
	executor := service.NewQueryExecutor(connPool, reg, credentials, execLogRepo,
		cfg.MaxRowCountLimit, cfg.MaxRowCountWarning, time.Duration(cfg.QueryTimeoutSeconds)*time.Second)

	var notifier service.ApprovalNotifier
	if cfg.SlackWebhookURL != "" {
		notifier = service.NewSlackNotifier(cfg.SlackWebhookURL)
	}
	workflow := service.NewApprovalWorkflow(classifier, queryRepo, executor, notifier)
	workspaces := service.NewWorkspaceService(queryRepo)

	// 6. Initialize Handlers
	sessions := api.NewSessionAuth(cfg.MasterKey, userRepo)
	authHandler := api.NewAuthHandler(authSvc, credentials, connPool, loginLogRepo, sessions)
	queryHandler := api.NewQueryHandler(workflow, reg)
	workspaceHandler := api.NewWorkspaceHandler(workspaces, workflow)
	adminHandler := api.NewAdminHandler(workflow, reg)

	// 7. Start Server
	r := chi.NewRouter()
	r.Use(api.LoggingMiddleware)

	// Rate Limiters
	loginLimiter := api.NewRateLimiter(5, 3)   // 5 req/min, burst 3 (brute force protection)
	queryLimiter := api.NewRateLimiter(60, 10) // 60 req/min, burst 10

	// Public Routes
	r.Post("/register", authHandler.Register)
	r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	// Authenticated Routes
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/servers", queryHandler.ListServers)
		r.With(queryLimiter.MiddlewareByUser).Post("/execute", queryHandler.Execute)

		workspaceHandler.RegisterRoutes(r)

		// Admin-only
		r.Group(func(r chi.Router) {
			r.Use(sessions.AdminMiddleware)
			adminHandler.RegisterRoutes(r)
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	// Graceful shutdown channel
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-stop
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
}
