package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/usecase"
	"github.com/Shadow-droid-3574/TeleResearch/internal/conf"
	"github.com/Shadow-droid-3574/TeleResearch/internal/data"
	"github.com/Shadow-droid-3574/TeleResearch/internal/infra/telegram"
	"github.com/Shadow-droid-3574/TeleResearch/internal/server"
	"github.com/Shadow-droid-3574/TeleResearch/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize Bot API client
	tgClient := telegram.NewClient(cfg.Telegram.Token)

	// Initialize repository layer
	repos, err := data.NewRepositories(tgClient, cfg.Store.DataFile, cfg.Store.AuditDBPath, cfg.Gateway.GatewayTimeout())
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	fmt.Printf("[Main] State file: %s\n", cfg.Store.DataFile)
	fmt.Printf("[Main] Audit DB: %s\n", cfg.Store.AuditDBPath)
	fmt.Printf("[Main] Admins: %v\n", cfg.Admins)

	// Initialize usecase layer
	classifier := domain.NewClassifier(cfg.Moderation.ToLinkRules())
	policyUC := usecase.NewPolicyUsecase(repos.State, cfg.Moderation.ToPolicyDefaults())
	modUC := usecase.NewModerationUsecase(repos.State, repos.Gateway, repos.Audit, policyUC, classifier)
	broadcastUC := usecase.NewBroadcastUsecase(repos.State, repos.Gateway, repos.Audit)
	fileUC := usecase.NewFileUsecase(repos.State)

	// Initialize service layer
	cmdSvc := service.NewCommandService(modUC, broadcastUC, fileUC, policyUC, cfg.Admins)

	// Initialize server
	srv := server.NewTelegramServer(tgClient, cmdSvc, modUC, repos.State, cfg.Gateway.PollTimeoutSeconds)

	fmt.Println("Starting TeleResearch moderation bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	srv.Stop()
}
