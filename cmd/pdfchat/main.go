package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfchat/internal/chat"
	"github.com/xxxsen/pdfchat/internal/config"
	"github.com/xxxsen/pdfchat/internal/db"
	"github.com/xxxsen/pdfchat/internal/filestore"
	"github.com/xxxsen/pdfchat/internal/handler"
	"github.com/xxxsen/pdfchat/internal/ingest"
	"github.com/xxxsen/pdfchat/internal/job"
	"github.com/xxxsen/pdfchat/internal/middleware"
	"github.com/xxxsen/pdfchat/internal/oauth"
	"github.com/xxxsen/pdfchat/internal/ragclient"
	"github.com/xxxsen/pdfchat/internal/repo"
	"github.com/xxxsen/pdfchat/internal/schedule"
	"github.com/xxxsen/pdfchat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pdfchat",
		Short: "pdfchat gateway and chat client",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run pdfchat gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer func() { _ = conn.Close() }()
			if err := db.ApplyMigrations(cmd.Context(), conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(runCmd, newChatCommand())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("backend", cfg.Backend.Endpoint),
		zap.String("file_store", cfg.FileStore.Type),
	)
	secret := []byte(cfg.JWTSecret)

	userRepo := repo.NewUserRepo(conn)
	oauthRepo := repo.NewOAuthRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	chatRepo := repo.NewChatSessionRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	rag := ragclient.New(cfg.Backend.Endpoint, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second)
	notifier := ingest.NewNotifier(rag, docRepo,
		ingest.WithAttempts(cfg.Backend.IngestAttempts),
		ingest.WithDelay(time.Duration(cfg.Backend.IngestDelaySeconds)*time.Second),
	)

	maxUpload := cfg.MaxUploadMB << 20
	catalog := service.NewDemoCatalog(cfg.Demo.Documents)
	documentService := service.NewDocumentService(docRepo, store, notifier, maxUpload)
	chatService := service.NewChatService(chatRepo, docRepo, chat.NewBackend(rag), catalog)
	authService := service.NewAuthService(userRepo, oauthRepo, secret, 0, documentService, chatService)
	oauthService := service.NewOAuthService(userRepo, oauthRepo, secret, 0, buildOAuthProviders(cfg.OAuth))

	deps := handler.RouterDeps{
		Auth:           handler.NewAuthHandler(authService),
		OAuth:          handler.NewOAuthHandler(oauthService),
		Users:          handler.NewUserHandler(authService),
		PDFs:           handler.NewPDFHandler(documentService, maxUpload),
		Chats:          handler.NewChatHandler(chatService),
		Demo:           handler.NewDemoHandler(catalog, chatService),
		Files:          handler.NewFileHandler(store),
		JWTSecret:      secret,
		AuthRateWindow: time.Duration(cfg.AuthRateLimitMS) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			middleware.Gate(secret, cfg.Gate),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`^/api/(demo/)?chat/stream/`})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	sweep := job.NewIngestSweepJob(docRepo, notifier, cfg.Backend.ServiceToken,
		time.Duration(cfg.Jobs.IngestStaleMinutes)*time.Minute)
	if err := scheduler.AddJob(sweep, cfg.Jobs.IngestSweepSpec); err != nil {
		return fmt.Errorf("schedule ingest sweep: %w", err)
	}
	scheduler.Start(ctx)
	go scheduler.RunNow(sweep.Name())

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	notifier.Wait()
	return nil
}

func buildOAuthProviders(cfg config.OAuthConfig) map[string]oauth.Provider {
	providers := map[string]oauth.Provider{}
	client := &http.Client{Timeout: 10 * time.Second}
	for name, item := range map[string]config.OAuthProviderConfig{"github": cfg.Github, "google": cfg.Google} {
		if !item.Enabled {
			continue
		}
		provider, err := oauth.NewProvider(name, oauth.ProviderArgs{Config: oauth.ProviderConfig{
			ClientID:     item.ClientID,
			ClientSecret: item.ClientSecret,
			RedirectURL:  item.RedirectURL,
			Scopes:       item.Scopes,
		}, Client: client})
		if err != nil {
			logutil.GetLogger(context.Background()).Error("init oauth provider failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		providers[name] = provider
	}
	return providers
}
