package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"neuratalk/internal/config"
	"neuratalk/internal/db"
	apihttp "neuratalk/internal/http"
	"neuratalk/internal/llm"
	"neuratalk/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	snapshotRepo, closeStorage, err := db.NewSnapshotRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init", zap.Error(err), zap.String("driver", cfg.StorageDriver))
	}
	defer closeStorage()

	credentials := service.NewCredentialHolder(cfg.CredentialTTL, logger)
	credentials.AdoptEnvironment(cfg.LLMAPIKey)

	store := service.NewSessionStore(credentials)
	persister := service.NewPersister(snapshotRepo, logger)
	persister.Restore(ctx, store)
	store.Subscribe(persister.Notify)
	store.Bootstrap()

	// El persister sobrevive al drenaje de requests; se detiene despues de Shutdown.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	persistDone := make(chan struct{})
	go func() {
		persister.Run(persistCtx)
		close(persistDone)
	}()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(store, llmClient, logger)

	chatHandler := apihttp.NewChatHandler(logger, store, chatSvc)
	settingsHandler := apihttp.NewSettingsHandler(logger, store, chatSvc)
	router := apihttp.NewRouter(logger, chatHandler, settingsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("storage", cfg.StorageDriver),
		zap.Bool("env_credential", cfg.LLMAPIKey != ""),
	)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	if err := serve(ctx, server, ln, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}

	// Cerrar el proceso equivale a cerrar la pestaña.
	store.ClearCredential(service.ClearReasonUnload)
	stopPersist()
	<-persistDone
	logger.Info("server stopped")
}

// serve atiende hasta que ctx se cancela y vuelve recien cuando Shutdown
// termino de drenar los handlers en curso.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *zap.Logger) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}
