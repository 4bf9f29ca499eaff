// cmd/assistant/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bugtracker-assistant/internal/collaborator/httpapi"
	"bugtracker-assistant/internal/common/config"
	"bugtracker-assistant/internal/common/database"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/common/observability"
	"bugtracker-assistant/internal/contextstore"
	"bugtracker-assistant/internal/interpreter"
	"bugtracker-assistant/pkg/catalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name, os.Getenv("JAEGER_ENDPOINT"))
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Intent catalog ---
	var cat *catalog.Catalog
	if cfg.Interpreter.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.Interpreter.CatalogPath)
	} else {
		cat, err = catalog.Load()
	}
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}
	zapLog.Info("Intent catalog loaded", zap.Int("intents", len(cat.Names())))

	// --- Context store: Redis when enabled, in-process otherwise ---
	var store contextstore.Store = contextstore.NewMemoryStore()
	if cfg.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			rdb = database.NewRedis(cfg.Redis)
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		store = contextstore.NewRedisStore(rdb.Client, time.Duration(cfg.Redis.ContextTTL)*time.Second)
		zapLog.Info("Redis connected successfully")
	}

	// --- Collaborator clients ---
	ops := httpapi.New(cfg.Collaborators, log)
	zapLog.Info("Collaborator clients initialized", zap.String("baseUrl", cfg.Collaborators.BaseURL))

	interp := interpreter.New(
		cat, ops, store,
		cfg.Interpreter,
		time.Duration(cfg.Collaborators.Timeout)*time.Millisecond,
		obs, log,
	)

	// --- HTTP surface ---
	mux := http.NewServeMux()
	mux.HandleFunc("/interpret", interpretHandler(interp, time.Duration(cfg.Collaborators.RequestTimeout)*time.Millisecond, log))
	mux.HandleFunc("/history/", historyHandler(interp, log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Collaborators.RequestTimeout)*time.Millisecond + 5*time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
	zapLog.Info("Assistant stopped")
}

func interpretHandler(interp *interpreter.Interpreter, timeout time.Duration, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req interpreter.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("bad interpret request", map[string]interface{}{"error": err.Error()})
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		env := interp.Interpret(ctx, req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(env)
	}
}

func historyHandler(interp *interpreter.Interpreter, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID := r.URL.Path[len("/history/"):]
		if userID == "" {
			http.Error(w, "user id required", http.StatusBadRequest)
			return
		}

		entries, err := interp.History(r.Context(), userID)
		if err != nil {
			log.Error("history read failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"userId": userID, "history": entries})
	}
}
