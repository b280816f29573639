// Command upstream serves a local stand-in for the pricing API so the
// service can run without real property credentials.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

func main() {
	port := getEnv("PORT", "9001")
	failRate, err := strconv.ParseFloat(getEnv("FAIL_RATE", "0.05"), 64)
	if err != nil {
		failRate = 0.05
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	api := NewMockAPI(MockOptions{
		Username:   getEnv("MOCK_USERNAME", "demo"),
		Password:   getEnv("MOCK_PASSWORD", "demo"),
		FailRate:   failRate,
		MaxLatency: 300 * time.Millisecond,
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /rest/", api)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write healthz response", "error", err)
		}
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("mock pricing api listening", "addr", addr, "fail_rate", failRate)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
