// Command proxy runs the local CORS-bypass proxy server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apiclient-backend/pkg/proxyserver"
)

func main() {
	var (
		port     = flag.Int("port", 9090, "Port to listen on")
		host     = flag.String("host", "0.0.0.0", "Host to bind to")
		origin   = flag.String("origin", "*", "CORS origin to allow")
		username = flag.String("username", "", "Basic auth username")
		password = flag.String("password", "", "Basic auth password")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	proxy := proxyserver.New(proxyserver.Config{
		Origin:   *origin,
		Username: *username,
		Password: *password,
	}, nil, logger)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	server := &http.Server{
		Addr:              addr,
		Handler:           proxy.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("cors proxy listening",
		"addr", addr,
		"health", fmt.Sprintf("http://%s/health", addr),
		"auth", *username != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
