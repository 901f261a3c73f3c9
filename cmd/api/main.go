package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/config"
	"github.com/esrabs/evaluation-commerciale-be/internal/httpapi"
	"github.com/esrabs/evaluation-commerciale-be/internal/messaging"
	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
	"github.com/esrabs/evaluation-commerciale-be/internal/store/pg"
	"github.com/esrabs/evaluation-commerciale-be/internal/stream"
)

var commit = "unknown"

func main() {
	if err := run(); err != nil {
		log.Fatalf("sales-eval-api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.LogMode)
	if err != nil {
		return err
	}
	obs.SetLogger(logger)
	defer logger.Sync()

	obs.Init()
	if cfg.Commit != "" {
		commit = cfg.Commit
	}
	obs.SetBuildInfo(cfg.Version, commit)

	var (
		orgStore   org.Store       = org.NewInMemory()
		salesStore sales.Store     = sales.NewInMemory()
		msgStore   messaging.Store = messaging.NewInMemory()
		ready      httpapi.ReadyProbe
	)
	if !cfg.InMemory() {
		db, err := pg.Open(cfg.PGDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		orgStore, salesStore, msgStore = db.Directory(), db.Ledger(), db.Messages()
		ready = httpapi.ReadyProbe{DB: db.DB()}
	} else {
		logger.Warn("no database configured, using in-memory stores")
	}

	tokens, err := auth.NewTokenService(cfg.AuthSecret, auth.WithIssuer(cfg.AuthIssuer))
	if err != nil {
		return err
	}
	directory, err := org.NewService(orgStore)
	if err != nil {
		return err
	}
	live := stream.New(cfg.StreamBuffer)
	ledger, err := sales.NewService(salesStore, directory, sales.WithPublisher(live))
	if err != nil {
		return err
	}
	messages, err := messaging.NewService(msgStore, directory)
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Config{
		Directory:    directory,
		Sales:        ledger,
		Messages:     messages,
		Tokens:       tokens,
		Stream:       live,
		Ready:        ready,
		Version:      cfg.Version,
		CORSOrigins:  cfg.CORSOrigins,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// no WriteTimeout: SSE streams stay open
		IdleTimeout: 60 * time.Second,
	}
	grpcSrv := httpapi.NewGRPCServer(ledger, tokens, ready).NewServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", srv.Addr, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info("grpc listening", "addr", cfg.GRPCAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcDone := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(grpcDone)
		}()
		err := srv.Shutdown(shutdownCtx)
		select {
		case <-grpcDone:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stopped")
	return nil
}
