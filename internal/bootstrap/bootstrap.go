package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"visionlex-server-go/internal/app/notify"
	"visionlex-server-go/internal/app/orchestrator"
	domaincollection "visionlex-server-go/internal/domain/collection"
	domainhistory "visionlex-server-go/internal/domain/history"
	domainimage "visionlex-server-go/internal/domain/image"
	domainprefs "visionlex-server-go/internal/domain/prefs"
	domainspeech "visionlex-server-go/internal/domain/speech"
	domainvision "visionlex-server-go/internal/domain/vision"
	platformconfig "visionlex-server-go/internal/platform/config"
	platformerrors "visionlex-server-go/internal/platform/errors"
	platformlogging "visionlex-server-go/internal/platform/logging"
	platformstorage "visionlex-server-go/internal/platform/storage"
	httptransport "visionlex-server-go/internal/transport/http"
	httplearn "visionlex-server-go/internal/transport/http/learn"
	wstransport "visionlex-server-go/internal/transport/ws"
)

const shutdownGrace = 5 * time.Second

// Run starts the whole service lifecycle: load configuration, wire the
// domain, serve HTTP until a termination signal, then shut down cleanly.
func Run(ctx context.Context) error {
	loaded, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.Run", "load config", err)
	}
	cfg := loaded.Config

	logger, err := platformlogging.New(platformlogging.Config{
		Level: cfg.Log.Level,
		Dir:   cfg.Log.Dir,
		File:  cfg.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.Run", "init logging", err)
	}
	defer logger.Close()

	logger.InfoTag("BOOT", "visionlex-server starting (storage=%s, port=%d)", cfg.Storage.Driver, cfg.Server.Port)

	kv, err := platformstorage.New(cfg.Storage, logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.Run", "open storage", err)
	}
	defer kv.Close(context.Background())

	historyStore := domainhistory.NewStore(kv, cfg.History.Limit, logger)
	collectionStore := domaincollection.NewStore(kv, logger)
	prefsStore := domainprefs.NewStore(kv, logger)

	center := notify.NewCenter(logger)
	hub := wstransport.NewHub(logger)
	if err := hub.Bind(center); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.Run", "bind event hub", err)
	}
	defer hub.CloseAll()

	ingester := domainimage.NewIngester(cfg.Image, logger)
	visionClient := domainvision.NewClient(cfg.Vision, logger)
	registry := domainspeech.NewRegistry()
	defer registry.Close()
	speechClient := domainspeech.NewClient(cfg.TTS, registry, logger)

	orch := orchestrator.New(ingester, visionClient, speechClient, historyStore, prefsStore, center, logger)
	defer orch.Close()

	if !visionClient.Configured() {
		logger.WarnTag("BOOT", "vision API key missing, analysis is disabled")
		center.Warning("Service configuration is incomplete. Please check environment variables.")
	}
	if !speechClient.Configured() {
		logger.InfoTag("BOOT", "TTS credentials missing, audio synthesis is disabled")
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:     cfg,
		Logger:     logger,
		StaticRoot: cfg.Web.StaticDir,
	})
	if err != nil {
		return err
	}

	httplearn.NewService(orch, historyStore, collectionStore, prefsStore, registry, kv, logger).Register(router.API)
	router.API.GET("/events", hub.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port),
		Handler: router.Engine,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		logger.InfoTag("BOOT", "http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.Run", "http server", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.InfoTag("BOOT", "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorTag("BOOT", "server terminated: %v", err)
		return err
	}
	logger.InfoTag("BOOT", "visionlex-server stopped")
	return nil
}
