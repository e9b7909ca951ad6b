package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/dibyaarfianda/dokterdibya-realtime/internal/broadcast"
	"github.com/dibyaarfianda/dokterdibya-realtime/internal/router"
	"github.com/dibyaarfianda/dokterdibya-realtime/internal/server/middleware"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/config"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/presence"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/session"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/transport"
	"github.com/google/uuid"
)

type App struct {
	logger      *slog.Logger
	registry    *presence.Registry
	session     *session.Store
	broadcaster *broadcast.Broadcaster
	eventRouter *router.EventRouter
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	registry := presence.NewRegistry(logger)
	sessionStore := session.NewStore()
	broadcaster := broadcast.New(logger, registry, sessionStore)
	eventRouter := router.NewEventRouter(logger, registry, sessionStore, broadcaster)

	app := &App{
		logger:      logger,
		registry:    registry,
		session:     sessionStore,
		broadcaster: broadcaster,
		eventRouter: eventRouter,
		config:      cfg,
		ctx:         rootCtx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	// Cycle mode evicts the longest-lived connection from the same address.
	connCycler := func(ipAddr string) {
		oldest, found := registry.OldestByIP(ipAddr)
		if found {
			logger.Info("Cycling connection: closing oldest for address", slog.String("ip", ipAddr))
			oldest.Close(errors.New("connection cycled by new connection"))
		}
	}
	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewConnectionLimiter(
				logger,
				registry.CountByIP,
				connCycler,
				app.config.Server.ConnectionLimit,
			),
			middleware.NewAuthMiddleware(logger, app.config.Server.Auth.JWTSecret),
		),
	)

	app.http = &http.Server{Addr: app.config.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(slog.String("remoteAddr", reqMeta.IP))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		a.eventRouter.HandleMessage,
		func(id uuid.UUID, closeErr error) {
			connLogger.Info("Connection closed, running disconnect fan-out", slog.String("connID", id.String()))
			a.eventRouter.HandleDisconnect(id, closeErr)
		},
		a.logger,
	)
	if _, err := a.registry.Track(conn.ID(), reqMeta.IP, conn); err != nil {
		connLogger.Error("Failed to track connection", slog.Any("error", err))
		conn.Close(err)
		return
	}

	connLogger.Info("Client connected", slog.String("connID", conn.ID().String()))
	conn.Run()
	<-conn.Done()
}

// graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, sender := range a.registry.SendersExcept(uuid.Nil) {
		sender.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
