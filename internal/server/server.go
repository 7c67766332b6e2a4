package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopcart/apiserver/config"
	"github.com/shopcart/apiserver/internal/blocklist"
	"github.com/shopcart/apiserver/internal/db"
	"github.com/shopcart/apiserver/internal/handlers"
	"github.com/shopcart/apiserver/internal/mq"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/storage"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/internal/token"
)

// Server wraps the HTTP server, router and the external connections it
// owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	blocklist  handlers.Blocklist
	publisher  *mq.Publisher
}

// New wires config, storage, broker and token plumbing into a ready
// Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	addressRepo := store.NewAddressRepository(dbConn)
	itemRepo := store.NewItemRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)

	tokenBlocklist, err := newBlocklist(ctx, cfg, dbConn)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	imageStorage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := newPublisher(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	userService := services.NewUserService(userRepo, imageStorage)
	addressService := services.NewAddressService(addressRepo)
	itemService := services.NewItemService(itemRepo, imageStorage)

	var orderEvents services.OrderEventPublisher
	if publisher != nil {
		orderEvents = publisher
	}
	orderService := services.NewOrderService(orderRepo, itemRepo, orderEvents)

	requireAuth := handlers.RequireAuth(issuer, tokenBlocklist)
	requireAdmin := handlers.RequireAdmin(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/static/images/*", handlers.ServeImage(imageStorage))
	router.Route("/user", func(r chi.Router) {
		handlers.AuthRouter(r, userService, issuer, tokenBlocklist)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			handlers.UserRouter(r, userService, addressService)
			handlers.OrderRouter(r, orderService)
		})
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, requireAdmin)
		handlers.AdminUserRouter(r, userService, addressService)
		handlers.AdminItemRouter(r, itemService)
		handlers.AdminOrderRouter(r, orderService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		blocklist:  tokenBlocklist,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if closer, ok := s.blocklist.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// newBlocklist picks the Redis backend when configured, otherwise the
// token_blocklist table.
func newBlocklist(ctx context.Context, cfg config.Config, dbConn *sql.DB) (handlers.Blocklist, error) {
	if cfg.Redis.Addr == "" {
		return store.NewBlocklistRepository(dbConn), nil
	}
	redisBlocklist, err := blocklist.NewRedisBlocklist(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis blocklist: %w", err)
	}
	return redisBlocklist, nil
}

// newStorage builds the configured image storage backend and makes sure
// its bucket (or directory) exists.
func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	var (
		backend storage.ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "", "local":
		backend, err = storage.NewLocalClient(cfg.LocalDir)
	case "minio":
		backend, err = storage.NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Backend, err)
	}

	s := storage.NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure storage bucket: %w", err)
	}
	return s, nil
}

// newPublisher builds the configured order event publisher. An empty
// backend disables publishing.
func newPublisher(ctx context.Context, cfg config.MQConfig) (*mq.Publisher, error) {
	var (
		backend mq.Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err = mq.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = mq.NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s broker: %w", cfg.Backend, err)
	}
	return mq.NewPublisher(backend, cfg.Channel), nil
}
