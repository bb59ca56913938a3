package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"msgcard/cache"
	"msgcard/config"
	"msgcard/core/card"
	"msgcard/core/media"
	"msgcard/db"
	"msgcard/logger"
	"msgcard/repository"
	"msgcard/storage"

	"github.com/gorilla/mux"
)

// NewRouter 注册所有路由
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	// 贺卡
	router.HandleFunc("/api/cards", h.AuthMiddleware(h.CreateCardHandler)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/cards/{id}", h.GetCardHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/cards/{id}", h.AuthMiddleware(h.DeleteCardHandler)).Methods(http.MethodDelete, http.MethodOptions)
	router.HandleFunc("/api/cards/{id}/captions", h.GetCaptionsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/uploads", h.AuthMiddleware(h.UploadHandler)).Methods(http.MethodPost, http.MethodOptions)

	// 用户认证
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	// 预览会话
	router.HandleFunc("/ws/cards/{id}", h.SessionHandler).Methods(http.MethodGet)

	return router
}

// OpenCardRepository 按 DB_DRIVER 打开贺卡仓库，返回的 close 用于释放连接
func OpenCardRepository(cfg *config.Config) (repository.CardRepository, func() error, error) {
	switch cfg.DBDriver {
	case "mysql":
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrateModels(); err != nil {
			db.CloseGormDB()
			return nil, nil, err
		}
		return repository.NewGormCardRepository(db.GormDB), db.CloseGormDB, nil
	case "sqlite", "":
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteCardRepository(conn), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// NewCardService 装配贺卡服务。Redis 和 MinIO 不可用时降级运行
func NewCardService(cfg *config.Config, repo repository.CardRepository) (*card.Service, *storage.Store) {
	opts := []card.Option{
		card.WithPresignTTL(cfg.PresignTTL),
		card.WithShareBaseURL(cfg.PublicBaseURL),
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis 不可用，贺卡缓存已关闭", logger.ErrorField(err))
	} else {
		opts = append(opts, card.WithCache(cache.NewCardCache(cache.RedisClient), cfg.RecordCacheTTL()))
	}

	store, err := storage.NewStore(cfg)
	if err != nil {
		logger.Warn("MinIO 客户端创建失败，仅支持绝对 URL 媒体", logger.ErrorField(err))
		return card.NewService(repo, nil, opts...), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("MinIO 存储桶检查失败", logger.ErrorField(err))
	}
	return card.NewService(repo, store, opts...), store
}

// Start initializes and starts the HTTP server.
func Start(cfg *config.Config) error {
	repo, closeRepo, err := OpenCardRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to open card repository: %w", err)
	}
	defer closeRepo()
	defer cache.CloseRedis()

	cards, store := NewCardService(cfg, repo)
	var uploader Uploader
	if store != nil {
		uploader = store
	}

	h := NewAPIHandler(cards, uploader, media.NewProber(cfg.FFmpegPath), cfg)
	sessions, stopSessions := context.WithCancel(context.Background())
	defer stopSessions()
	h.sessions = sessions

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      NewRouter(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-stop:
	}
	logger.Info("Shutting down server...")
	stopSessions()

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
