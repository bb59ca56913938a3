package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"msgcard/config"
	"msgcard/core/session"
	"msgcard/model"

	"github.com/gorilla/websocket"
)

// CardService 贺卡查询与管理
type CardService interface {
	Lookup(ctx context.Context, id string) (*model.MessageRecord, error)
	Create(ctx context.Context, req *model.CreateCardRequest, createdBy string) (*model.Card, error)
	Delete(ctx context.Context, id string) error
	ShareURL(id string) string
}

// Uploader 媒体上传
type Uploader interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// APIHandler 持有所有 HTTP 处理器共享的依赖
type APIHandler struct {
	cards    CardService
	uploader Uploader
	prober   session.DurationProber
	cfg      *config.Config
	upgrader websocket.Upgrader
	now      func() time.Time
	// sessions 在服务关闭时取消，用于结束预览会话
	sessions context.Context
}

// NewAPIHandler 创建新的API处理器，uploader 和 prober 可以为 nil
func NewAPIHandler(cards CardService, uploader Uploader, prober session.DurationProber, cfg *config.Config) *APIHandler {
	return &APIHandler{
		cards:    cards,
		uploader: uploader,
		prober:   prober,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now:      time.Now,
		sessions: context.Background(),
	}
}

// HealthHandler 存活检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
