package server

import (
	"net/http"

	"msgcard/core/session"
	"msgcard/logger"

	"github.com/gorilla/mux"
)

// SessionHandler 建立预览会话：服务端运行播放核心，通过 websocket 推送状态
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.cards.Lookup(r.Context(), id)
	if err != nil {
		h.lookupError(w, id, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	player := session.NewPlayer(rec, session.PlayerOptions{
		Tick:   h.cfg.SessionTick,
		Prober: h.prober,
	})
	session.New(conn, player, nil).Run(h.sessions)
}
