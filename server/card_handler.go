package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"msgcard/core/caption"
	"msgcard/core/card"
	"msgcard/logger"
	"msgcard/model"

	"github.com/gorilla/mux"
)

// CaptionsResponse 解析后的字幕时间轴
type CaptionsResponse struct {
	ID       string           `json:"id"`
	Captions caption.Timeline `json:"captions"`
	Duration float64          `json:"duration"`
	Fallback string           `json:"fallback"`
}

// GetCardHandler 返回贺卡记录
func (h *APIHandler) GetCardHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.cards.Lookup(r.Context(), id)
	if err != nil {
		h.lookupError(w, id, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSON(w, http.StatusOK, rec)
}

// GetCaptionsHandler 返回解析后的字幕
func (h *APIHandler) GetCaptionsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.cards.Lookup(r.Context(), id)
	if err != nil {
		h.lookupError(w, id, err)
		return
	}

	tl := caption.Parse(rec.CaptionSource)
	writeJSON(w, http.StatusOK, &CaptionsResponse{
		ID:       rec.ID,
		Captions: tl,
		Duration: tl.End(),
		Fallback: rec.DisplayName,
	})
}

// CreateCardHandler 创建贺卡
func (h *APIHandler) CreateCardHandler(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())

	var req model.CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.cards.Create(r.Context(), &req, username)
	if err != nil {
		if errors.Is(err, card.ErrInvalidCard) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("创建贺卡失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, &model.CreateCardResponse{
		ID:       c.ID,
		ShareURL: h.cards.ShareURL(c.ID),
	})
}

// DeleteCardHandler 删除贺卡
func (h *APIHandler) DeleteCardHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.cards.Delete(r.Context(), id); err != nil {
		logger.Error("删除贺卡失败", logger.String("card", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) lookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, card.ErrNotFound) {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	logger.Error("查询贺卡失败", logger.String("card", id), logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
