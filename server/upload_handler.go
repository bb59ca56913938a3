package server

import (
	"net/http"

	"msgcard/logger"
	"msgcard/storage"
)

const maxUploadSize = 200 << 20

// UploadResponse 上传结果，key 用于创建贺卡
type UploadResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// UploadHandler 上传媒体或字幕文件到对象存储
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "Object storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	key := storage.ObjectKey(r.FormValue("cardId"), header.Filename)
	key, err = h.uploader.Put(r.Context(), key, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("上传文件失败", logger.String("filename", header.Filename), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, &UploadResponse{Key: key, Size: header.Size})
}
