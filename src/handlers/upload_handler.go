// backend/src/handlers/upload_handler.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/statify/backend/src/config"
	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/security/validation"
	"github.com/statify/backend/src/services"
	"github.com/statify/backend/src/storage"
	"github.com/statify/backend/src/utils"
)

const previewRowLimit = 10

type UploadHandler struct {
	uploadService services.UploadService
	store         storage.Store
}

func NewUploadHandler(service services.UploadService, store storage.Store) *UploadHandler {
	return &UploadHandler{
		uploadService: service,
		store:         store,
	}
}

// HandleUpload accepts one statement file, validates it at the boundary,
// creates the pending upload, and queues processing. Responds 202: the
// client polls the upload status for the outcome.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := config.Cfg.MaxUploadSizeBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+4096) // slack for multipart framing

	if err := r.ParseMultipartForm(maxSize); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", maxSize)
		utils.SendAPIError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %dMB limit.", maxSize/(1024*1024)),
			"Please split the statement into smaller files and upload again.")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendAPIError(w, http.StatusBadRequest, "MISSING_FILE",
			"Failed to retrieve file from request.",
			"Ensure the multipart 'file' field is used.")
		return
	}
	defer file.Close()

	if fileHeader.Size > maxSize {
		logger.L.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", maxSize)
		utils.SendAPIError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %dMB limit.", maxSize/(1024*1024)),
			"Please split the statement into smaller files and upload again.")
		return
	}

	ext := services.FileExtension(fileHeader.Filename)
	if err := validation.ValidateFileExtension(ext); err != nil {
		utils.SendAPIError(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE",
			err.Error(),
			"Please upload an Excel (.xlsx), PDF, or CSV file.")
		return
	}

	if _, err := validation.ValidateFileContentByMagicBytes(file, ext); err != nil {
		logger.L.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendAPIError(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE",
			err.Error(),
			"Please upload an Excel (.xlsx), PDF, or CSV file.")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		logger.L.Error("Failed to read uploaded file", "filename", fileHeader.Filename, "error", err)
		utils.SendAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred while reading the file.",
			"Please try again in a few moments.")
		return
	}

	upload, err := h.uploadService.InitiateUpload(fileHeader.Filename)
	if err != nil {
		logger.L.Error("Failed to initiate upload", "filename", fileHeader.Filename, "error", err)
		utils.SendAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred. Our team has been notified.",
			"Please try again in a few moments.")
		return
	}

	if err := h.uploadService.ProcessUpload(upload.ID, content); err != nil {
		logger.L.Error("Failed to queue upload for processing", "uploadID", upload.ID, "error", err)
		utils.SendAPIError(w, http.StatusServiceUnavailable, "INGESTION_BUSY",
			"The server is busy processing other statements.",
			"Please retry the upload in a few moments.")
		return
	}

	utils.SendJSON(w, http.StatusAccepted, upload)
}

// HandleGetUpload serves the upload record for status polling.
func (h *UploadHandler) HandleGetUpload(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	upload, err := h.uploadService.GetUpload(uploadID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, upload)
}

// HandleGetPreview serves the first rows of a processed upload.
func (h *UploadHandler) HandleGetPreview(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	if _, err := h.uploadService.GetUpload(uploadID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	txns, err := h.store.ListTransactionsByUpload(uploadID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if len(txns) > previewRowLimit {
		txns = txns[:previewRowLimit]
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	utils.SendJSON(w, http.StatusOK, txns)
}

// HandleGetTransactions serves an upload's transactions with optional
// categoryId and keyword filters.
func (h *UploadHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	if _, err := h.uploadService.GetUpload(uploadID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	txns, err := h.store.ListTransactionsByUpload(uploadID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}

	if categoryIDStr := r.URL.Query().Get("categoryId"); categoryIDStr != "" {
		categoryID, err := strconv.ParseInt(categoryIDStr, 10, 64)
		if err != nil {
			utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
				"categoryId must be an integer.", "Check the query parameters and try again.")
			return
		}
		filtered := txns[:0]
		for _, txn := range txns {
			if txn.CategoryID != nil && *txn.CategoryID == categoryID {
				filtered = append(filtered, txn)
			}
		}
		txns = filtered
	}
	if keyword := strings.TrimSpace(r.URL.Query().Get("keyword")); keyword != "" {
		lower := strings.ToLower(keyword)
		filtered := txns[:0]
		for _, txn := range txns {
			if strings.Contains(strings.ToLower(txn.Description), lower) {
				filtered = append(filtered, txn)
			}
		}
		txns = filtered
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	utils.SendJSON(w, http.StatusOK, txns)
}

// HandleGetSummary serves the aggregate dashboard view with ETag support.
func (h *UploadHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	summary, err := h.uploadService.GetSummary(uploadID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etag, etagErr := utils.GenerateETag(summary); etagErr == nil && etag != "" {
		quotedETag := fmt.Sprintf("%q", etag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	utils.SendJSON(w, http.StatusOK, summary)
}

// HandleGetReport streams the CSV export of a processed upload.
func (h *UploadHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), config.Cfg.ReportTimeout)
	defer cancel()

	data, err := h.uploadService.BuildReportCSV(ctx, uploadID)
	if errors.Is(err, services.ErrReportTimeout) {
		logger.L.Error("Report generation timed out", "uploadID", uploadID)
		utils.SendAPIError(w, http.StatusGatewayTimeout, "REPORT_TIMEOUT",
			"Report generation is taking longer than expected.",
			"Please try again. If the problem persists, contact support.")
		return
	}
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.csv", uploadID))
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleOverrideCategory lets a reviewer replace the engine's category
// assignment on one transaction.
func (h *UploadHandler) HandleOverrideCategory(w http.ResponseWriter, r *http.Request) {
	txnID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("categoryId"), 10, 64)
	if err != nil {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"categoryId must be an integer.", "Check the query parameters and try again.")
		return
	}
	if _, err := h.store.GetCategory(categoryID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if err := h.store.UpdateTransactionCategory(txnID, categoryID, true); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	txn, err := h.store.GetTransaction(txnID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, txn)
}

// ── shared helpers ──

func parseIDPathValue(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.SendAPIError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND",
			"The requested resource could not be found.",
			"Check the ID and try again.")
		return uuid.Nil, false
	}
	return id, true
}

func sendNotFoundOrInternal(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, services.ErrUploadNotFound) {
		utils.SendAPIError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND",
			"The requested resource could not be found.",
			"Check the ID and try again.")
		return
	}
	logger.L.Error("Unhandled handler error", "error", err)
	utils.SendAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An unexpected error occurred. Our team has been notified.",
		"Please try again in a few moments.")
}
