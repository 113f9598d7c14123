// backend/src/handlers/anomaly_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/services"
	"github.com/statify/backend/src/storage"
	"github.com/statify/backend/src/utils"
)

type AnomalyHandler struct {
	uploadService services.UploadService
	store         storage.Store
}

func NewAnomalyHandler(service services.UploadService, store storage.Store) *AnomalyHandler {
	return &AnomalyHandler{
		uploadService: service,
		store:         store,
	}
}

// HandleListAnomalies serves the anomalies flagged on an upload's
// transactions.
func (h *AnomalyHandler) HandleListAnomalies(w http.ResponseWriter, r *http.Request) {
	uploadID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}
	if _, err := h.uploadService.GetUpload(uploadID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	anomalies, err := h.store.ListAnomaliesByUpload(uploadID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	utils.SendJSON(w, http.StatusOK, anomalies)
}

// HandleUpdateAnomalyStatus moves an open anomaly through the review
// workflow. Only "confirmed" and "dismissed" are accepted.
func (h *AnomalyHandler) HandleUpdateAnomalyStatus(w http.ResponseWriter, r *http.Request) {
	anomalyID, ok := parseIDPathValue(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"Invalid request body.", "Send a JSON body with a 'status' field.")
		return
	}
	if req.Status != models.AnomalyStatusConfirmed && req.Status != models.AnomalyStatusDismissed {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"status must be 'confirmed' or 'dismissed'.",
			"Anomalies can only be confirmed or dismissed.")
		return
	}

	if _, err := h.store.GetAnomaly(anomalyID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if err := h.store.UpdateAnomalyStatus(anomalyID, req.Status, time.Now().UTC()); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	anomaly, err := h.store.GetAnomaly(anomalyID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	logger.L.Info("Anomaly reviewed", "anomalyID", anomalyID, "status", req.Status)
	utils.SendJSON(w, http.StatusOK, anomaly)
}
