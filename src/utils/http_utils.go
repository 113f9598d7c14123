// backend/src/utils/http_utils.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/statify/backend/src/logger"
)

// APIError is the JSON error envelope returned by every handler. Responses
// carry a stable code, a human-readable message and a suggested action,
// never raw internal diagnostics.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// SendAPIError writes an APIError envelope with the given HTTP status.
func SendAPIError(w http.ResponseWriter, statusCode int, code, message, action string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if logger.L != nil {
		logger.L.Warn("Sending API error to client", "code", code, "message", message, "statusCode", statusCode)
	}
	json.NewEncoder(w).Encode(APIError{
		Code:      code,
		Message:   message,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendJSON writes data as a JSON response with the given status.
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}

// GenerateETag creates a SHA256 hash of the JSON representation of the data.
// Returns the ETag string (hex-encoded hash) and any error during JSON marshaling.
func GenerateETag(data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal data for ETag generation: %w", err)
	}
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}
