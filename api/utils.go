package api

import (
	"encoding/json"
	"net/http"

	"PipelineSync/api/constants"
	"PipelineSync/internal/logger"
)

// Error response helper
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	logger.Component("api").WithField("status", status).Error(errMsg)
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithJSON writes payload with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Component("api").WithError(err).Warn("response encode failed")
	}
}

// IsJSONArray reports whether raw holds a JSON array. Absent or null values
// are reported as not present.
func IsJSONArray(raw json.RawMessage) (present, isArray bool) {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case 'n':
			return false, false
		case '[':
			return true, true
		default:
			return true, false
		}
	}
	return false, false
}
