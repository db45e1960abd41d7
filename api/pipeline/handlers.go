package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"PipelineSync/api"
	"PipelineSync/api/constants"
	"PipelineSync/api/utils"
	"PipelineSync/internal/audit"
	"PipelineSync/internal/config"
	"PipelineSync/internal/logger"
	engine "PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/apply"
	"PipelineSync/internal/pipeline/extract"
	"PipelineSync/internal/pipeline/model"
)

// ParseUpload handles POST /pipeline/import/parse with a multipart "file".
func ParseUpload(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Component("pipeline-api")
		defer func() {
			if p := recover(); p != nil {
				log.Errorf("panic in parse: %v", p)
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrParseFailed)
			}
		}()

		r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileTooLarge)
				return
			}
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoFileUploaded)
			return
		}
		file, header, err := r.FormFile(constants.FormFieldFile)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoFileUploaded)
			return
		}
		defer file.Close()

		res, err := eng.Parse(file, header.Filename)
		if err != nil {
			if extract.IsStructural(err) {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.WithError(err).WithField("file", header.Filename).Error("parse failed")
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrParseFailed)
			return
		}

		api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":             true,
			"deals":               res.Deals,
			"account_assignments": res.Assignments,
			"summary":             res.Summary,
			"debug":               res.Debug,
		})
	}
}

// PreviewSnapshot handles GET /pipeline/import/preview.
func PreviewSnapshot(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := eng.Snapshot(r.Context())
		if err != nil {
			logger.Component("pipeline-api").WithError(err).Error("snapshot failed")
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrPreviewFailed)
			return
		}
		api.RespondWithJSON(w, http.StatusOK, res)
	}
}

type previewPayload struct {
	Deals       json.RawMessage `json:"deals"`
	Assignments json.RawMessage `json:"account_assignments"`
}

// Preview handles POST /pipeline/import/preview.
func Preview(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body previewPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if _, ok := api.IsJSONArray(body.Deals); !ok {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrDealsNotArray)
			return
		}
		if present, ok := api.IsJSONArray(body.Assignments); present && !ok {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrAssignNotArray)
			return
		}

		var req engine.PreviewRequest
		if err := json.Unmarshal(body.Deals, &req.Deals); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if len(body.Assignments) > 0 {
			if err := json.Unmarshal(body.Assignments, &req.Assignments); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
		}

		res, err := eng.Preview(r.Context(), req)
		if err != nil {
			logger.Component("pipeline-api").WithError(err).Error("preview failed")
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrPreviewFailed)
			return
		}
		api.RespondWithJSON(w, http.StatusOK, res)
	}
}

type applyPayload struct {
	Changes     json.RawMessage    `json:"changes"`
	Assignments json.RawMessage    `json:"account_assignments"`
	Options     model.ApplyOptions `json:"options"`
	Source      string             `json:"source"`
}

// Apply handles POST /pipeline/import/apply. Item failures are reported in
// the body with status 200; only a panic yields 500.
func Apply(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Component("pipeline-api")
		defer func() {
			if p := recover(); p != nil {
				log.Errorf("panic in apply: %v", p)
				api.RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", constants.ErrApplyPanicked, p))
			}
		}()

		var body applyPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if _, ok := api.IsJSONArray(body.Changes); !ok {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrChangesNotArray)
			return
		}
		if present, ok := api.IsJSONArray(body.Assignments); present && !ok {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrAssignNotArray)
			return
		}

		req := apply.Request{Options: body.Options}
		if err := json.Unmarshal(body.Changes, &req.Changes); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if len(body.Assignments) > 0 {
			if err := json.Unmarshal(body.Assignments, &req.Assignments); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
		}

		source := body.Source
		if source == "" {
			source = r.RemoteAddr
		}
		res := eng.Apply(r.Context(), req, source)
		api.RespondWithJSON(w, http.StatusOK, res)
	}
}

// History handles GET /pipeline/import/runs.
func History(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := utils.ExtractPagination(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		runs, err := eng.History(r.Context(), page.Limit, page.Offset)
		if err != nil {
			logger.Component("pipeline-api").WithError(err).Error("history failed")
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrHistoryFailed)
			return
		}
		if runs == nil {
			runs = []audit.Run{}
		}
		api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"runs":       runs,
			"pagination": page,
		})
	}
}
