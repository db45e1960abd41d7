package pipeline

import (
	"net/http"

	"github.com/gorilla/mux"

	"PipelineSync/api"
	"PipelineSync/api/constants"
	engine "PipelineSync/internal/pipeline"
)

func NewRouter(eng *engine.Engine) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/pipeline/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Pipeline Service is active"))
	}).Methods(http.MethodGet)

	imp := router.PathPrefix("/pipeline/import").Subrouter()
	imp.HandleFunc("/parse", ParseUpload(eng)).Methods(http.MethodPost)
	imp.HandleFunc("/preview", PreviewSnapshot(eng)).Methods(http.MethodGet)
	imp.HandleFunc("/preview", Preview(eng)).Methods(http.MethodPost)
	imp.HandleFunc("/apply", Apply(eng)).Methods(http.MethodPost)
	imp.HandleFunc("/runs", History(eng)).Methods(http.MethodGet)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
	})
	return router
}
