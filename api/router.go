package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the relay's HTTP route table around h.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLoggingMiddleware)

	router.HandleFunc("/", h.HandleRoot).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/status", h.HandleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/send", h.HandleSend).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/poll", h.HandlePoll).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/consume", h.HandleConsume).Methods(http.MethodPost)

	return router
}
