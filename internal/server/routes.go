package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// routes registers every endpoint. Tickers may contain slashes (DBnomics
// series codes), so the ticker variable matches the rest of the path.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	api.HandleFunc("/registry", s.handleRegistry).Methods(http.MethodGet)

	api.HandleFunc("/series/{ticker:.+}", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/metadata/{ticker:.+}", s.handleMetadata).Methods(http.MethodGet)
	api.HandleFunc("/url/{ticker:.+}", s.handleSeriesURL).Methods(http.MethodGet)
	api.HandleFunc("/transfer/{ticker:.+}", s.handleTransfer).Methods(http.MethodPost)

	return r
}
