package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/platform"
)

// SeriesResponse is the body of GET /api/series/{ticker}.
type SeriesResponse struct {
	Ticker       string               `json:"ticker"`
	Record       *models.SeriesRecord `json:"record,omitempty"`
	Observations []models.Observation `json:"observations"`
}

// TransferRequest is the body of POST /api/transfer/{ticker}.
type TransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	p := s.app.Platform
	WriteJSON(w, http.StatusOK, map[string][]string{
		"providers": p.Providers.Codes(),
		"stores":    p.Stores.Codes(),
		"policies":  p.Policies.Names(),
	})
}

// handleSeries fetches a series. Query parameters: store, policy, keep_missing.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	q := r.URL.Query()
	opts := platform.FetchOptions{
		Store:       q.Get("store"),
		Policy:      q.Get("policy"),
		KeepMissing: QueryBool(r, "keep_missing"),
	}

	ser, rec, err := s.app.Platform.FetchWithRecord(r.Context(), ticker, opts)
	if err != nil {
		WriteFetchError(w, err)
		return
	}

	obs := ser.Observations
	if obs == nil {
		obs = []models.Observation{}
	}
	WriteJSON(w, http.StatusOK, SeriesResponse{Ticker: ser.Ticker, Record: rec, Observations: obs})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.Platform.Metadata(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("store"))
	if err != nil {
		WriteFetchError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSeriesURL(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Platform.SeriesURL(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("store"))
	if err != nil {
		WriteFetchError(w, err)
		return
	}
	if u == "" {
		WriteError(w, http.StatusNotFound, "No web page for series")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		WriteError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	ticker := mux.Vars(r)["ticker"]
	if err := s.app.Platform.Transfer(r.Context(), ticker, req.From, req.To); err != nil {
		WriteFetchError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"ticker": ticker, "from": req.From, "to": req.To})
}
