package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// QueryBool parses a boolean query parameter; absent or malformed is false.
func QueryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// errorStatus maps platform errors onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tickers.ErrInvalidTicker):
		return http.StatusBadRequest, "invalid_ticker"
	case errors.Is(err, models.ErrTickerNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrNotImplemented):
		return http.StatusNotImplemented, "not_implemented"
	case errors.Is(err, models.ErrUnknownProvider),
		errors.Is(err, models.ErrUnknownStore),
		errors.Is(err, models.ErrUnknownPolicy):
		return http.StatusUnprocessableEntity, "unknown_code"
	case errors.Is(err, models.ErrPushOnly):
		return http.StatusUnprocessableEntity, "push_only"
	case errors.Is(err, models.ErrPlatform):
		return http.StatusUnprocessableEntity, "platform_error"
	default:
		return http.StatusBadGateway, "fetch_failed"
	}
}

// WriteFetchError writes err with the status errorStatus assigns it.
func WriteFetchError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	WriteErrorWithCode(w, status, err.Error(), code)
}
