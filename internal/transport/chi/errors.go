package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/logger"
)

// ErrorCode is the machine-readable code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeQuerySyntax       ErrorCode = "query_syntax"
	CodeNotFound          ErrorCode = "not_found"
	CodeSearchUnavailable ErrorCode = "search_unavailable"
	CodeStoreUnavailable  ErrorCode = "store_unavailable"
	CodeInternalError     ErrorCode = "internal_error"
)

// Texts shown on the web pages for failed searches.
const (
	textQueryError  = "There was an error while searching, is your query correct?"
	textUnavailable = "The search server could not be reached, please try again later."
)

// ErrorResponse is the JSON body of a non-field API error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		syntaxHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, CodeSearchUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// validationHandler answers with {field: message} like a rejected form.
func validationHandler(w http.ResponseWriter, _ *http.Request, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{ve.Field: ve.Message})
	return true
}

func syntaxHandler(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrQuerySyntax) {
		return false
	}
	logger.FromContext(r.Context()).Warn("search query rejected", zap.Error(err))
	writeError(w, http.StatusBadRequest, CodeQuerySyntax, textQueryError)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("backend unavailable", zap.Error(err))
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// webErrorText maps a failed search to the text shown on the page and the status to answer with.
func webErrorText(err error) (string, int) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Field + ": " + ve.Message, http.StatusBadRequest
	case errors.Is(err, domain.ErrQuerySyntax):
		return textQueryError, http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return "Not found.", http.StatusNotFound
	default:
		return textUnavailable, http.StatusOK
	}
}
