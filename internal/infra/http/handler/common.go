package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/validator"
)

// maxDecodeBytes caps request bodies at the decoder level. The global
// body limit middleware enforces the same bound earlier; this keeps
// handlers safe when invoked outside the full chain (tests, subrouters).
const maxDecodeBytes = 1 << 20

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an error to its API representation and writes it,
// tagging the response with the request ID.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.FromError(err)
	apiErr.WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

// decodeJSON decodes the request body into dst, rejecting unknown
// fields and oversized payloads.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxDecodeBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierror.New(http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body too large")
		}
		return apierror.BadRequest("Invalid JSON body")
	}
	return nil
}

// decodeAndValidate decodes the request body and runs struct validation.
func decodeAndValidate(r *http.Request, v *validator.Validator, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if err := v.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apierror.ValidationFailed("Validation failed", verrs)
		}
		return apierror.BadRequest(err.Error())
	}
	return nil
}

// parseQueryInt parses a query parameter as an integer, returning
// defaultVal when absent or malformed.
func parseQueryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
