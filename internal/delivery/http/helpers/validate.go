package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 64 << 10

// Validator is implemented by request bodies with field rules. An empty result means valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate reads exactly one JSON object into dest, rejecting unknown
// fields and trailing data, then runs dest.Validate when available. On failure
// it writes the error response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dest)
	if err == nil && dec.More() {
		err = errors.New("body must contain a single JSON object")
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		WriteJSONError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
		return false
	case errors.Is(err, io.EOF):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "request body is required")
		return false
	case err != nil:
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON: "+err.Error())
		return false
	}

	if v, ok := dest.(Validator); ok {
		if problems := v.Validate(); len(problems) > 0 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(problems, "; "))
			return false
		}
	}
	return true
}
