package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a size-limited JSON body into dst. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			jsonError(w, "Request body is required", http.StatusBadRequest)
		default:
			jsonError(w, "Invalid request body", http.StatusBadRequest)
		}
		return false
	}
	return true
}

// firstError picks the message of the first failing field in order, so
// the response is stable when several fields are invalid.
func firstError(err error, order ...string) string {
	var errs validation.Errors
	if errors.As(err, &errs) {
		for _, field := range order {
			if e := errs[field]; e != nil {
				return e.Error()
			}
		}
	}
	return err.Error()
}
