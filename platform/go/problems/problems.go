package problems

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs shared by handlers and middleware.
const (
	TypeValidation     = "https://palmyra.pro/problems/validation-error"
	TypeNotFound       = "https://palmyra.pro/problems/not-found"
	TypeConflict       = "https://palmyra.pro/problems/conflict"
	TypeInternal       = "https://palmyra.pro/problems/internal-error"
	TypeUnauthorized   = "https://palmyra.pro/problems/unauthenticated"
	TypeForbidden      = "https://palmyra.pro/problems/forbidden"
	TypeTenantNotReady = "https://palmyra.pro/problems/tenant-not-initialized"
)

// ContentType is the RFC 7807 media type.
const ContentType = "application/problem+json"

// Details is the RFC 7807 problem body.
type Details struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// New builds a problem body; fieldErrors are copied.
func New(title, detail, problemType string, status int, fieldErrors map[string][]string) Details {
	problem := Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = copied
	}

	return problem
}

// Write serialises the problem with its status code.
func Write(w http.ResponseWriter, problem Details) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// RequestError marks malformed input rejected before it reaches a service.
type RequestError struct {
	Fields map[string][]string
	Err    error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// BadRequest wraps err as a RequestError; fields may be nil.
func BadRequest(err error, fields map[string][]string) error {
	return &RequestError{Fields: fields, Err: err}
}
