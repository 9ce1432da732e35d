package access

import (
	"errors"
	"net/http"
)

// Kind classifies a guard rejection.
type Kind string

const (
	KindUnauthenticated       Kind = "unauthenticated"
	KindTenantNotInitialized  Kind = "tenant_not_initialized"
	KindForbiddenNoMembership Kind = "forbidden_no_membership"
	KindForbiddenWrongType    Kind = "forbidden_wrong_type"
)

// Rejection is a terminal guard outcome. It is never retried.
type Rejection struct {
	Kind    Kind
	Status  int
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Is matches rejections by kind so wrapped copies still compare equal to the sentinels.
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == r.Kind
}

// Guard rejections, one per outcome the web layer distinguishes.
var (
	ErrUnauthenticated = &Rejection{
		Kind:    KindUnauthenticated,
		Status:  http.StatusUnauthorized,
		Message: "unauthenticated",
	}
	// ErrTenantNotInitialized signals a routing/middleware misconfiguration: a tenant-only
	// route ran without a resolved tenant.
	ErrTenantNotInitialized = &Rejection{
		Kind:    KindTenantNotInitialized,
		Status:  http.StatusInternalServerError,
		Message: "tenant context not initialized",
	}
	ErrForbiddenNoMembership = &Rejection{
		Kind:    KindForbiddenNoMembership,
		Status:  http.StatusForbidden,
		Message: "forbidden: no tenant access",
	}
	ErrForbiddenWrongType = &Rejection{
		Kind:    KindForbiddenWrongType,
		Status:  http.StatusForbidden,
		Message: "forbidden: principal type not allowed",
	}
)

// ErrNoMembership is returned by membership finders when no active membership exists.
var ErrNoMembership = errors.New("no active membership")

// AsRejection unwraps err into a Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// StatusFor maps a guard error to its HTTP status; non-rejection errors are internal.
func StatusFor(err error) int {
	if rej, ok := AsRejection(err); ok {
		return rej.Status
	}
	return http.StatusInternalServerError
}
