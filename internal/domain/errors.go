package domain

import "errors"

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidDataAccess
	KindRequestNotExists
	KindNoRequestFound
	KindServiceAlreadyProvided
	KindReportNotFound
)

// Error is a business rule failure. Msg is surfaced to the caller as-is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "domain error"
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized           = &Error{Kind: KindUnauthorized, Msg: "UNAUTHORIZED_ACCESS"}
	ErrInvalidDataAccess      = &Error{Kind: KindInvalidDataAccess, Msg: "INVALID DATA ACCESS"}
	ErrRequestNotExists       = &Error{Kind: KindRequestNotExists, Msg: "ITEM REQUESTED IS INVALID"}
	ErrNoRequestFound         = &Error{Kind: KindNoRequestFound, Msg: "No request with the mentioned request id found"}
	ErrServiceAlreadyProvided = &Error{Kind: KindServiceAlreadyProvided, Msg: "Service already provided for the mentioned request id"}
	ErrReportNotFound         = &Error{Kind: KindReportNotFound, Msg: "NO REPORT FOUND"}
)

func Unauthorized(msg string) error      { return &Error{Kind: KindUnauthorized, Msg: msg} }
func InvalidDataAccess(msg string) error { return &Error{Kind: KindInvalidDataAccess, Msg: msg} }
func RequestNotExists(msg string) error  { return &Error{Kind: KindRequestNotExists, Msg: msg} }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
