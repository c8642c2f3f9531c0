package export

import "errors"

// Kind classifies export failures. Only KindConnection is fatal for a run.
type Kind string

const (
	KindConnection Kind = "connection"
	KindQuery      Kind = "query"
	KindIO         Kind = "io"
	KindEncode     Kind = "encode"
)

var (
	ErrConnection = errors.New("connection error")
	ErrQuery      = errors.New("query error")
	ErrIO         = errors.New("io error")
	ErrEncode     = errors.New("encode error")

	// ErrExportFailed is returned by Run when at least one table could
	// not be exported.
	ErrExportFailed = errors.New("table export failed")
)

type Error struct {
	Kind  Kind
	Table string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrQuery) holds for
// any query failure.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrQuery:
		return e.Kind == KindQuery
	case ErrIO:
		return e.Kind == KindIO
	case ErrEncode:
		return e.Kind == KindEncode
	}
	return false
}

func newError(kind Kind, table string, err error) *Error {
	return &Error{Kind: kind, Table: table, Err: err}
}
