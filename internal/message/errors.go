package message

import "fmt"

// ErrorKind classifies failures recorded while opening or reading a message.
type ErrorKind int

const (
	KindMalformedURL ErrorKind = iota + 1
	KindConnection
	KindIO
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedURL:
		return "malformed_url"
	case KindConnection:
		return "connection"
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the error type recorded by Message. Use errors.As to get the kind.
type Error struct {
	Kind ErrorKind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s error", e.Op, e.URL, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
