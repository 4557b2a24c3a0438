package mexecution

import (
	"apiclient-backend/pkg/idwrap"
)

type BodyKind int8

const (
	BodyKindText   BodyKind = 0
	BodyKindJSON   BodyKind = 1
	BodyKindBinary BodyKind = 2
)

// RequestExecution is the normalized record of one execute() call. It is
// created once per call, immutable after return, and held by the caller for
// display and history.
type RequestExecution struct {
	ID idwrap.IDWrap
	// Timestamp is the call start in Unix milliseconds; Duration is the
	// elapsed transfer time in milliseconds.
	Timestamp  int64
	Duration   int64
	Status     int
	StatusText string
	Headers    map[string]string

	BodyKind BodyKind
	// Body holds the classified body: parsed JSON (any), plain text (string)
	// or a base64 string for binary payloads, mirroring BodyKind.
	Body any
	Size int64

	Error       string
	IsCorsError bool
}

func (e *RequestExecution) Failed() bool {
	return e.Error != ""
}
