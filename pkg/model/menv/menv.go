package menv

import (
	"apiclient-backend/pkg/idwrap"
)

// Environment is a named set of variable values plus a secrets overlay.
// Secrets are kept apart from plain values so callers can treat them
// differently (masking, encryption at rest); resolution-wise they are
// just another scope.
type Environment struct {
	ID         idwrap.IDWrap
	Name       string
	Values     map[string]string
	Secrets    map[string]string
	SecretKeys []string
}
