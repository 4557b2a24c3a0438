package errmap_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiclient-backend/pkg/errmap"
)

func codeOf(t *testing.T, err error) errmap.Code {
	t.Helper()
	var me *errmap.Error
	require.ErrorAs(t, err, &me)
	return me.Code
}

func TestMapNil(t *testing.T) {
	assert.Nil(t, errmap.Map(nil))
}

func TestMapContextErrors(t *testing.T) {
	assert.Equal(t, errmap.CodeCanceled, codeOf(t, errmap.Map(context.Canceled)))
	assert.Equal(t, errmap.CodeTimeout, codeOf(t, errmap.Map(context.DeadlineExceeded)))
}

func TestMapDNSError(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "http://nope.invalid", Err: &net.DNSError{
		Err: "no such host", Name: "nope.invalid",
	}}
	mapped := errmap.Map(err)
	assert.Equal(t, errmap.CodeDNSError, codeOf(t, mapped))
	assert.Contains(t, mapped.Error(), "nope.invalid")
}

func TestMapConnectionRefused(t *testing.T) {
	err := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	assert.Equal(t, errmap.CodeConnectionRefused, codeOf(t, errmap.Map(err)))
}

func TestMapUnsupportedScheme(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "htps://x", Err: errors.New(`unsupported protocol scheme "htps"`)}
	assert.Equal(t, errmap.CodeUnsupportedScheme, codeOf(t, errmap.Map(err)))
}

func TestMapAlreadyMapped(t *testing.T) {
	orig := errmap.New(errmap.CodeTimeout, "slow", nil)
	assert.Equal(t, error(orig), errmap.Map(orig))
}

func TestCorsClassification(t *testing.T) {
	mapped := errmap.Map(errors.New("Failed to fetch"))
	assert.Equal(t, errmap.CodeCORSSuspected, codeOf(t, mapped))
	assert.True(t, errmap.IsCorsError(mapped))

	// Only the exact browser message classifies; anything else is a real
	// network failure.
	assert.False(t, errmap.IsCorsError(errmap.Map(errors.New("failed to fetch something"))))
	assert.False(t, errmap.IsCorsError(nil))
}

func TestMapRequestErrorAddsContext(t *testing.T) {
	err := errmap.MapRequestError("GET", "https://api.example.com/users", context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "GET https://api.example.com/users")

	var me *errmap.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errmap.CodeTimeout, me.Code)
	assert.True(t, me.Retryable)
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	mapped := errmap.Map(cause)
	assert.ErrorIs(t, mapped, cause)
}

func TestToJSON(t *testing.T) {
	err := errmap.New(errmap.CodeTimeout, "request timed out", nil)
	assert.JSONEq(t, `{"code":"timeout","message":"request timed out"}`, errmap.ToJSON(err))

	assert.JSONEq(t, `{"code":"unknown","message":"plain"}`, errmap.ToJSON(errors.New("plain")))
}

func TestFriendly(t *testing.T) {
	err := errmap.MapRequestError("GET", "https://api.example.com", errors.New("Failed to fetch"))
	msg := errmap.Friendly(err)
	assert.Contains(t, msg, "CORS")
	assert.Contains(t, msg, "GET https://api.example.com")
}
