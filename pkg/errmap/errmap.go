// Package errmap classifies transport failures into stable codes and
// user-facing messages.
package errmap

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
)

// Code classifies high-level error categories for user-facing messages.
type Code string

const (
	CodeCanceled            Code = "canceled"
	CodeTimeout             Code = "timeout"
	CodeDNSError            Code = "dns_error"
	CodeInvalidURL          Code = "invalid_url"
	CodeUnsupportedScheme   Code = "unsupported_scheme"
	CodeConnectionRefused   Code = "connection_refused"
	CodeConnectionReset     Code = "connection_reset"
	CodeNetworkUnreachable  Code = "network_unreachable"
	CodeTLSUnknownAuthority Code = "tls_unknown_authority"
	CodeTLSHostnameMismatch Code = "tls_hostname_mismatch"
	CodeTLSHandshake        Code = "tls_handshake"
	CodeCORSSuspected       Code = "cors_suspected"
	CodeIO                  Code = "io_error"
	CodeUnexpected          Code = "unexpected"
)

// corsFetchMessage is the exact, information-free message a browser fetch
// rejects with when a cross-origin response is blocked. Nothing else
// produces it, so an exact match is the classification.
const corsFetchMessage = "Failed to fetch"

// Error carries a code and request context while preserving the original
// cause via Unwrap.
type Error struct {
	Code      Code
	Message   string
	Method    string
	URL       string
	Temporary bool
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = humanize(e.Code, e.cause)
	}
	if e.Method != "" && e.URL != "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, msg)
	}
	if e.URL != "" {
		return fmt.Sprintf("%s: %s", e.URL, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

func humanize(code Code, cause error) string {
	switch code {
	case CodeCanceled:
		return "request was canceled"
	case CodeTimeout:
		return "request timed out"
	case CodeDNSError:
		var dn *net.DNSError
		if errors.As(cause, &dn) {
			if dn.Name != "" {
				return fmt.Sprintf("DNS lookup failed for %q: %s", dn.Name, dn.Err)
			}
			return fmt.Sprintf("DNS error: %s", dn.Err)
		}
		return "DNS error"
	case CodeInvalidURL:
		return "invalid URL"
	case CodeUnsupportedScheme:
		return "unsupported protocol scheme"
	case CodeConnectionRefused:
		return "connection refused by remote host"
	case CodeConnectionReset:
		return "connection reset by peer"
	case CodeNetworkUnreachable:
		return "network unreachable"
	case CodeTLSUnknownAuthority:
		return "TLS: unknown certificate authority"
	case CodeTLSHostnameMismatch:
		return "TLS: certificate does not match host"
	case CodeTLSHandshake:
		return "TLS handshake failed"
	case CodeCORSSuspected:
		return corsFetchMessage
	case CodeIO:
		return "I/O error"
	default:
		if cause != nil {
			return cause.Error()
		}
		return "unexpected error"
	}
}

// Map converts an arbitrary error into an *Error with a best-effort code.
// It keeps the original error as the cause.
func Map(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if err.Error() == corsFetchMessage {
		return &Error{Code: CodeCORSSuspected, Message: corsFetchMessage, cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeCanceled, Retryable: true, cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Retryable: true, cause: err}
	}

	// url.Error often wraps timeouts, invalid URLs, etc.
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		var t net.Error
		if errors.As(uerr.Err, &t) && t.Timeout() {
			return &Error{Code: CodeTimeout, Temporary: t.Temporary(), Retryable: true, cause: err}
		}
		lower := strings.ToLower(uerr.Error())
		if strings.Contains(lower, "unsupported protocol scheme") {
			return &Error{Code: CodeUnsupportedScheme, cause: err}
		}
		if isInvalidURLMessage(lower) {
			return &Error{Code: CodeInvalidURL, cause: err}
		}
		err = uerr.Err
	}

	var dnserr *net.DNSError
	if errors.As(err, &dnserr) {
		return &Error{Code: CodeDNSError, Temporary: dnserr.IsTemporary, Retryable: dnserr.IsTemporary, cause: dnserr}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Error{Code: CodeTimeout, Temporary: nerr.Temporary(), Retryable: true, cause: nerr}
	}

	var operr *net.OpError
	if errors.As(err, &operr) {
		switch {
		case errors.Is(operr.Err, syscall.ECONNREFUSED):
			return &Error{Code: CodeConnectionRefused, Retryable: true, cause: err}
		case errors.Is(operr.Err, syscall.ECONNRESET):
			return &Error{Code: CodeConnectionReset, Temporary: true, Retryable: true, cause: err}
		case errors.Is(operr.Err, syscall.ENETUNREACH), errors.Is(operr.Err, syscall.EHOSTUNREACH):
			return &Error{Code: CodeNetworkUnreachable, Temporary: true, Retryable: true, cause: err}
		}
	}

	var ua x509.UnknownAuthorityError
	if errors.As(err, &ua) {
		return &Error{Code: CodeTLSUnknownAuthority, cause: err}
	}
	var hn x509.HostnameError
	if errors.As(err, &hn) {
		return &Error{Code: CodeTLSHostnameMismatch, cause: err}
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "handshake failure") || strings.Contains(lower, "tls") {
		return &Error{Code: CodeTLSHandshake, cause: err}
	}

	switch {
	case strings.Contains(lower, "timeout"):
		return &Error{Code: CodeTimeout, cause: err}
	case strings.Contains(lower, "unsupported protocol scheme"):
		return &Error{Code: CodeUnsupportedScheme, cause: err}
	case strings.Contains(lower, "refused"):
		return &Error{Code: CodeConnectionRefused, cause: err}
	case strings.Contains(lower, "reset"):
		return &Error{Code: CodeConnectionReset, cause: err}
	}

	return &Error{Code: CodeUnexpected, cause: err}
}

func isInvalidURLMessage(message string) bool {
	return strings.Contains(message, "invalid url") ||
		strings.Contains(message, "invalid uri") ||
		strings.Contains(message, "malformed url") ||
		strings.Contains(message, "missing protocol scheme")
}

// New constructs an Error with the supplied code, message, and cause.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// MapRequestError annotates the mapped error with request context.
func MapRequestError(method, urlStr string, err error) error {
	if err == nil {
		return nil
	}
	m := Map(err)
	var me *Error
	if errors.As(m, &me) {
		me.Method = method
		me.URL = urlStr
		return me
	}
	return m
}

// IsCorsError reports whether the error classifies as a blocked cross-origin
// request rather than a real network failure.
func IsCorsError(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == CodeCORSSuspected
	}
	return err != nil && err.Error() == corsFetchMessage
}

// ToJSON marshals an error into {"code":"...","message":"..."}.
// If err is not an *Error, code defaults to "unknown".
func ToJSON(err error) string {
	payload := struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{Code: "unknown"}

	if err != nil {
		payload.Message = err.Error()
		var me *Error
		if errors.As(err, &me) {
			payload.Code = string(me.Code)
		}
	}
	out, merr := json.Marshal(payload)
	if merr != nil {
		return `{"code":"unknown","message":""}`
	}
	return string(out)
}

// Friendly returns a user-facing, action-oriented message string.
func Friendly(err error) string {
	if err == nil {
		return ""
	}
	var me *Error
	if !errors.As(err, &me) {
		return err.Error()
	}

	ctx := ""
	if me.Method != "" && me.URL != "" {
		ctx = fmt.Sprintf(" (%s %s)", me.Method, me.URL)
	} else if me.URL != "" {
		ctx = fmt.Sprintf(" (%s)", me.URL)
	}

	switch me.Code {
	case CodeUnsupportedScheme:
		scheme := ""
		if u, perr := neturl.Parse(me.URL); perr == nil {
			scheme = u.Scheme
		}
		if scheme == "" {
			scheme = "<none>"
		}
		return fmt.Sprintf("Unsupported URL scheme '%s'%s.", scheme, ctx)
	case CodeInvalidURL:
		return fmt.Sprintf("The URL is invalid%s.", ctx)
	case CodeTimeout:
		return fmt.Sprintf("Request timed out%s.", ctx)
	case CodeCanceled:
		return "Request was canceled."
	case CodeDNSError:
		host := ""
		if u, perr := neturl.Parse(me.URL); perr == nil {
			host = u.Hostname()
		}
		if host != "" {
			return fmt.Sprintf("Could not resolve host '%s'%s.", host, ctx)
		}
		return fmt.Sprintf("Could not resolve hostname%s.", ctx)
	case CodeConnectionRefused:
		return fmt.Sprintf("Could not connect, connection refused%s.", ctx)
	case CodeConnectionReset:
		return fmt.Sprintf("Connection reset by peer%s.", ctx)
	case CodeNetworkUnreachable:
		return fmt.Sprintf("Network unreachable%s.", ctx)
	case CodeTLSUnknownAuthority:
		return fmt.Sprintf("TLS certificate is not trusted by your system%s.", ctx)
	case CodeTLSHostnameMismatch:
		return fmt.Sprintf("TLS certificate does not match the requested host%s.", ctx)
	case CodeTLSHandshake:
		return fmt.Sprintf("TLS handshake failed%s.", ctx)
	case CodeCORSSuspected:
		return fmt.Sprintf("The request was blocked, likely by CORS%s. Routing it through the local proxy may help.", ctx)
	case CodeIO:
		return fmt.Sprintf("I/O error%s.", ctx)
	default:
		if s := me.Error(); s != "" {
			return s
		}
		return "Unexpected error."
	}
}
