// Package response turns a raw transport response into the execution record
// the result surface consumes.
package response

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"apiclient-backend/pkg/httpclient"
	"apiclient-backend/pkg/idwrap"
	"apiclient-backend/pkg/model/mexecution"
)

// Normalize builds the execution record for a completed transfer. The body
// is decoded by shape: parseable JSON becomes structured data, textual
// bodies become strings, anything else is carried base64-encoded.
func Normalize(resp httpclient.Response, startedAt time.Time, duration time.Duration) mexecution.RequestExecution {
	bodyKind, body := decodeBody(resp)

	return mexecution.RequestExecution{
		ID:         idwrap.NewNow(),
		Timestamp:  startedAt.UnixMilli(),
		Duration:   duration.Milliseconds(),
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    resp.HeaderMap(),
		BodyKind:   bodyKind,
		Body:       body,
		Size:       int64(len(resp.Body)),
	}
}

// Failure builds the record for a transfer that never produced a response.
func Failure(message string, isCors bool, startedAt time.Time, duration time.Duration) mexecution.RequestExecution {
	return mexecution.RequestExecution{
		ID:          idwrap.NewNow(),
		Timestamp:   startedAt.UnixMilli(),
		Duration:    duration.Milliseconds(),
		Error:       message,
		IsCorsError: isCors,
	}
}

func decodeBody(resp httpclient.Response) (mexecution.BodyKind, any) {
	if len(resp.Body) == 0 {
		return mexecution.BodyKindText, ""
	}

	contentType := strings.ToLower(resp.HeaderMap()["Content-Type"])
	jsonDeclared := strings.Contains(contentType, "json")
	if jsonDeclared || looksLikeJSON(resp.Body) {
		if json.Valid(resp.Body) {
			var decoded any
			if err := json.Unmarshal(resp.Body, &decoded); err == nil {
				return mexecution.BodyKindJSON, decoded
			}
		}
	}

	// Only declared-text, declared-json (unparseable, kept verbatim) and
	// untyped bodies render as text. Any other content type is carried
	// base64-encoded even when the bytes happen to be valid UTF-8.
	if strings.HasPrefix(contentType, "text/") || jsonDeclared ||
		(contentType == "" && utf8.Valid(resp.Body)) {
		return mexecution.BodyKindText, string(resp.Body)
	}

	return mexecution.BodyKindBinary, base64.StdEncoding.EncodeToString(resp.Body)
}

func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimLeft(string(body), " \t\n\r")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func statusText(resp httpclient.Response) string {
	// resp.Status is "200 OK"; strip the leading code.
	if i := strings.IndexByte(resp.Status, ' '); i >= 0 {
		return resp.Status[i+1:]
	}
	return http.StatusText(resp.StatusCode)
}
