//nolint:revive // exported
package request

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"apiclient-backend/pkg/authproc"
	"apiclient-backend/pkg/httpclient"
	"apiclient-backend/pkg/model/mrequest"
)

const (
	HeaderContentType = "Content-Type"
	MimeOctetStream   = "application/octet-stream"
	MimeJSON          = "application/json"
	MimeXML           = "application/xml"
	MimeTextPlain     = "text/plain"
	MimeTextHTML      = "text/html"
	MimeFormURL       = "application/x-www-form-urlencoded"
)

// Prepare assembles the transport request from an already variable-resolved
// request and the auth contribution. Auth headers win over request headers
// on name collision; auth query params are appended to the URL.
func Prepare(req mrequest.Request, auth authproc.Result) (*httpclient.Request, error) {
	clientHeaders := make([]httpclient.Header, 0, len(req.Headers)+len(auth.Headers))
	for _, h := range req.Headers {
		if !h.Enabled {
			continue
		}
		if _, shadowed := auth.Headers[h.Key]; shadowed {
			continue
		}
		clientHeaders = append(clientHeaders, httpclient.Header{HeaderKey: h.Key, Value: h.Value})
	}
	for key, value := range auth.Headers {
		clientHeaders = append(clientHeaders, httpclient.Header{HeaderKey: key, Value: value})
	}

	queries := make([]httpclient.Query, 0, len(auth.QueryParams))
	for key, value := range auth.QueryParams {
		queries = append(queries, httpclient.Query{QueryKey: key, Value: value})
	}

	body, bodyHeaders, err := buildBody(req.Body, clientHeaders)
	if err != nil {
		return nil, err
	}
	clientHeaders = append(clientHeaders, bodyHeaders...)

	return &httpclient.Request{
		Method:  req.Method,
		URL:     req.URL,
		Queries: queries,
		Headers: clientHeaders,
		Body:    body,
	}, nil
}

// buildBody renders the request body and returns any headers the encoding
// itself demands, like the multipart boundary.
func buildBody(body mrequest.Body, existing []httpclient.Header) ([]byte, []httpclient.Header, error) {
	switch body.Kind {
	case mrequest.BodyKindNone:
		return nil, nil, nil

	case mrequest.BodyKindRaw:
		data := []byte(body.Raw)
		if hasContentTypeHeader(existing) {
			return data, nil, nil
		}
		detected := detectContentType(data)
		if detected == "" {
			return data, nil, nil
		}
		return data, []httpclient.Header{{HeaderKey: HeaderContentType, Value: detected}}, nil

	case mrequest.BodyKindFormData:
		return buildMultipart(body.Forms)

	case mrequest.BodyKindUrlencoded:
		values := url.Values{}
		for _, field := range body.UrlEncoded {
			if field.Enabled {
				values.Add(field.Key, field.Value)
			}
		}
		headers := []httpclient.Header{{HeaderKey: HeaderContentType, Value: MimeFormURL}}
		return []byte(values.Encode()), headers, nil

	default:
		return nil, nil, fmt.Errorf("request: unknown body kind %d", body.Kind)
	}
}

func buildMultipart(fields []mrequest.BodyField) ([]byte, []httpclient.Header, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	headers := []httpclient.Header{{HeaderKey: HeaderContentType, Value: writer.FormDataContentType()}}

	for _, field := range fields {
		if !field.Enabled {
			continue
		}
		if field.IsFile {
			if err := writeFilePart(writer, field.Key, field.Value); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err := writer.WriteField(field.Key, field.Value); err != nil {
			return nil, nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("request: failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), headers, nil
}

// writeFilePart streams a file field. The field value is the file path; the
// part filename is its base name and the part content type follows the
// extension.
func writeFilePart(writer *multipart.Writer, key, path string) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("request: failed to read file %s: %w", path, err)
	}
	fileName := filepath.Base(path)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(key), escapeQuotes(fileName)))
	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		mimeType = MimeOctetStream
	}
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("request: failed to create form part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("request: failed to write file content: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", "\"", "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// detectContentType sniffs a raw body when no Content-Type header is set.
// Returns empty string when nothing sensible can be claimed.
func detectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	trimmed := bytes.TrimLeft(data, " \t\n\r")
	if len(trimmed) == 0 {
		return MimeTextPlain
	}

	firstChar := trimmed[0]
	if firstChar == '{' || firstChar == '[' {
		if json.Valid(data) {
			return MimeJSON
		}
	}
	if firstChar == '<' {
		lower := strings.ToLower(string(trimmed))
		if strings.HasPrefix(lower, "<?xml") {
			return MimeXML
		}
		if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
			return MimeTextHTML
		}
		if len(trimmed) > 1 && ((trimmed[1] >= 'a' && trimmed[1] <= 'z') || (trimmed[1] >= 'A' && trimmed[1] <= 'Z') || trimmed[1] == '!' || trimmed[1] == '?') {
			return MimeXML
		}
	}

	if utf8.Valid(data) {
		return MimeTextPlain
	}
	return MimeOctetStream
}

func hasContentTypeHeader(headers []httpclient.Header) bool {
	for _, h := range headers {
		if strings.EqualFold(h.HeaderKey, HeaderContentType) {
			return true
		}
	}
	return false
}
