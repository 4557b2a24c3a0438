//nolint:revive // exported
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/net/html/charset"

	"apiclient-backend/pkg/compress"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const TimeoutRequest = 60 * time.Second

func New() HttpClient {
	return &http.Client{
		Timeout: TimeoutRequest,
	}
}

type Query struct {
	QueryKey string
	Value    string
}

type Header struct {
	HeaderKey string
	Value     string
}

type Request struct {
	Method  string
	URL     string
	Queries []Query
	Headers []Header
	Body    []byte
}

type Response struct {
	StatusCode int      `json:"statusCode"`
	Status     string   `json:"status"`
	Body       []byte   `json:"body"`
	Headers    []Header `json:"headers"`
}

// BodyValue decodes the body for script and result consumption: valid JSON
// becomes structured data, everything else stays a string.
func (r Response) BodyValue() any {
	if json.Valid(r.Body) {
		var jsonBody any
		decoder := json.NewDecoder(bytes.NewReader(r.Body))
		decoder.UseNumber()
		if err := decoder.Decode(&jsonBody); err == nil {
			return jsonBody
		}
	}
	return string(r.Body)
}

func (r Response) HeaderMap() map[string]string {
	out := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		if _, ok := out[h.HeaderKey]; !ok {
			out[h.HeaderKey] = h.Value
		}
	}
	return out
}

func SendRequest(client HttpClient, req *Request) (*http.Response, error) {
	return SendRequestWithContext(context.Background(), client, req)
}

func SendRequestWithContext(ctx context.Context, client HttpClient, req *Request) (*http.Response, error) {
	reqRaw, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}

	qNew := ConvertQueriesToUrl(req.Queries, reqRaw.URL.Query())
	reqRaw.URL.RawQuery = qNew.Encode()
	reqRaw.Header = ConvertHeadersToHttp(req.Headers)
	return client.Do(reqRaw)
}

// SendRequestAndConvert issues the request and normalizes the raw response:
// the body is decompressed per Content-Encoding and transcoded to UTF-8 when
// the Content-Type names a charset.
func SendRequestAndConvert(ctx context.Context, client HttpClient, req *Request) (Response, error) {
	resp, err := SendRequestWithContext(ctx, client, req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	if encoding != "" {
		body, err = compress.DecompressWithContentEncodeStr(body, encoding)
		if err != nil {
			return Response{}, err
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		reader, cerr := charset.NewReader(bytes.NewReader(body), contentType)
		if cerr == nil {
			body, err = io.ReadAll(reader)
			if err != nil {
				return Response{}, err
			}
		}
	}

	return Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		Headers:    ConvertHttpHeaderToHeaders(resp.Header),
	}, nil
}

func ConvertHttpHeaderToHeaders(headers http.Header) []Header {
	result := make([]Header, 0, len(headers))
	for key, values := range headers {
		for _, value := range values {
			result = append(result, Header{
				HeaderKey: key,
				Value:     value,
			})
		}
	}
	return result
}

func ConvertHeadersToHttp(headers []Header) http.Header {
	result := make(http.Header)
	for _, header := range headers {
		result.Add(header.HeaderKey, header.Value)
	}
	return result
}

func ConvertQueriesToUrl(queries []Query, url url.Values) url.Values {
	for _, query := range queries {
		url.Add(query.QueryKey, query.Value)
	}
	return url
}
