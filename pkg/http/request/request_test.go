package request_test

import (
	"bytes"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiclient-backend/pkg/authproc"
	"apiclient-backend/pkg/http/request"
	"apiclient-backend/pkg/httpclient"
	"apiclient-backend/pkg/model/mrequest"
)

func emptyAuth() authproc.Result {
	return authproc.Result{Headers: map[string]string{}, QueryParams: map[string]string{}}
}

func headerValue(headers []httpclient.Header, key string) (string, bool) {
	for _, h := range headers {
		if h.HeaderKey == key {
			return h.Value, true
		}
	}
	return "", false
}

func TestAuthHeadersWinOverRequestHeaders(t *testing.T) {
	req := mrequest.Request{
		Method: "GET",
		URL:    "https://api.example.com",
		Headers: []mrequest.Header{
			{Key: "Authorization", Value: "stale", Enabled: true},
			{Key: "X-Keep", Value: "yes", Enabled: true},
			{Key: "X-Disabled", Value: "no", Enabled: false},
		},
	}
	auth := emptyAuth()
	auth.Headers["Authorization"] = "Bearer fresh"

	prepared, err := request.Prepare(req, auth)
	require.NoError(t, err)

	got, _ := headerValue(prepared.Headers, "Authorization")
	assert.Equal(t, "Bearer fresh", got)
	_, kept := headerValue(prepared.Headers, "X-Keep")
	assert.True(t, kept)
	_, disabled := headerValue(prepared.Headers, "X-Disabled")
	assert.False(t, disabled)
}

func TestAuthQueryParamsAppended(t *testing.T) {
	auth := emptyAuth()
	auth.QueryParams["api_key"] = "k1"

	prepared, err := request.Prepare(mrequest.Request{Method: "GET", URL: "https://x"}, auth)
	require.NoError(t, err)
	require.Len(t, prepared.Queries, 1)
	assert.Equal(t, httpclient.Query{QueryKey: "api_key", Value: "k1"}, prepared.Queries[0])
}

func TestRawBodyContentTypeSniffing(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"a": 1}`, request.MimeJSON},
		{`<?xml version="1.0"?><a/>`, request.MimeXML},
		{`<!DOCTYPE html><html></html>`, request.MimeTextHTML},
		{`hello world`, request.MimeTextPlain},
	}
	for _, tc := range cases {
		req := mrequest.Request{
			Method: "POST",
			URL:    "https://x",
			Body:   mrequest.Body{Kind: mrequest.BodyKindRaw, Raw: tc.raw},
		}
		prepared, err := request.Prepare(req, emptyAuth())
		require.NoError(t, err)
		got, _ := headerValue(prepared.Headers, request.HeaderContentType)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestRawBodyExplicitContentTypeRespected(t *testing.T) {
	req := mrequest.Request{
		Method:  "POST",
		URL:     "https://x",
		Headers: []mrequest.Header{{Key: "Content-Type", Value: "text/csv", Enabled: true}},
		Body:    mrequest.Body{Kind: mrequest.BodyKindRaw, Raw: `{"still": "json"}`},
	}
	prepared, err := request.Prepare(req, emptyAuth())
	require.NoError(t, err)

	count := 0
	for _, h := range prepared.Headers {
		if h.HeaderKey == request.HeaderContentType {
			count++
			assert.Equal(t, "text/csv", h.Value)
		}
	}
	assert.Equal(t, 1, count)
}

func TestUrlencodedBody(t *testing.T) {
	req := mrequest.Request{
		Method: "POST",
		URL:    "https://x",
		Body: mrequest.Body{
			Kind: mrequest.BodyKindUrlencoded,
			UrlEncoded: []mrequest.BodyField{
				{Key: "a", Value: "1", Enabled: true},
				{Key: "b", Value: "two words", Enabled: true},
				{Key: "off", Value: "x", Enabled: false},
			},
		},
	}
	prepared, err := request.Prepare(req, emptyAuth())
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=two+words", string(prepared.Body))
	got, _ := headerValue(prepared.Headers, request.HeaderContentType)
	assert.Equal(t, request.MimeFormURL, got)
}

func TestMultipartFormWithFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "upload.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("file content"), 0o600))

	req := mrequest.Request{
		Method: "POST",
		URL:    "https://x",
		Body: mrequest.Body{
			Kind: mrequest.BodyKindFormData,
			Forms: []mrequest.BodyField{
				{Key: "name", Value: "alice", Enabled: true},
				{Key: "doc", Value: filePath, Enabled: true, IsFile: true},
			},
		},
	}
	prepared, err := request.Prepare(req, emptyAuth())
	require.NoError(t, err)

	contentType, ok := headerValue(prepared.Headers, request.HeaderContentType)
	require.True(t, ok)
	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(prepared.Body), params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, form.Value["name"])
	require.Len(t, form.File["doc"], 1)
	assert.Equal(t, "upload.txt", form.File["doc"][0].Filename)
}

func TestMissingFileFails(t *testing.T) {
	req := mrequest.Request{
		Method: "POST",
		URL:    "https://x",
		Body: mrequest.Body{
			Kind:  mrequest.BodyKindFormData,
			Forms: []mrequest.BodyField{{Key: "doc", Value: "/no/such/file", Enabled: true, IsFile: true}},
		},
	}
	_, err := request.Prepare(req, emptyAuth())
	assert.Error(t, err)
}
