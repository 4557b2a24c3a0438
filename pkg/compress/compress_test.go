package compress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiclient-backend/pkg/compress"
)

func TestRoundTrip(t *testing.T) {
	data := []byte(`{"message": "the quick brown fox jumps over the lazy dog"}`)
	types := []compress.CompressType{
		compress.CompressTypeGzip,
		compress.CompressTypeZstd,
		compress.CompressTypeBr,
	}
	for _, ct := range types {
		packed, err := compress.Compress(data, ct)
		require.NoError(t, err)
		unpacked, err := compress.Decompress(packed, ct)
		require.NoError(t, err)
		assert.Equal(t, data, unpacked)
	}
}

func TestIdentityPassthrough(t *testing.T) {
	data := []byte("plain")
	out, err := compress.DecompressWithContentEncodeStr(data, "identity")
	require.NoError(t, err)
	assert.Equal(t, data, out)

	out, err = compress.DecompressWithContentEncodeStr(data, "")
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestContentEncodingHeader(t *testing.T) {
	data := []byte("hello world")
	packed, err := compress.Compress(data, compress.CompressTypeGzip)
	require.NoError(t, err)

	out, err := compress.DecompressWithContentEncodeStr(packed, "gzip")
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestUnknownEncodingRejected(t *testing.T) {
	_, err := compress.DecompressWithContentEncodeStr([]byte("x"), "snappy")
	assert.Error(t, err)
}

func TestCorruptGzipRejected(t *testing.T) {
	_, err := compress.Decompress([]byte("definitely not gzip"), compress.CompressTypeGzip)
	assert.Error(t, err)
}
