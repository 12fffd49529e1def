package digestx

import (
	"errors"
	"strings"
	"testing"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestHashBuffer_HelloWorld(t *testing.T) {
	res := HashBuffer([]byte("hello world!"))
	require.Equal(t, "7509e5bda0c762d2bac7f90d758b5b2263fa01ccbc542ab5e3df163be08e6ca9", res.Digest)
	require.Equal(t, int64(12), res.SizeBytes)
}

func TestHashStream_MatchesHashBuffer(t *testing.T) {
	payload := []byte("content-addressed evidence")
	want := HashBuffer(payload)

	got, err := HashStream(strings.NewReader(string(payload)))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestHashStream_IOErrorIsStorageKind(t *testing.T) {
	_, err := HashStream(errReader{})
	require.Error(t, err)
	require.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestIsValidDigest(t *testing.T) {
	require.True(t, IsValidDigest(strings.Repeat("a", 64)))
	require.False(t, IsValidDigest(strings.Repeat("A", 64)))
	require.False(t, IsValidDigest(strings.Repeat("a", 63)))
	require.False(t, IsValidDigest("zz"+strings.Repeat("a", 62)))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, strings.Repeat("a", 64), Normalize("0x"+strings.Repeat("A", 64)))
	require.Equal(t, strings.Repeat("b", 64), Normalize("0X"+strings.Repeat("B", 64)))
}
