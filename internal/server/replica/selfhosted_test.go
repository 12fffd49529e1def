package replica

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestSelfHosted_PinRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/add", r.URL.Path)
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "hello world!", string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Hash":"bafy-test-cid","Size":"12"}`))
	}))
	defer srv.Close()

	s := NewSelfHosted(srv.URL)
	res, err := s.Pin(context.Background(), strings.NewReader("hello world!"))
	require.NoError(t, err)
	require.Equal(t, "bafy-test-cid", res.CID)
	require.Equal(t, int64(12), res.Size)
}

func TestSelfHosted_PinFailurePropagatesIPFSKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("node unavailable"))
	}))
	defer srv.Close()

	s := NewSelfHosted(srv.URL)
	_, err := s.Pin(context.Background(), strings.NewReader("x"))
	require.Error(t, err)
	require.Equal(t, apperr.KindIPFS, apperr.KindOf(err))
}

func TestSelfHosted_UnpinSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v0/pin/rm", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSelfHosted(srv.URL)
	require.NoError(t, s.Unpin(context.Background(), "bafy-test-cid"))
}

func TestSelfHosted_GatewayURL(t *testing.T) {
	s := NewSelfHosted("http://localhost:5001")
	require.Equal(t, "http://localhost:5001/ipfs/bafy-test-cid", s.GatewayURL("bafy-test-cid"))
}
