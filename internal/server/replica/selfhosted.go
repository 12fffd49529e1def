package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/evidencevault/vault/internal/apperr"
)

// SelfHosted talks to a local Kubo (go-ipfs) node's RPC API. No dedicated
// Kubo SDK exists among this repository's dependencies, so this is a
// thin net/http + mime/multipart client, exactly the shape a caller would
// write by hand against that HTTP API.
type SelfHosted struct {
	apiURL string
	client *http.Client
}

func NewSelfHosted(apiURL string) *SelfHosted {
	return &SelfHosted{apiURL: apiURL, client: &http.Client{}}
}

type kuboAddResponse struct {
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

func (s *SelfHosted) Pin(ctx context.Context, r io.Reader) (PinResult, error) {
	// Stream the multipart body through a pipe instead of buffering the
	// whole object: the writer goroutine feeds the request body while
	// http.Client reads it, so memory use stays bounded by one copy
	// buffer regardless of object size.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", "object")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	endpoint := s.apiURL + "/api/v0/add?pin=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "building pin request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "calling ipfs node")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return PinResult{}, apperr.Newf(apperr.KindIPFS, "ipfs add failed: %s: %s", resp.Status, string(b))
	}

	var out kuboAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "decoding ipfs add response")
	}

	var size int64
	fmt.Sscanf(out.Size, "%d", &size)
	return PinResult{CID: out.Hash, Size: size}, nil
}

func (s *SelfHosted) Unpin(ctx context.Context, cidStr string) error {
	endpoint := s.apiURL + "/api/v0/pin/rm?arg=" + url.QueryEscape(cidStr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindIPFS, err, "building unpin request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindIPFS, err, "calling ipfs node")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return apperr.Newf(apperr.KindIPFS, "ipfs pin/rm failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

func (s *SelfHosted) GatewayURL(cidStr string) string {
	return s.apiURL + "/ipfs/" + cidStr
}
