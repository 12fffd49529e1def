package replica

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/evidencevault/vault/internal/apperr"
)

// ThirdParty talks to a generic bearer-token remote pinning service (the
// kind that fronts a managed IPFS cluster). Like SelfHosted, no SDK for
// this exists among the dependencies, so it is a thin net/http client.
type ThirdParty struct {
	baseURL string
	apiKey  string
	gateway string
	client  *http.Client
}

func NewThirdParty(baseURL, apiKey, gatewayBaseURL string) *ThirdParty {
	return &ThirdParty{baseURL: baseURL, apiKey: apiKey, gateway: gatewayBaseURL, client: &http.Client{}}
}

type pinServiceResponse struct {
	CID  string `json:"cid"`
	Size int64  `json:"size"`
}

func (t *ThirdParty) Pin(ctx context.Context, r io.Reader) (PinResult, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/pins", pr)
	if err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "building pin request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "calling pinning service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return PinResult{}, apperr.Newf(apperr.KindIPFS, "pinning service rejected object: %s: %s", resp.Status, string(b))
	}

	var out pinServiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PinResult{}, apperr.Wrap(apperr.KindIPFS, err, "decoding pinning service response")
	}
	return PinResult{CID: out.CID, Size: out.Size}, nil
}

func (t *ThirdParty) Unpin(ctx context.Context, cidStr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.baseURL+"/pins/"+cidStr, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindIPFS, err, "building unpin request")
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindIPFS, err, "calling pinning service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(resp.Body)
		return apperr.Newf(apperr.KindIPFS, "pinning service unpin failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

func (t *ThirdParty) GatewayURL(cidStr string) string {
	return t.gateway + "/ipfs/" + cidStr
}
