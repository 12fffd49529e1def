// Package adminclient is the thin HTTP client backing cmd/admincli: it
// signs requests the way a trusted application would and exercises
// init/complete/admin against a running vault server, for manual
// smoke-testing (SPEC_FULL.md §4.17). No business logic lives here.
package adminclient

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evidencevault/vault/internal/adminclient/config"
	"github.com/evidencevault/vault/internal/netx"
)

// Client issues HMAC-signed requests against a vault server's HTTP API.
type Client struct {
	cfg *config.Config
	hc  *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{cfg: cfg, hc: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.AppSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(method, path string, body []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequest(method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-app-key", c.cfg.AppKey)
	req.Header.Set("x-app-sig", c.sign(body))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

// InitResult mirrors the server's init response.
type InitResult struct {
	UploadID  string `json:"uploadId"`
	Token     string `json:"token"`
	PutURL    string `json:"putUrl"`
	BucketKey string `json:"bucketKey"`
	ExpiresAt string `json:"expiresAt"`
}

// CompleteResult mirrors the server's complete response.
type CompleteResult struct {
	ArtifactID  string  `json:"artifactId"`
	Sha256Hex   string  `json:"sha256Hex"`
	SizeBytes   int64   `json:"sizeBytes"`
	Mime        string  `json:"mime"`
	BucketKey   string  `json:"bucketKey"`
	CidV1       *string `json:"cidV1,omitempty"`
	DownloadURL string  `json:"downloadUrl"`
}

// Upload runs the full two-phase protocol for a byte payload: init,
// direct PUT to the presigned URL, then complete.
func (c *Client) Upload(filename, mimeHint, declaredDigest string, data []byte) (*CompleteResult, error) {
	initReq := map[string]any{
		"filename":  filename,
		"sizeBytes": len(data),
	}
	if mimeHint != "" {
		initReq["mimeHint"] = mimeHint
	}
	if declaredDigest != "" {
		initReq["declaredSha256"] = declaredDigest
	}
	body, err := json.Marshal(initReq)
	if err != nil {
		return nil, err
	}

	resp, respBody, err := c.do(http.MethodPost, "/v1/upload/init", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("init failed: %s: %s", resp.Status, string(respBody))
	}
	var initOut InitResult
	if err := json.Unmarshal(respBody, &initOut); err != nil {
		return nil, err
	}

	if err := netx.UploadToS3PresignedURL(initOut.PutURL, data); err != nil {
		return nil, fmt.Errorf("direct upload failed: %w", err)
	}

	completeReq, err := json.Marshal(map[string]any{"uploadId": initOut.UploadID, "token": initOut.Token})
	if err != nil {
		return nil, err
	}
	resp, respBody, err = c.do(http.MethodPost, "/v1/upload/complete", completeReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("complete failed: %s: %s", resp.Status, string(respBody))
	}
	var out CompleteResult
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify calls the unauthenticated existence probe.
func (c *Client) Verify(digest string) (map[string]any, error) {
	resp, respBody, err := c.do(http.MethodGet, "/v1/artifacts/"+digest+"/verify", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify failed: %s: %s", resp.Status, string(respBody))
	}
	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RetentionSweep calls the admin retention-sweep endpoint.
func (c *Client) RetentionSweep(before time.Time, dryRun bool) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"beforeDate": before.UTC().Format(time.RFC3339), "dryRun": dryRun})
	if err != nil {
		return nil, err
	}
	return c.postAdmin("/v1/admin/retention/sweep", body)
}

// Pin calls the admin IPFS-pin endpoint.
func (c *Client) Pin(digest string) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"sha256Hex": digest})
	if err != nil {
		return nil, err
	}
	return c.postAdmin("/v1/admin/ipfs/pin", body)
}

// Unpin calls the admin IPFS-unpin endpoint.
func (c *Client) Unpin(digest string) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"sha256Hex": digest})
	if err != nil {
		return nil, err
	}
	return c.postAdmin("/v1/admin/ipfs/unpin", body)
}

// Rescan calls the admin rescan endpoint.
func (c *Client) Rescan(digest string) (map[string]any, error) {
	body, err := json.Marshal(map[string]any{"sha256Hex": digest})
	if err != nil {
		return nil, err
	}
	return c.postAdmin("/v1/admin/rescan", body)
}

func (c *Client) postAdmin(path string, body []byte) (map[string]any, error) {
	resp, respBody, err := c.do(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed: %s: %s", path, resp.Status, string(respBody))
	}
	var out map[string]any
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return out, nil
}
