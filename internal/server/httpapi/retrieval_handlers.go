package httpapi

import (
	"net/http"
)

type metaResponse struct {
	ArtifactID string  `json:"artifactId"`
	Sha256Hex  string  `json:"sha256Hex"`
	SizeBytes  int64   `json:"sizeBytes"`
	Mime       string  `json:"mime"`
	Filename   string  `json:"filename"`
	CidV1      *string `json:"cidV1,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	ProjectID  string  `json:"projectId,omitempty"`
	IssuanceID string  `json:"issuanceId,omitempty"`
	MetaJSON   string  `json:"metaJson,omitempty"`
}

type verifyResponse struct {
	Exists     bool    `json:"exists"`
	SizeBytes  *int64  `json:"sizeBytes,omitempty"`
	Mime       string  `json:"mime,omitempty"`
	CidV1      *string `json:"cidV1,omitempty"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	ScanStatus string  `json:"scanStatus,omitempty"`
}

// handleDownload answers GET /v1/artifacts/{d}. Authentication is
// required unless PUBLIC_READ is enabled (spec.md §4.9).
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")

	if !s.cfg.PublicRead {
		if _, err := s.auth.RequireAny(r, nil); err != nil {
			writeError(w, err)
			return
		}
	}

	url, err := s.retrieval.Download(r.Context(), digest)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", url)
	w.WriteHeader(http.StatusFound)
}

// handleMeta answers GET /v1/artifacts/{d}/meta. Always authenticated.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")

	if _, err := s.auth.RequireAny(r, nil); err != nil {
		writeError(w, err)
		return
	}

	artifact, err := s.retrieval.Meta(r.Context(), digest)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metaResponse{
		ArtifactID: artifact.ID,
		Sha256Hex:  artifact.Digest,
		SizeBytes:  artifact.SizeBytes,
		Mime:       artifact.Mime,
		Filename:   artifact.Filename,
		CidV1:      artifact.CidV1,
		CreatedAt:  artifact.CreatedAt.UTC().Format(rfc3339),
		ProjectID:  artifact.ProjectID,
		IssuanceID: artifact.IssuanceID,
		MetaJSON:   artifact.MetaJSON,
	})
}

// handleVerify answers GET /v1/artifacts/{d}/verify. Unauthenticated.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")

	result, err := s.retrieval.Verify(r.Context(), digest)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := verifyResponse{Exists: result.Exists}
	if result.Exists {
		size := result.SizeBytes
		resp.SizeBytes = &size
		resp.Mime = result.Mime
		resp.CidV1 = result.CidV1
		resp.ScanStatus = string(result.ScanStatus)
		if result.CreatedAt != nil {
			resp.CreatedAt = result.CreatedAt.UTC().Format(rfc3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
