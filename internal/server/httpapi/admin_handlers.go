package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/server/admin"
	"github.com/evidencevault/vault/internal/server/models"
)

type retentionSweepRequest struct {
	BeforeDate string `json:"beforeDate"`
	DryRun     bool   `json:"dryRun"`
}

type artifactSummary struct {
	ArtifactID string `json:"artifactId"`
	Sha256Hex  string `json:"sha256Hex"`
	SizeBytes  int64  `json:"sizeBytes"`
	CreatedAt  string `json:"createdAt"`
}

func toSummaries(artifacts []*models.Artifact) []artifactSummary {
	out := make([]artifactSummary, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, artifactSummary{
			ArtifactID: a.ID,
			Sha256Hex:  a.Digest,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt.UTC().Format(rfc3339),
		})
	}
	return out
}

func (s *Server) handleRetentionSweep(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}
	if _, err := s.auth.RequireAdmin(r, body); err != nil {
		writeError(w, err)
		return
	}

	var req retentionSweepRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
		return
	}
	beforeDate, err := time.Parse(time.RFC3339, req.BeforeDate)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "beforeDate must be RFC3339"))
		return
	}

	result, err := s.admin.RetentionSweep(r.Context(), admin.RetentionSweepInput{BeforeDate: beforeDate, DryRun: req.DryRun})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"dryRun":    result.DryRun,
		"artifacts": toSummaries(result.Artifacts),
	}
	if result.DryRun {
		resp["artifactsToDelete"] = len(result.Artifacts)
	} else {
		resp["artifactsDeleted"] = len(result.Artifacts)
	}
	writeJSON(w, http.StatusOK, resp)
}

type digestRequest struct {
	Sha256Hex string `json:"sha256Hex"`
}

func (s *Server) handleIPFSPin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}
	if _, err := s.auth.RequireAdmin(r, body); err != nil {
		writeError(w, err)
		return
	}

	var req digestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
		return
	}

	artifact, err := s.admin.Pin(r.Context(), req.Sha256Hex)
	if err != nil {
		writeError(w, err)
		return
	}

	cid := ""
	if artifact.CidV1 != nil {
		cid = *artifact.CidV1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "pinned",
		"cidV1":      cid,
		"gatewayUrl": s.admin.GatewayURL(cid),
	})
}

func (s *Server) handleIPFSUnpin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}
	if _, err := s.auth.RequireAdmin(r, body); err != nil {
		writeError(w, err)
		return
	}

	var req digestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
		return
	}

	artifact, err := s.admin.Unpin(r.Context(), req.Sha256Hex)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "unpinned",
		"cidV1":   artifact.CidV1,
	})
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}
	if _, err := s.auth.RequireAdmin(r, body); err != nil {
		writeError(w, err)
		return
	}

	var req digestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
		return
	}

	artifact, err := s.admin.Rescan(r.Context(), req.Sha256Hex)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "rescan complete",
		"sha256Hex":  artifact.Digest,
		"scanStatus": artifact.ScanStatus,
		"verifiedAt": artifact.VerifiedAt.UTC().Format(rfc3339),
	})
}

func (s *Server) handleAdminListArtifacts(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.RequireAdmin(r, nil); err != nil {
		writeError(w, err)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	items, err := s.admin.List(r.Context(), admin.ListInput{Limit: limit, Cursor: cursor})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"artifacts": toSummaries(items)})
}
