package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/server/ingestion"
)

type initRequest struct {
	Filename       string `json:"filename"`
	SizeBytes      *int64 `json:"sizeBytes,omitempty"`
	MimeHint       string `json:"mimeHint,omitempty"`
	DeclaredSha256 string `json:"declaredSha256,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
	IssuanceID     string `json:"issuanceId,omitempty"`
}

type initResponse struct {
	UploadID  string `json:"uploadId"`
	Token     string `json:"token"`
	PutURL    string `json:"putUrl"`
	BucketKey string `json:"bucketKey"`
	ExpiresAt string `json:"expiresAt"`
}

func (s *Server) handleUploadInit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}

	authCtx, err := s.auth.RequireHMAC(r, body)
	if err != nil {
		writeError(w, err)
		return
	}

	var req initRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
			return
		}
	}

	out, err := s.ingestion.Init(r.Context(), ingestion.InitInput{
		Filename:       req.Filename,
		SizeBytes:      req.SizeBytes,
		MimeHint:       req.MimeHint,
		DeclaredDigest: req.DeclaredSha256,
		ProjectID:      req.ProjectID,
		IssuanceID:     req.IssuanceID,
		Auth:           authCtx,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initResponse{
		UploadID:  out.UploadID,
		Token:     out.Token,
		PutURL:    out.PutURL,
		BucketKey: out.BucketKey,
		ExpiresAt: out.ExpiresAt.UTC().Format(rfc3339),
	})
}

type completeRequest struct {
	UploadID    string `json:"uploadId"`
	UploadToken string `json:"token"`
}

type completeResponse struct {
	ArtifactID  string  `json:"artifactId"`
	Sha256Hex   string  `json:"sha256Hex"`
	SizeBytes   int64   `json:"sizeBytes"`
	Mime        string  `json:"mime"`
	BucketKey   string  `json:"bucketKey"`
	CidV1       *string `json:"cidV1,omitempty"`
	DownloadURL string  `json:"downloadUrl"`
}

func (s *Server) handleUploadComplete(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "reading request body"))
		return
	}

	authCtx, err := s.auth.RequireHMAC(r, body)
	if err != nil {
		writeError(w, err)
		return
	}

	var req completeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "decoding request body"))
		return
	}
	if req.UploadID == "" {
		writeError(w, apperr.New(apperr.KindValidation, "uploadId is required"))
		return
	}

	out, err := s.ingestion.Complete(r.Context(), ingestion.CompleteInput{
		UploadID:    req.UploadID,
		UploadToken: req.UploadToken,
		Auth:        authCtx,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{
		ArtifactID:  out.ArtifactID,
		Sha256Hex:   out.Digest,
		SizeBytes:   out.SizeBytes,
		Mime:        out.Mime,
		BucketKey:   out.BucketKey,
		CidV1:       out.CidV1,
		DownloadURL: out.DownloadURL,
	})
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"
