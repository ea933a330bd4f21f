package api

import (
	"encoding/json"
	"net/http"

	"github.com/quarterhill/stratus/internal/providers/s3"

	"github.com/go-chi/chi/v5"
)

// scanRequest carries the credentials and endpoint overrides for one live
// bucket scan. Secrets are request-scoped and never persisted; endpoint and
// region fall back to what the account row carries.
type scanRequest struct {
	AccessKey      string `json:"accessKey"`
	SecretKey      string `json:"secretKey"`
	Endpoint       string `json:"endpoint"`
	Region         string `json:"region"`
	UseSSL         *bool  `json:"useSSL"`
	ForcePathStyle *bool  `json:"forcePathStyle"`
	Measure        bool   `json:"measure"`
}

func (req scanRequest) endpoint(ep s3.Endpoint) s3.Endpoint {
	if req.Endpoint != "" {
		ep.URL = req.Endpoint
	}
	if req.Region != "" {
		ep.Region = req.Region
	}
	if req.UseSSL != nil {
		ep.UseSSL = *req.UseSSL
	}
	if req.ForcePathStyle != nil {
		ep.ForcePathStyle = *req.ForcePathStyle
	}
	ep.AccessKey = req.AccessKey
	ep.SecretKey = req.SecretKey
	return ep
}

func (s *apiServer) registerScan(r chi.Router) {
	r.Post("/scan/wasabi/accounts/{accountID}/buckets", s.scanWasabiBuckets)
	r.Post("/scan/aws/accounts/{accountID}/buckets", s.scanAWSBuckets)
}

func decodeScanRequest(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, 400, "invalid body")
		return req, false
	}
	if req.AccessKey == "" || req.SecretKey == "" {
		respondError(w, 400, "accessKey and secretKey are required")
		return req, false
	}
	return req, true
}

// scanWasabiBuckets enumerates the account's live buckets and reconciles them
// in one pass. A failed enumeration is recorded on the account row instead of
// touching the bucket inventory.
func (s *apiServer) scanWasabiBuckets(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}
	accountID := chi.URLParam(r, "accountID")
	acc, err := s.store.GetWasabiAccount(accountID)
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if acc == nil {
		respondError(w, 404, "unknown account")
		return
	}

	ep := s3.Endpoint{UseSSL: true, ForcePathStyle: true}
	if acc.S3Endpoint != nil {
		ep.URL = *acc.S3Endpoint
	}
	if acc.Region != nil {
		ep.Region = *acc.Region
	}
	client, err := s3.New(req.endpoint(ep))
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}

	buckets, err := client.ObserveWasabiBuckets(r.Context(), req.Measure)
	if err != nil {
		if mErr := s.store.MarkWasabiAccountSync(accountID, err.Error()); mErr != nil {
			s.logger.Error("mark wasabi sync", "accountId", accountID, "error", mErr)
		}
		respondError(w, 502, err.Error())
		return
	}
	if err := s.store.SyncWasabiBuckets(accountID, buckets); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if err := s.store.MarkWasabiAccountSync(accountID, ""); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(buckets)})
}

func (s *apiServer) scanAWSBuckets(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeScanRequest(w, r)
	if !ok {
		return
	}
	accountID := chi.URLParam(r, "accountID")
	acc, err := s.store.GetAWSAccount(accountID)
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if acc == nil {
		respondError(w, 404, "unknown account")
		return
	}

	ep := s3.Endpoint{UseSSL: true, ForcePathStyle: acc.ForcePathStyle}
	if acc.S3Endpoint != nil {
		ep.URL = *acc.S3Endpoint
	}
	if acc.Region != nil {
		ep.Region = *acc.Region
	}
	client, err := s3.New(req.endpoint(ep))
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}

	buckets, err := client.ObserveAWSBuckets(r.Context(), req.Measure)
	if err != nil {
		if mErr := s.store.MarkAWSAccountSync(accountID, err.Error()); mErr != nil {
			s.logger.Error("mark aws sync", "accountId", accountID, "error", mErr)
		}
		respondError(w, 502, err.Error())
		return
	}
	if err := s.store.SyncAWSBuckets(accountID, buckets); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if err := s.store.MarkAWSAccountSync(accountID, ""); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(buckets)})
}
