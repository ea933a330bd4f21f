package api

import (
	"encoding/json"
	"net/http"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/inventory"

	"github.com/go-chi/chi/v5"
)

// Attach endpoints patch measurements onto rows the reconciler owns. They
// never create rows and never flip lifecycle; a patch for an unknown or
// inactive target is a silent no-op.
func (s *apiServer) registerAttach(r chi.Router) {
	r.Post("/storage-accounts/{accountID}/metrics", s.attachStorageAccountMetrics)
	r.Post("/storage-accounts/{accountID}/security", s.attachStorageAccountSecurity)
	r.Post("/storage-accounts/{accountID}/containers/{containerName}/size", s.attachContainerSize)
	r.Post("/aws/accounts/{accountID}/buckets/{bucketName}/security", s.attachAWSBucketSecurity)
	r.Post("/wasabi/accounts/{accountID}/mark-sync", s.markWasabiAccountSync)
	r.Post("/aws/accounts/{accountID}/mark-sync", s.markAWSAccountSync)
}

func (s *apiServer) attachStorageAccountMetrics(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UsedCapacityBytes any    `json:"usedCapacityBytes"`
		EgressBytes24h    any    `json:"egressBytes24h"`
		IngressBytes24h   any    `json:"ingressBytes24h"`
		Transactions24h   any    `json:"transactions24h"`
		EgressBytes30d    any    `json:"egressBytes30d"`
		IngressBytes30d   any    `json:"ingressBytes30d"`
		Transactions30d   any    `json:"transactions30d"`
		Error             string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	err := s.store.AttachStorageAccountMetrics(chi.URLParam(r, "accountID"), inventory.StorageAccountMetricsPatch{
		UsedCapacityBytes: body.UsedCapacityBytes,
		EgressBytes24h:    body.EgressBytes24h,
		IngressBytes24h:   body.IngressBytes24h,
		Transactions24h:   body.Transactions24h,
		EgressBytes30d:    body.EgressBytes30d,
		IngressBytes30d:   body.IngressBytes30d,
		Transactions30d:   body.Transactions30d,
		Error:             body.Error,
	})
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) attachStorageAccountSecurity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProfileJSON *string `json:"profileJson"`
		Error       string  `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	if err := s.store.AttachStorageAccountSecurity(chi.URLParam(r, "accountID"), body.ProfileJSON, body.Error); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) attachContainerSize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SizeBytes any    `json:"sizeBytes"`
		BlobCount any    `json:"blobCount"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	err := s.store.AttachContainerSize(
		chi.URLParam(r, "accountID"), chi.URLParam(r, "containerName"),
		body.SizeBytes, body.BlobCount, body.Error)
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) attachAWSBucketSecurity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Profile map[string]any `json:"profile"`
		Error   string         `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	raw := body.Profile
	if raw == nil {
		raw = map[string]any{}
	}
	raw["bucketName"] = chi.URLParam(r, "bucketName")
	obs, ok := canonical.MapAWSBucket(raw)
	if !ok {
		respondError(w, 400, "invalid bucket profile")
		return
	}
	err := s.store.AttachAWSBucketSecurity(
		chi.URLParam(r, "accountID"), chi.URLParam(r, "bucketName"), obs, body.Error)
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) markWasabiAccountSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	if err := s.store.MarkWasabiAccountSync(chi.URLParam(r, "accountID"), body.Error); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) markAWSAccountSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	if err := s.store.MarkAWSAccountSync(chi.URLParam(r, "accountID"), body.Error); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}
