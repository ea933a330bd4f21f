package api

import (
	"encoding/json"
	"net/http"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *apiServer) register(r chi.Router) {
	r.Get("/subscriptions", s.listSubscriptions)
	r.Get("/subscriptions/selected", s.getSelectedSubscriptions)
	r.Put("/subscriptions/selected", s.putSelectedSubscriptions)

	r.Get("/storage-accounts", s.listStorageAccounts)
	r.Get("/storage-accounts/security", s.listStorageAccountSecurity)
	r.Get("/storage-accounts/{accountID}/containers", s.listContainers)
	r.Get("/storage-accounts/{accountID}/security", s.getStorageAccountSecurity)

	r.Get("/wasabi/accounts", s.listWasabiAccounts)
	r.Get("/wasabi/accounts/{accountID}/buckets", s.listWasabiBuckets)

	r.Get("/aws/accounts", s.listAWSAccounts)
	r.Get("/aws/accounts/{accountID}/buckets", s.listAWSBuckets)
	r.Get("/aws/accounts/{accountID}/filesystems", s.listFileSystems)

	r.Get("/aliases", s.listAliases)
	r.Post("/aliases", s.writeAliases)

	r.Get("/pricing", s.listPricing)
	r.Get("/pricing/{provider}/{profile}", s.getPricing)
	r.Put("/pricing/{provider}/{profile}", s.putPricing)

	// snapshot ingestion: raw provider payloads, normalized then reconciled
	r.Post("/sync/subscriptions", s.syncSubscriptions)
	r.Post("/sync/subscriptions/{subscriptionID}/storage-accounts", s.syncStorageAccounts)
	r.Post("/sync/storage-accounts/{accountID}/containers", s.syncContainers)
	r.Post("/sync/wasabi/accounts", s.syncWasabiAccounts)
	r.Post("/sync/wasabi/accounts/{accountID}/buckets", s.syncWasabiBuckets)
	r.Post("/sync/aws/accounts", s.syncAWSAccounts)
	r.Post("/sync/aws/accounts/{accountID}/buckets", s.syncAWSBuckets)
	r.Post("/sync/aws/accounts/{accountID}/filesystems", s.syncFileSystems)

	// live endpoint scans: enumerate buckets over S3 and reconcile in one pass
	s.registerScan(r)

	s.registerAttach(r)
}

func decodeRawList(r *http.Request) ([]map[string]any, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *apiServer) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListSubscriptions()
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) getSelectedSubscriptions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.SelectedSubscriptionIDs()
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, 200, map[string]any{"ids": ids})
}

func (s *apiServer) putSelectedSubscriptions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	if err := s.store.SetSelectedSubscriptions(body.IDs); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) listStorageAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListStorageAccounts(r.URL.Query()["subscriptionId"])
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listContainers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListContainers(chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) getStorageAccountSecurity(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetStorageAccountSecurity(chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if row == nil {
		respondError(w, 404, "no security profile")
		return
	}
	writeJSON(w, 200, row)
}

func (s *apiServer) listStorageAccountSecurity(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetStorageAccountSecurityMany(r.URL.Query()["accountId"])
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if rows == nil {
		rows = []models.StorageAccountSecurity{}
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listWasabiAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListWasabiAccounts(r.URL.Query()["accountId"])
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listWasabiBuckets(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListWasabiBuckets(chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listAWSAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAWSAccounts(r.URL.Query()["accountId"])
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listAWSBuckets(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAWSBuckets(chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listFileSystems(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListFileSystems(chi.URLParam(r, "accountID"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) listAliases(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListIPAliases()
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) writeAliases(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode    string           `json:"mode"`
		Aliases []map[string]any `json:"aliases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	aliases := make([]canonical.IPAlias, 0, len(body.Aliases))
	for _, raw := range body.Aliases {
		if a, ok := canonical.MapIPAlias(raw); ok {
			aliases = append(aliases, a)
		}
	}
	var err error
	switch body.Mode {
	case "replace":
		err = s.store.ReplaceIPAliases(aliases)
	case "merge", "":
		err = s.store.MergeIPAliases(aliases)
	default:
		respondError(w, 400, "mode must be merge or replace")
		return
	}
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(aliases)})
}

func (s *apiServer) listPricing(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListPricingSnapshots()
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, rows)
}

func (s *apiServer) getPricing(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetPricingSnapshot(chi.URLParam(r, "provider"), chi.URLParam(r, "profile"))
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if row == nil {
		respondError(w, 404, "no pricing snapshot")
		return
	}
	writeJSON(w, 200, row)
}

func (s *apiServer) putPricing(w http.ResponseWriter, r *http.Request) {
	var snap models.PricingSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	snap.Provider = chi.URLParam(r, "provider")
	snap.Profile = chi.URLParam(r, "profile")
	if err := s.store.UpsertPricingSnapshot(snap); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *apiServer) syncSubscriptions(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	subs := make([]canonical.Subscription, 0, len(raw))
	for _, item := range raw {
		if sub, ok := canonical.MapSubscription(item); ok {
			subs = append(subs, sub)
		}
	}
	if err := s.store.SyncSubscriptions(subs); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(subs)})
}

func (s *apiServer) syncStorageAccounts(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	accounts := make([]canonical.StorageAccount, 0, len(raw))
	for _, item := range raw {
		if acc, ok := canonical.MapStorageAccount(item); ok {
			accounts = append(accounts, acc)
		}
	}
	if err := s.store.SyncStorageAccounts(chi.URLParam(r, "subscriptionID"), accounts); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(accounts)})
}

func (s *apiServer) syncContainers(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	containers := make([]canonical.Container, 0, len(raw))
	for _, item := range raw {
		if c, ok := canonical.MapContainer(item); ok {
			containers = append(containers, c)
		}
	}
	if err := s.store.SyncContainers(chi.URLParam(r, "accountID"), containers); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(containers)})
}

func (s *apiServer) syncWasabiAccounts(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	accounts := make([]canonical.WasabiAccount, 0, len(raw))
	for _, item := range raw {
		if acc, ok := canonical.MapWasabiAccount(item); ok {
			accounts = append(accounts, acc)
		}
	}
	if err := s.store.SyncWasabiAccounts(accounts); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(accounts)})
}

func (s *apiServer) syncWasabiBuckets(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	buckets := make([]canonical.WasabiBucket, 0, len(raw))
	for _, item := range raw {
		if b, ok := canonical.MapWasabiBucket(item); ok {
			buckets = append(buckets, b)
		}
	}
	if err := s.store.SyncWasabiBuckets(chi.URLParam(r, "accountID"), buckets); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(buckets)})
}

func (s *apiServer) syncAWSAccounts(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	accounts := make([]canonical.AWSAccount, 0, len(raw))
	for _, item := range raw {
		if acc, ok := canonical.MapAWSAccount(item); ok {
			accounts = append(accounts, acc)
		}
	}
	if err := s.store.SyncAWSAccounts(accounts); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(accounts)})
}

func (s *apiServer) syncAWSBuckets(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	buckets := make([]canonical.AWSBucket, 0, len(raw))
	for _, item := range raw {
		if b, ok := canonical.MapAWSBucket(item); ok {
			buckets = append(buckets, b)
		}
	}
	if err := s.store.SyncAWSBuckets(chi.URLParam(r, "accountID"), buckets); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(buckets)})
}

func (s *apiServer) syncFileSystems(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawList(r)
	if err != nil {
		respondError(w, 400, "invalid body")
		return
	}
	fileSystems := make([]canonical.FileSystem, 0, len(raw))
	for _, item := range raw {
		if fs, ok := canonical.MapFileSystem(item); ok {
			fileSystems = append(fileSystems, fs)
		}
	}
	if err := s.store.SyncFileSystems(chi.URLParam(r, "accountID"), fileSystems); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "count": len(fileSystems)})
}
