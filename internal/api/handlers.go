package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/validate"
)

const maxBodyBytes = 1 << 20

// decode reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return invalid("invalid request body: " + err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalid(key + " must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.backends != nil {
		body["backends"] = s.backends.Backends()
		body["breakers"] = s.backends.BreakerStates()
	}
	respondJSON(w, http.StatusOK, body)
}

type createProspectRequest struct {
	Name              string            `json:"name"`
	Company           string            `json:"company"`
	City              string            `json:"city"`
	Address           string            `json:"address"`
	Contact           model.ContactInfo `json:"contact_info"`
	AutoEnrichEnabled *bool             `json:"auto_enrich_enabled"`
}

func (s *Server) createProspect(w http.ResponseWriter, r *http.Request) {
	var req createProspectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Company) == "" {
		respondError(w, r, invalid("name or company is required"))
		return
	}

	auto := true
	if req.AutoEnrichEnabled != nil {
		auto = *req.AutoEnrichEnabled
	}
	p := &model.Prospect{
		Name:       req.Name,
		Company:    req.Company,
		City:       req.City,
		Address:    req.Address,
		Contact:    req.Contact,
		Enrichment: model.EnrichmentState{AutoEnrichEnabled: auto},
	}
	if err := s.store.CreateProspect(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) getProspect(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) eligibility(w http.ResponseWriter, r *http.Request) {
	_, decision, err := s.svc.Decide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetProspect(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), id, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.EnrichmentRun{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) enrichProspect(w http.ResponseWriter, r *http.Request) {
	var opts model.EnrichOptions
	if err := decode(r, &opts); err != nil {
		respondError(w, r, err)
		return
	}
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = model.TriggerAPI
	}

	out, err := s.svc.EnrichProspect(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listEligible(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", enrich.DefaultBatchLimit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	prospects, err := s.svc.ListEligible(r.Context(), limit, 0)
	if err != nil {
		respondError(w, r, err)
		return
	}

	type entry struct {
		Prospect model.Prospect            `json:"prospect"`
		Decision model.EligibilityDecision `json:"decision"`
	}
	out := make([]entry, 0, len(prospects))
	for _, p := range prospects {
		out = append(out, entry{Prospect: p, Decision: s.svc.Gate().Decide(p)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"prospects": out})
}

type validateRequest struct {
	ProspectName    string                   `json:"prospect_name"`
	ProspectCompany string                   `json:"prospect_company"`
	Contacts        []model.ContactCandidate `json:"contacts"`
}

type contactScore struct {
	model.ContactCandidate
	Valid    bool   `json:"valid"`
	Rejected string `json:"rejected,omitempty"`
}

func (s *Server) validateContacts(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	for i, c := range req.Contacts {
		t, err := model.ParseContactType(string(c.Type))
		if err != nil {
			respondError(w, r, invalid(err.Error()))
			return
		}
		req.Contacts[i].Type = t
		if c.Confidence == "" {
			req.Contacts[i].Confidence = model.ConfidenceMedium
		}
	}

	report := s.engine.Evaluate(req.Contacts, validate.Context{
		ProspectName:    req.ProspectName,
		ProspectCompany: req.ProspectCompany,
	})
	scores := make([]contactScore, 0, len(report.Scores))
	for i, sc := range report.Scores {
		c := req.Contacts[i].WithDetails(sc.Details())
		c.ValidationScore = sc.Score
		scores = append(scores, contactScore{ContactCandidate: c, Valid: sc.Valid, Rejected: sc.Rejected})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"outcome":  report.Outcome,
		"contacts": scores,
	})
}

type batchRequest struct {
	Limit       int                 `json:"limit"`
	Concurrency int                 `json:"concurrency"`
	Options     model.EnrichOptions `json:"options"`
}

func (s *Server) runBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	sum, err := s.svc.RunBatch(r.Context(), enrich.BatchOptions{
		Limit:       req.Limit,
		Concurrency: req.Concurrency,
		Options:     req.Options,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}
