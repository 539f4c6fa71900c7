package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/notionstore"
)

// maxWebhookBody caps the accepted payload size.
const maxWebhookBody = 1 << 20

// Webhook outcomes reported to the observer.
const (
	OutcomeEnriched = "enriched"
	OutcomeIgnored  = "ignored"
	OutcomeInvalid  = "invalid"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

var (
	errNotAPage  = eris.New("payload is not a page")
	errNoPageID  = eris.New("page has no id")
	errWrongStat = eris.New("status does not trigger enrichment")
)

// EnrichResponse is returned for a processed trigger.
type EnrichResponse struct {
	Success           bool                   `json:"success"`
	PersonID          string                 `json:"person_id"`
	PersonName        string                 `json:"person_name"`
	EnrichmentStatus  model.EnrichmentStatus `json:"enrichment_status"`
	CompletenessScore int                    `json:"completeness_score"`
	Confidence        model.ConfidenceLevel  `json:"confidence"`
	ApolloSuccess     bool                   `json:"apollo_success"`
	LinkedInSuccess   bool                   `json:"linkedin_success"`
	StorageSuccess    bool                   `json:"storage_success"`
	Skipped           bool                   `json:"skipped"`
	RecordID          string                 `json:"record_id,omitempty"`
	Errors            []string               `json:"errors,omitempty"`
	Timestamp         string                 `json:"timestamp"`
}

// webhookEnvelope matches both a bare page payload and one wrapped in data.
type webhookEnvelope struct {
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// PersonFromWebhook extracts the person from a page payload, either the
// page itself or the page under "data".
func PersonFromWebhook(body []byte) (model.Person, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Person{}, eris.Wrap(err, "api: decode webhook")
	}

	raw := body
	if env.Object != "page" {
		if len(env.Data) == 0 {
			return model.Person{}, errNotAPage
		}
		raw = env.Data
	}

	var page notionapi.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return model.Person{}, eris.Wrap(err, "api: decode page")
	}
	if page.ID == "" {
		return model.Person{}, errNoPageID
	}
	return notionstore.PersonFromPage(page), nil
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.observe(OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	p, err := PersonFromWebhook(body)
	if err != nil {
		s.observe(OutcomeInvalid)
		zap.L().Warn("api: rejected webhook payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if p.Status != s.triggerStatus {
		s.observe(OutcomeIgnored)
		zap.L().Info("api: webhook ignored",
			zap.String("person_id", p.ID),
			zap.String("status", p.Status),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   errWrongStat.Error(),
			Message: "status is " + strconv.Quote(p.Status) + ", want " + strconv.Quote(s.triggerStatus),
		})
		return
	}

	ctx, cancel := s.enrichContext(r)
	defer cancel()
	res, err := s.enricher.EnrichPerson(ctx, p)
	s.respond(w, p.ID, res, err)
}

func (s *Server) handleEnrichPerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")

	ctx, cancel := s.enrichContext(r)
	defer cancel()
	res, err := s.enricher.Enrich(ctx, personID)
	s.respond(w, personID, res, err)
}

func (s *Server) respond(w http.ResponseWriter, personID string, res *enrich.Result, err error) {
	switch {
	case errors.Is(err, enrich.ErrAttemptInProgress):
		s.observe(OutcomeBusy)
		writeError(w, http.StatusConflict, "an enrichment attempt for this person is already running")
		return
	case errors.Is(err, enrich.ErrPersonNotFound):
		s.observe(OutcomeInvalid)
		writeError(w, http.StatusNotFound, "person not found")
		return
	case err != nil:
		s.observe(OutcomeError)
		zap.L().Error("api: enrichment failed", zap.String("person_id", personID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment failed")
		return
	}

	s.observe(OutcomeEnriched)
	writeJSON(w, http.StatusOK, s.enrichResponse(res))
}

func (s *Server) enrichResponse(res *enrich.Result) EnrichResponse {
	out := EnrichResponse{
		Success:         true,
		PersonID:        res.Person.ID,
		PersonName:      res.Person.DisplayName(),
		ApolloSuccess:   res.ProviderHasData(model.ProviderApollo),
		LinkedInSuccess: res.ProviderHasData(model.ProviderLinkedIn),
		StorageSuccess:  res.StorageSuccess,
		Skipped:         res.Skipped,
		RecordID:        res.RecordID,
		Timestamp:       s.now().UTC().Format(time.RFC3339),
	}
	if rec := res.Record; rec != nil {
		out.EnrichmentStatus = rec.Status
		out.CompletenessScore = rec.CompletenessScore
		out.Confidence = rec.Confidence
		out.Errors = rec.Errors
	}
	return out
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AttemptFilter{
		PersonID: q.Get("person_id"),
		Status:   model.EnrichmentStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	attempts, err := s.history.ListAttempts(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list attempts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list attempts")
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}
