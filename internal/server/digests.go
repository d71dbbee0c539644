package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/review"
	"github.com/sells-group/article-digest/internal/store"
)

type createDigestRequest struct {
	Records []model.PersistedRecord `json:"records"`
	Summary *struct {
		Total      *float64 `json:"total"`
		DurationMs float64  `json:"durationMs"`
	} `json:"summary"`
	Note string `json:"note"`
}

func (s *Server) handleCreateDigest(w http.ResponseWriter, r *http.Request) {
	var req createDigestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records array is required")
		return
	}
	if req.Summary == nil || req.Summary.Total == nil {
		writeError(w, http.StatusBadRequest, "summary is required")
		return
	}

	total := int(*req.Summary.Total)
	if total <= 0 {
		total = len(req.Records)
	}
	d := &model.Digest{
		CreatedAt: s.now(),
		Summary: model.DigestSummary{
			Total:      total,
			DurationMs: int64(req.Summary.DurationMs),
		},
		Records: req.Records,
		Metadata: &model.DigestMetadata{
			Actor:      actorFrom(r),
			CreatedVia: "api",
			Note:       req.Note,
		},
	}

	saved, err := s.store.Save(r.Context(), d)
	if err != nil {
		writeErr(w, err, "Invalid digest")
		return
	}
	writeData(w, saved)
}

func (s *Server) handleListDigests(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	digests, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeErr(w, err, "Invalid filter")
		return
	}
	if digests == nil {
		digests = []model.Digest{}
	}
	writeData(w, digests)
}

func parseListFilter(r *http.Request) (store.ListFilter, error) {
	var f store.ListFilter
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, eris.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, eris.New("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}
	return f, nil
}

func (s *Server) handleGetDigest(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Digest id is required")
		return
	}
	d, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err, "Digest id is required")
		return
	}
	writeData(w, d)
}

func (s *Server) handleClearDigests(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeErr(w, err, "Clear failed")
		return
	}
	writeData(w, map[string]bool{"cleared": true})
}

type reviewResponse struct {
	DigestID string                 `json:"digestId"`
	Record   *model.PersistedRecord `json:"record"`
	Summary  model.DigestSummary    `json:"summary"`
}

// parseReviewBody reads reviewStage and shortlisted, rejecting unknown
// stages and non-boolean flags.
func parseReviewBody(raw map[string]json.RawMessage) (stage *string, shortlisted *bool, notes string, msg string) {
	if v, ok := raw["reviewStage"]; ok && string(v) != "null" {
		var s string
		if err := json.Unmarshal(v, &s); err != nil || !model.IsReviewStage(s) {
			return nil, nil, "", "Invalid review stage provided"
		}
		stage = &s
	}
	if v, ok := raw["shortlisted"]; ok && string(v) != "null" {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return nil, nil, "", "shortlisted must be a boolean when provided"
		}
		shortlisted = &b
	}
	if v, ok := raw["notes"]; ok {
		_ = json.Unmarshal(v, &notes)
	}
	return stage, shortlisted, notes, ""
}

func (s *Server) handleReviewRecord(w http.ResponseWriter, r *http.Request) {
	digestID := strings.TrimSpace(chi.URLParam(r, "id"))
	recordID := strings.TrimSpace(chi.URLParam(r, "recordId"))
	if digestID == "" {
		writeError(w, http.StatusBadRequest, "Digest id is required")
		return
	}
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "Record id is required")
		return
	}

	raw := map[string]json.RawMessage{}
	if err := decodeBody(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	stage, shortlisted, notes, msg := parseReviewBody(raw)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	upd := review.Update{
		RecordID:    recordID,
		ReviewStage: stage,
		Shortlisted: shortlisted,
		Timestamp:   s.now(),
		Actor:       actorFrom(r),
		Notes:       notes,
	}
	updated, err := s.store.Update(r.Context(), digestID, func(current *model.Digest) (*model.Digest, error) {
		next, _, err := review.Apply(current, upd)
		return next, err
	})
	if err != nil {
		writeErr(w, err, "Invalid review update")
		return
	}

	rec, ok := updated.Record(recordID)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Record update failed")
		return
	}
	writeData(w, reviewResponse{DigestID: digestID, Record: rec, Summary: updated.Summary})
}
