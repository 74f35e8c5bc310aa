package webd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"

	"github.com/rotblauer/dotd/events"
	"github.com/rotblauer/dotd/layer"
	"github.com/rotblauer/dotd/params"
	"github.com/rotblauer/dotd/stream"
	"github.com/rotblauer/dotd/types/activity"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt  time.Time               `json:"started_at"`
	Uptime     string                  `json:"uptime"`
	Config     *params.WebDaemonConfig `json:"config"`
	Activities int                     `json:"activities"`
	Records    int                     `json:"records"`
	WSOpen     bool                    `json:"ws_open"`
	WSConns    int                     `json:"ws_conns"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	nrecs, err := s.Store.Count()
	if err != nil {
		s.logger.Warn("Failed to count records", "error", err)
	}
	st := webDaemonStatus{
		StartedAt:  s.started,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Config:     s.Config,
		Activities: s.Coll.Len(),
		Records:    nrecs,
		WSOpen:     !s.melodyInstance.IsClosed(),
		WSConns:    s.melodyInstance.Len(),
	}
	j, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal status", "error", err)
		http.Error(w, "Failed to marshal status", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

type activitySummary struct {
	ID       int64     `json:"_id"`
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	N        int       `json:"n"`
	TS       int64     `json:"ts"`
	LLBounds orb.Bound `json:"ll_bounds"`
	Gaps     int       `json:"gaps"`
}

func summarize(a *activity.Activity) activitySummary {
	return activitySummary{
		ID:       a.ID,
		Type:     a.Type,
		Name:     a.Name,
		N:        a.N(),
		TS:       a.TS,
		LLBounds: a.LLBounds,
		Gaps:     len(a.PxGaps()),
	}
}

// handleListActivities writes a JSON array of collection membership
// summaries, in ascending id order.
func (s *WebDaemon) handleListActivities(w http.ResponseWriter, r *http.Request) {
	out := []activitySummary{}
	s.Coll.Range(func(a *activity.Activity) bool {
		out = append(out, summarize(a))
		return true
	})
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handleGetActivity returns one activity summary by id. A collection
// miss falls back to the record store, re-admitting the activity.
func (s *WebDaemon) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Bad activity id", http.StatusBadRequest)
		return
	}
	a := s.Coll.Get(id)
	if a == nil {
		rec, err := s.Store.Read(id)
		if err != nil {
			http.Error(w, "No such activity", http.StatusNotFound)
			return
		}
		if a, err = s.Coll.Add(rec); err != nil && !errors.Is(err, layer.ErrDuplicateRecord) {
			s.logger.Warn("Failed to re-admit activity", "id", id, "error", err)
			http.Error(w, "Failed to load activity", http.StatusInternalServerError)
			return
		}
		if a == nil {
			a = s.Coll.Get(id)
		}
	}
	if a == nil {
		http.Error(w, "No such activity", http.StatusNotFound)
		return
	}
	if err := json.NewEncoder(w).Encode(summarize(a)); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handlePopulate is where activity records get POSTed, as NDJSON, one
// record per line. Each record is persisted and admitted to the
// collection; duplicates are dropped quietly. The response is an empty
// JSON array, which satisfies the pushing clients.
func (s *WebDaemon) handlePopulate(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		s.logger.Error("No request body", "method", r.Method, "url", r.URL)
		http.Error(w, "Please send a request body", 500)
		return
	}

	ctx := r.Context()
	recs := stream.Collect(ctx, stream.NDJSON[*activity.RawRecord](ctx, r.Body))
	if len(recs) == 0 {
		s.logger.Error("Failed to decode any records", "method", r.Method, "url", r.URL)
		http.Error(w, "Failed to decode", http.StatusUnprocessableEntity)
		return
	}

	events.HTTPPopulateFeed.Send(recs)

	admitted := 0
	for _, rec := range recs {
		a, err := s.Coll.Add(rec)
		if err != nil {
			if errors.Is(err, layer.ErrDuplicateRecord) {
				continue
			}
			s.logger.Warn("Failed to admit record", "id", rec.ID, "error", err)
			continue
		}
		if err := s.Store.Write(rec); err != nil {
			s.logger.Error("Failed to persist record", "id", rec.ID, "error", err)
			http.Error(w, "Failed to persist record", http.StatusInternalServerError)
			return
		}
		events.NewActivityFeed.Send(a)
		admitted++
	}

	s.logger.Info("Populated", "records", len(recs), "admitted", admitted)

	// This weirdness is to satisfy the legacy clients.
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("[]")); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}

	s.NotifyPopulated(recs)
}
