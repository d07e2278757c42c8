package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/activitygraph/pkg/activity"
	"github.com/matzehuels/activitygraph/pkg/errors"
	"github.com/matzehuels/activitygraph/pkg/feed"
	"github.com/matzehuels/activitygraph/pkg/lanegraph"
	"github.com/matzehuels/activitygraph/pkg/pipeline"
	"github.com/matzehuels/activitygraph/pkg/reltime"
)

// maxEvents caps the limit query parameter of /api/events.
const maxEvents = 500

// feedStatus summarizes one feed without its items.
type feedStatus struct {
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	FromCache bool       `json:"from_cache"`
	Count     int        `json:"count"`
}

type statusResponse struct {
	GitHub  *feedStatus `json:"github,omitempty"`
	Npm     *feedStatus `json:"npm,omitempty"`
	Loading bool        `json:"loading"`
}

func summarize[T any](st feed.State[T]) *feedStatus {
	fs := &feedStatus{Loading: st.Loading, Error: st.Err, FromCache: st.FromCache, Count: len(st.Items)}
	if !st.FetchedAt.IsZero() {
		at := st.FetchedAt
		fs.FetchedAt = &at
	}
	return fs
}

func (s *Server) status(st feed.Status) statusResponse {
	resp := statusResponse{Loading: st.Loading()}
	if s.dash.GitHub != nil {
		resp.GitHub = summarize(st.GitHub)
	}
	if s.dash.Npm != nil {
		resp.Npm = summarize(st.Npm)
	}
	return resp
}

type eventView struct {
	activity.Event
	When string `json:"when"`
}

type eventsResponse struct {
	Events []eventView    `json:"events"`
	Status statusResponse `json:"status"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := maxEvents
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be an integer, got %q", v))
			return
		}
		if err := errors.ValidateLimit(n, maxEvents); err != nil {
			s.writeError(w, r, err)
			return
		}
		limit = n
	}

	st := s.dash.Status()
	now := s.now()
	events, err := s.runner.Aggregate(pipeline.SnapshotFromStatus(st, now), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(events) > limit {
		events = events[:limit]
	}
	views := make([]eventView, len(events))
	for i, e := range events {
		views[i] = eventView{Event: e, When: reltime.Format(e.CreatedAt, now)}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: views, Status: s.status(st)})
}

type graphResponse struct {
	Graph  *lanegraph.Graph `json:"graph"`
	Status statusResponse   `json:"status"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st := s.dash.Status()
	events, err := s.runner.Aggregate(pipeline.SnapshotFromStatus(st, s.now()), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.runner.Layout(r.Context(), events, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{Graph: g, Status: s.status(st)})
}

func (s *Server) handleArtifact(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := s.options(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Formats = []string{format}
		st := s.dash.Status()
		res, err := s.runner.Execute(r.Context(), pipeline.SnapshotFromStatus(st, s.now()), opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if st.Loading() {
			w.Header().Set("X-Activity-Loading", "true")
		}
		w.Write(res.Artifacts[format])
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status(s.dash.Status()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	st := s.dash.Refresh(r.Context())
	writeJSON(w, http.StatusOK, s.status(st))
}

// options applies query overrides to the default pipeline options and
// validates the result.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.opts
	opts.Formats = nil
	opts.Kinds = append([]string(nil), s.opts.Kinds...)
	q := r.URL.Query()

	if v := q.Get("max_lanes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "max_lanes must be a positive integer, got %q", v)
		}
		opts.MaxLanes = n
	}
	if v := q.Get("order"); v != "" {
		opts.Orientation = v
	}
	if v := q.Get("dates"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "dates must be a boolean, got %q", v)
		}
		opts.NoDates = !b
	}
	if v := q.Get("kinds"); v != "" {
		opts.Kinds = strings.Split(v, ",")
	}
	if v := q.Get("theme"); v != "" {
		opts.Theme = v
	}
	if err := opts.ValidateForLayout(); err != nil {
		return opts, err
	}
	return opts, nil
}
