// Package eventstore keeps the history of build passes as events in SQLite and
// projects them into summaries.
package eventstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

const statusRunning = "running"

// BuildSummary is the read model of one pass.
type BuildSummary struct {
	BuildID     string         `json:"build_id"`
	Command     string         `json:"command"`
	Root        string         `json:"root,omitempty"`
	Targets     []string       `json:"targets,omitempty"`
	Status      string         `json:"status"` // running or the outcome of the finished pass
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
	Documents   int            `json:"documents"`
	Processed   []string       `json:"processed,omitempty"` // document:target pairs
	Errors      int            `json:"errors"`
	Warnings    int            `json:"warnings"`
	ToolRuns    map[string]int `json:"tool_runs,omitempty"`
	Failure     string         `json:"failure,omitempty"`
}

// HistoryProjection reconstructs build summaries from a store.
type HistoryProjection struct {
	store   Store
	builds  map[string]*BuildSummary
	maxSize int
}

// NewHistoryProjection creates a projection keeping at most maxSize summaries.
func NewHistoryProjection(store Store, maxSize int) *HistoryProjection {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &HistoryProjection{store: store, builds: make(map[string]*BuildSummary), maxSize: maxSize}
}

// Rebuild replays every stored event.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.builds = make(map[string]*BuildSummary)
	for _, e := range events {
		p.Apply(e)
	}
	return nil
}

// Apply updates the projection with one event. Events of unknown type are ignored.
func (p *HistoryProjection) Apply(e Event) {
	id := e.BuildID()
	if id == "" {
		return
	}
	s, ok := p.builds[id]
	if !ok {
		s = &BuildSummary{BuildID: id, Status: statusRunning, StartedAt: e.Timestamp()}
		p.builds[id] = s
	}

	switch e.Type() {
	case TypeBuildStarted:
		var payload BuildStartedPayload
		if !decode(e, &payload) {
			return
		}
		s.StartedAt = e.Timestamp()
		s.Command = payload.Command
		s.Root = payload.Root
		s.Targets = payload.Targets

	case TypeDocumentProcessed:
		var payload DocumentProcessedPayload
		if !decode(e, &payload) {
			return
		}
		s.Processed = append(s.Processed, payload.Document+":"+payload.Target)

	case TypeBuildFinished:
		var payload BuildFinishedPayload
		if !decode(e, &payload) {
			return
		}
		end := e.Timestamp()
		s.CompletedAt = &end
		s.Duration = time.Duration(payload.DurationMS) * time.Millisecond
		s.Status = payload.Outcome
		s.Documents = payload.Documents
		s.Errors = payload.Errors
		s.Warnings = payload.Warnings
		s.ToolRuns = payload.ToolRuns
		s.Failure = payload.Failure
		if s.Command == "" {
			s.Command = e.Metadata()["command"]
		}
	}
}

func decode(e Event, v any) bool {
	if err := json.Unmarshal(e.Payload(), v); err != nil {
		slog.Warn("Skipping undecodable history event", logfields.BuildID(e.BuildID()),
			slog.String("event_type", e.Type()), logfields.Error(err))
		return false
	}
	return true
}

// History returns the summaries, newest first, at most maxSize.
func (p *HistoryProjection) History() []BuildSummary {
	out := make([]BuildSummary, 0, len(p.builds))
	for _, s := range p.builds {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].BuildID > out[j].BuildID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > p.maxSize {
		out = out[:p.maxSize]
	}
	return out
}

// Get returns the summary of one build.
func (p *HistoryProjection) Get(buildID string) (BuildSummary, bool) {
	s, ok := p.builds[buildID]
	if !ok {
		return BuildSummary{}, false
	}
	return *s, true
}
