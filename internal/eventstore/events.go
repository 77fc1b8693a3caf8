package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/report"
)

// Event types.
const (
	TypeBuildStarted      = "BuildStarted"
	TypeDocumentProcessed = "DocumentProcessed"
	TypeBuildFinished     = "BuildFinished"
)

// Event is one fact about a build pass.
type Event interface {
	ID() int64
	BuildID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent is the stored form of every event.
type BaseEvent struct {
	EventID        int64
	EventBuildID   string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) BuildID() string             { return e.EventBuildID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }

// BuildStartedPayload describes the pass that starts.
type BuildStartedPayload struct {
	Command string   `json:"command"`
	Root    string   `json:"root"`
	Targets []string `json:"targets"`
}

// DocumentProcessedPayload records one target built for one document.
type DocumentProcessedPayload struct {
	Document   string `json:"document"`
	Target     string `json:"target"`
	Outputs    int    `json:"outputs"`
	DurationMS int64  `json:"duration_ms"`
}

// BuildFinishedPayload summarizes the pass.
type BuildFinishedPayload struct {
	Outcome    string         `json:"outcome"`
	Documents  int            `json:"documents"`
	Errors     int            `json:"errors"`
	Warnings   int            `json:"warnings"`
	ToolRuns   map[string]int `json:"tool_runs"`
	Failure    string         `json:"failure,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

func newEvent(buildID, eventType string, at time.Time, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHistory, "failed to marshal "+eventType+" payload").
			WithContext("build_id", buildID).
			Build()
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   data,
	}, nil
}

// NewBuildStarted creates the first event of a pass from its report.
func NewBuildStarted(rep *report.BuildReport) (*BaseEvent, error) {
	return newEvent(rep.BuildID, TypeBuildStarted, rep.Start, BuildStartedPayload{
		Command: rep.Command,
		Root:    rep.Root,
		Targets: rep.Targets,
	})
}

// NewDocumentProcessed records that target was built for document.
func NewDocumentProcessed(buildID, document, target string, outputs int, d time.Duration) (*BaseEvent, error) {
	return newEvent(buildID, TypeDocumentProcessed, time.Now(), DocumentProcessedPayload{
		Document:   document,
		Target:     target,
		Outputs:    outputs,
		DurationMS: d.Milliseconds(),
	})
}

// NewBuildFinished creates the last event of a pass from its finished report.
func NewBuildFinished(rep *report.BuildReport) (*BaseEvent, error) {
	runs := make(map[string]int, len(rep.ToolRuns))
	for tool, n := range rep.ToolRuns {
		runs[tool] = n
	}
	e, err := newEvent(rep.BuildID, TypeBuildFinished, rep.End, BuildFinishedPayload{
		Outcome:    string(rep.Outcome),
		Documents:  len(rep.Documents),
		Errors:     rep.Count(report.SeverityError),
		Warnings:   rep.Count(report.SeverityWarning),
		ToolRuns:   runs,
		Failure:    rep.Failure,
		DurationMS: rep.End.Sub(rep.Start).Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	e.EventMetadata = map[string]string{"command": rep.Command}
	return e, nil
}
