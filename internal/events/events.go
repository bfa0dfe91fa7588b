package events

import (
	"encoding/json"
	"time"
)

const (
	TypeBoardOK     = "board_ok"
	TypeBoardFailed = "board_failed"
	TypeSourceDone  = "source_done"
	TypeRunDone     = "run_done"
)

// Event is one progress notification from a scrape run.
type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(runID, typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:    typ,
		Version: 1,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
}

func (e Event) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// BoardOutcome is the payload of board_ok and board_failed.
type BoardOutcome struct {
	Source   string `json:"source"`
	Company  string `json:"company"`
	Listings int    `json:"listings"`
	Reason   string `json:"reason,omitempty"`
}

// SourceSummary is the payload of source_done.
type SourceSummary struct {
	Source   string `json:"source"`
	Listings int    `json:"listings"`
	Failures int    `json:"failures"`
}

// RunSummary is the payload of run_done.
type RunSummary struct {
	Sources  int `json:"sources"`
	Listings int `json:"listings"`
	Failures int `json:"failures"`
}
