package github

import (
	"encoding/json"
	"time"
)

// Envelope is one entry of the public events endpoint as returned by the
// API. The payload stays raw until [Envelope.Decode].
type Envelope struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	CreatedAt string          `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Event is a decoded envelope. CreatedAt is zero when the API timestamp
// could not be parsed.
type Event struct {
	ID        string
	Type      string
	Actor     string
	Repo      string
	CreatedAt time.Time
	Payload   Payload
}

// Payload is the sum type of the event payloads the dashboard understands.
// Exactly one of the concrete types below is stored in Event.Payload.
type Payload interface {
	eventType() string
}

// PushPayload is the payload of a PushEvent.
type PushPayload struct {
	Ref          string   `json:"ref"`
	Size         int      `json:"size"`
	DistinctSize int      `json:"distinct_size"`
	Head         string   `json:"head"`
	Before       string   `json:"before"`
	Commits      []Commit `json:"commits"`
}

// Commit is a pushed commit.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// PullRequestPayload is the payload of a PullRequestEvent.
type PullRequestPayload struct {
	Action      string      `json:"action"`
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
}

// PullRequest is the subset of pull request fields used for messages.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
}

// ReleasePayload is the payload of a ReleaseEvent.
type ReleasePayload struct {
	Action  string `json:"action"`
	Release struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	} `json:"release"`
}

// ForkPayload is the payload of a ForkEvent.
type ForkPayload struct {
	Forkee struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"forkee"`
}

// WatchPayload is the payload of a WatchEvent (a star).
type WatchPayload struct {
	Action string `json:"action"`
}

// IssuesPayload is the payload of an IssuesEvent.
type IssuesPayload struct {
	Action string `json:"action"`
	Issue  Issue  `json:"issue"`
}

// Issue is the subset of issue fields used for messages.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// IssueCommentPayload is the payload of an IssueCommentEvent.
type IssueCommentPayload struct {
	Action  string `json:"action"`
	Issue   Issue  `json:"issue"`
	Comment struct {
		HTMLURL string `json:"html_url"`
	} `json:"comment"`
}

// UnknownPayload carries an event type without a dedicated variant, or a
// known type whose payload failed to decode. Raw is kept for forward
// compatibility.
type UnknownPayload struct {
	Type string
	Raw  json.RawMessage
}

func (PushPayload) eventType() string         { return "PushEvent" }
func (PullRequestPayload) eventType() string  { return "PullRequestEvent" }
func (ReleasePayload) eventType() string      { return "ReleaseEvent" }
func (ForkPayload) eventType() string         { return "ForkEvent" }
func (WatchPayload) eventType() string        { return "WatchEvent" }
func (IssuesPayload) eventType() string       { return "IssuesEvent" }
func (IssueCommentPayload) eventType() string { return "IssueCommentEvent" }
func (p UnknownPayload) eventType() string    { return p.Type }

// Decode parses the timestamp and payload of e.
func (e Envelope) Decode() Event {
	ev := Event{
		ID:      e.ID,
		Type:    e.Type,
		Actor:   e.Actor.Login,
		Repo:    e.Repo.Name,
		Payload: decodePayload(e.Type, e.Payload),
	}
	if t, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
		ev.CreatedAt = t
	}
	return ev
}

func decodePayload(typ string, raw json.RawMessage) Payload {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var (
		p   Payload
		err error
	)
	switch typ {
	case "PushEvent":
		var v PushPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "PullRequestEvent":
		var v PullRequestPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "ReleaseEvent":
		var v ReleasePayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "ForkEvent":
		var v ForkPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "WatchEvent":
		var v WatchPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "IssuesEvent":
		var v IssuesPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case "IssueCommentEvent":
		var v IssueCommentPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return UnknownPayload{Type: typ, Raw: raw}
	}
	if err != nil {
		return UnknownPayload{Type: typ, Raw: raw}
	}
	return p
}
