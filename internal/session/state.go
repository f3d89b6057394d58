// Package session implements the practice session state machine: it turns
// classification results into a stable, debounced judgement against the
// current target letter.
package session

import (
	"time"

	"github.com/ayusman/sign2me/internal/classifier"
	"github.com/ayusman/sign2me/internal/gateway"
)

// NoPrediction is the predicted sign before any result has been accepted.
const NoPrediction = "-"

// Status is the judgement of the latest accepted prediction.
type Status string

// Session statuses.
const (
	StatusPending   Status = "pending"
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

// Default feedback settings.
const (
	DefaultCooldown         = 10 * time.Second
	DefaultCorrectMessage   = "Correct! Great job!"
	DefaultFallbackFeedback = "Try adjusting your hand shape."
)

// Policy holds the feedback rules applied by the reducer.
type Policy struct {
	// Cooldown is how long an accepted service feedback text suppresses
	// newer service text. Zero disables the cool-down.
	Cooldown time.Duration
	// CorrectMessage replaces any service text on a match.
	CorrectMessage string
	// FallbackFeedback is shown when the service gave no text.
	FallbackFeedback string
}

// DefaultPolicy returns the standard feedback rules.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:         DefaultCooldown,
		CorrectMessage:   DefaultCorrectMessage,
		FallbackFeedback: DefaultFallbackFeedback,
	}
}

// State is the authoritative state of one practice session.
type State struct {
	Target        string                   `json:"target"`
	PredictedSign string                   `json:"predicted_sign"`
	Status        Status                   `json:"status"`
	FeedbackText  string                   `json:"feedback"`
	Locked        bool                     `json:"locked"`
	Confidence    string                   `json:"confidence,omitempty"`
	Alternatives  []classifier.Alternative `json:"alternatives,omitempty"`
	// Round counts targets drawn in this session, starting at 1.
	Round uint64 `json:"round"`

	// cooldownUntil ends the active feedback cool-down window.
	cooldownUntil time.Time
}

// NewState returns the initial state for target.
func NewState(target string) State {
	return State{
		Target:        target,
		PredictedSign: NoPrediction,
		Status:        StatusPending,
		Round:         1,
	}
}

// Effect describes what ApplyPrediction did with a result.
type Effect struct {
	// Applied is false when the result was ignored.
	Applied bool
	// Stale marks a result answering a request from an earlier round.
	Stale bool
	// Suppressed marks service feedback withheld by the cool-down.
	Suppressed bool
}

// ApplyPrediction returns the state after accepting r at time now.
func (s State) ApplyPrediction(r gateway.Result, now time.Time, p Policy) (State, Effect) {
	if s.Locked {
		return s, Effect{}
	}
	if (r.Round != 0 && r.Round != s.Round) || (r.Target != "" && r.Target != s.Target) {
		return s, Effect{Stale: true}
	}

	s.PredictedSign = r.Sign
	s.Confidence = r.Confidence
	s.Alternatives = r.Alternatives

	if r.Sign == s.Target {
		s.Status = StatusCorrect
		s.Locked = true
		s.FeedbackText = p.CorrectMessage
		return s, Effect{Applied: true}
	}

	s.Status = StatusIncorrect

	var effect Effect
	effect.Applied = true
	cooling := now.Before(s.cooldownUntil)

	switch {
	case r.Feedback != "" && cooling:
		effect.Suppressed = true
	case r.Feedback != "":
		s.FeedbackText = r.Feedback
		if p.Cooldown > 0 {
			s.cooldownUntil = now.Add(p.Cooldown)
		}
	case !cooling && p.FallbackFeedback != "":
		s.FeedbackText = p.FallbackFeedback
	}

	return s, effect
}

// Advance returns the initial state for the next target in a new round.
func (s State) Advance(next string) State {
	n := NewState(next)
	n.Round = s.Round + 1
	return n
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	if s.Alternatives != nil {
		s.Alternatives = append([]classifier.Alternative(nil), s.Alternatives...)
	}
	return s
}
