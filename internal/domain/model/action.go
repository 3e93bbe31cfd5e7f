package model

import "strings"

// Action is an engagement kind. The set is closed; anything outside of it
// carries no weight and is ignored by the recorder.
type Action string

// Known actions.
const (
	ActionHit   Action = "hit"
	ActionReply Action = "reply"
)

// Weights of the known actions.
const (
	HitWeight   int64 = 1
	ReplyWeight int64 = 3
)

// Weight returns the score increment for a. ok is false for unknown actions.
func (a Action) Weight() (weight int64, ok bool) {
	switch a {
	case ActionHit:
		return HitWeight, true
	case ActionReply:
		return ReplyWeight, true
	default:
		return 0, false
	}
}

// ParseAction normalizes s into an Action. Unknown values are returned as-is
// so callers can still pass them through and have them ignored.
func ParseAction(s string) Action {
	return Action(strings.ToLower(strings.TrimSpace(s)))
}

func (a Action) String() string { return string(a) }
