// Package view holds the client-side state that pages mutate optimistically:
// rating and visibility toggles and the report workflow. Counts shown to the
// user move the moment they act; the server's answer either confirms the move
// or rolls it back to the last confirmed state.
package view

import (
	"errors"
	"sync"
)

const (
	RatingLike    = "like"
	RatingDislike = "dislike"
)

var (
	ErrToggleBusy    = errors.New("action already in flight")
	ErrUnknownRating = errors.New("rating must be 'like' or 'dislike'")
)

type ToggleState int

const (
	StateUnset ToggleState = iota
	StatePendingSet
	StateSet
	StatePendingClear
)

type Action int

const (
	ActionSet Action = iota
	ActionClear
)

// RatingControl is the per-playlist like/dislike control. At most one request
// is in flight at any time; while one is outstanding further activations are
// rejected so rapid toggling cannot race and corrupt the counts.
type RatingControl struct {
	mu       sync.Mutex
	likes    int
	dislikes int
	rating   string // "" when the user holds no rating
	state    ToggleState
	gen      uint64
}

func NewRatingControl(likes, dislikes int, rating string) *RatingControl {
	state := StateUnset
	if rating != "" {
		state = StateSet
	}

	return &RatingControl{
		likes:    likes,
		dislikes: dislikes,
		rating:   rating,
		state:    state,
	}
}

// Pending is one in-flight toggle. Resolve must be called exactly once with
// the request outcome.
type Pending struct {
	ctl  *RatingControl
	gen  uint64
	done bool

	Action Action
	Kind   string

	prevLikes    int
	prevDislikes int
	prevRating   string
	prevState    ToggleState
}

// Begin applies the optimistic mutation and hands back the pending request.
// Activating the value already held clears it; switching between like and
// dislike moves both counters in this one step, never as two sequential
// toggles.
func (rc *RatingControl) Begin(kind string) (*Pending, error) {
	if kind != RatingLike && kind != RatingDislike {
		return nil, ErrUnknownRating
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state == StatePendingSet || rc.state == StatePendingClear {
		return nil, ErrToggleBusy
	}

	p := &Pending{
		ctl:          rc,
		gen:          rc.gen,
		Kind:         kind,
		prevLikes:    rc.likes,
		prevDislikes: rc.dislikes,
		prevRating:   rc.rating,
		prevState:    rc.state,
	}

	if rc.rating == kind {
		p.Action = ActionClear
		rc.add(kind, -1)
		rc.rating = ""
		rc.state = StatePendingClear
		return p, nil
	}

	p.Action = ActionSet
	rc.add(kind, 1)
	if rc.rating != "" {
		rc.add(rc.rating, -1)
	}
	rc.rating = kind
	rc.state = StatePendingSet

	return p, nil
}

// Resolve settles the toggle with the request outcome. A failure restores the
// exact pre-action snapshot. Returns false when the result was discarded: the
// view navigated away, or Resolve was already called.
func (p *Pending) Resolve(err error) bool {
	p.ctl.mu.Lock()
	defer p.ctl.mu.Unlock()

	if p.done {
		return false
	}
	p.done = true

	if p.gen != p.ctl.gen {
		return false
	}

	if err != nil {
		p.ctl.likes = p.prevLikes
		p.ctl.dislikes = p.prevDislikes
		p.ctl.rating = p.prevRating
		p.ctl.state = p.prevState
		return true
	}

	if p.Action == ActionClear {
		p.ctl.state = StateUnset
	} else {
		p.ctl.state = StateSet
	}

	return true
}

// Invalidate marks the control as navigated-away: any result still in flight
// is discarded instead of mutating an abandoned view.
func (rc *RatingControl) Invalidate() {
	rc.mu.Lock()
	rc.gen++
	rc.mu.Unlock()
}

func (rc *RatingControl) Counts() (likes, dislikes int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.likes, rc.dislikes
}

func (rc *RatingControl) Rating() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.rating
}

func (rc *RatingControl) State() ToggleState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// add adjusts one counter, clamping at zero so a reconcile against stale
// server counts can never show a negative total.
func (rc *RatingControl) add(kind string, delta int) {
	switch kind {
	case RatingLike:
		rc.likes += delta
		if rc.likes < 0 {
			rc.likes = 0
		}
	case RatingDislike:
		rc.dislikes += delta
		if rc.dislikes < 0 {
			rc.dislikes = 0
		}
	}
}
