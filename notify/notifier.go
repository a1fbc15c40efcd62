package notify

import (
	"fmt"
	"strings"

	"qserveu/models"
)

// Alert kinds, used for metrics labels and tests.
const (
	KindSkipped   = "skipped"
	KindCancelled = "cancelled"
	KindServing   = "serving"
	KindPosition  = "position"
	KindNext      = "next"
)

// skippedMarker is the text the staff dispatcher writes into a ticket's notes
// when the visitor is moved to the back of the queue.
const skippedMarker = "Skipped"

// fallbackCancelReason is shown when a cancelled ticket carries no note.
const fallbackCancelReason = "Cancelled by staff"

// Alert is one human-readable notification derived from a snapshot change.
type Alert struct {
	Kind  string
	Title string
	Body  string
}

// State is what the notifier remembers between poll ticks: the last snapshot
// it reacted to. It lives in process memory only; a restart forgets history
// and may repeat an alert that was already shown once.
type State struct {
	LastStatus      string
	LastPeopleAhead int
	LastNote        string
}

// NewState returns the sentinel state used before the first observation.
func NewState() *State {
	return &State{LastPeopleAhead: -1}
}

// Notifier turns consecutive snapshots into discrete alerts. It is a pure
// state machine over its injected State: it reads no remote data and mutates
// nothing but that State, which makes it testable with synthetic snapshots.
type Notifier struct {
	state *State
}

func NewNotifier(state *State) *Notifier {
	if state == nil {
		state = NewState()
	}
	return &Notifier{state: state}
}

// Evaluate compares the snapshot against the remembered state and returns the
// alerts this tick produces. Rules are checked in priority order and the
// first match wins, with one exception: a position change and "you are next"
// are orthogonal signals and may both fire on the same tick. Whatever fired,
// the remembered state is replaced by the snapshot before returning.
func (n *Notifier) Evaluate(snap models.Snapshot) []Alert {
	st := n.state
	var alerts []Alert

	switch {
	case strings.Contains(snap.Note, skippedMarker) && snap.Note != st.LastNote:
		alerts = append(alerts, Alert{
			Kind:  KindSkipped,
			Title: "You were Skipped",
			Body:  fmt.Sprintf("Queue %s: You were not around, so you were moved to the back.", snap.Number),
		})

	case snap.Status == models.StatusCancelled && st.LastStatus != models.StatusCancelled:
		reason := snap.Note
		if reason == "" {
			reason = fallbackCancelReason
		}
		alerts = append(alerts, Alert{
			Kind:  KindCancelled,
			Title: "Queue Cancelled",
			Body:  fmt.Sprintf("Queue %s was cancelled. Reason: %s", snap.Number, reason),
		})

	case snap.Status == models.StatusServing && st.LastStatus != models.StatusServing:
		alerts = append(alerts, Alert{
			Kind:  KindServing,
			Title: "IT'S YOUR TURN!",
			Body:  fmt.Sprintf("Queue %s - Please proceed to the counter immediately!", snap.Number),
		})

	case snap.Status == models.StatusWaiting:
		// The first observation establishes a baseline and stays silent.
		if snap.PeopleAhead != st.LastPeopleAhead && st.LastStatus == models.StatusWaiting {
			alerts = append(alerts, Alert{
				Kind:  KindPosition,
				Title: "Queue Update",
				Body:  fmt.Sprintf("Queue: %s | %d people ahead of you.", snap.Number, snap.PeopleAhead),
			})
		}
		if snap.PeopleAhead == 1 && st.LastPeopleAhead != 1 {
			alerts = append(alerts, Alert{
				Kind:  KindNext,
				Title: "You are Next!",
				Body:  "Get ready! There is only 1 person ahead of you.",
			})
		}
	}

	st.LastStatus = snap.Status
	st.LastPeopleAhead = snap.PeopleAhead
	st.LastNote = snap.Note
	return alerts
}
