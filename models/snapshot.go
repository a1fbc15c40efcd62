package models

// Snapshot is the visitor's ticket state as observed at one poll tick. The
// notifier compares consecutive snapshots to detect edge transitions; it
// never reads the store itself.
type Snapshot struct {
	Number      string `json:"queue_number"`
	Status      string `json:"status"`
	PeopleAhead int    `json:"people_ahead"`
	Note        string `json:"note"`
}
