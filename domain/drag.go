package domain

import (
	"bytes"
	"encoding/json"
)

// LaneRef names a lane by its droppable id, which is the status text.
type LaneRef struct {
	LaneID string `json:"laneId"`
}

// DragOutcome is what the drag gesture reports when a card is released.
// Destination is nil when the card was dropped outside every lane.
type DragOutcome struct {
	Source      LaneRef  `json:"source"`
	Destination *LaneRef `json:"destination"`
	DraggedID   string   `json:"draggedId"`
}

// UnmarshalJSON accepts draggedId as either a string or a number.
func (o *DragOutcome) UnmarshalJSON(b []byte) error {
	var raw struct {
		Source      LaneRef         `json:"source"`
		Destination *LaneRef        `json:"destination"`
		DraggedID   json.RawMessage `json:"draggedId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.Source = raw.Source
	o.Destination = raw.Destination
	o.DraggedID = ""
	id := bytes.TrimSpace(raw.DraggedID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	if id[0] == '"' {
		return json.Unmarshal(id, &o.DraggedID)
	}
	var n json.Number
	if err := json.Unmarshal(id, &n); err != nil {
		return err
	}
	o.DraggedID = n.String()
	return nil
}

// MoveRequest asks the store to put a task into another lane.
type MoveRequest struct {
	ID     TaskID
	Status Status
}

// Reconcile turns a drag outcome into at most one move. Cancelled drags,
// drops into the same lane and unknown lanes or ids produce nothing; order
// inside a lane is never stored.
func Reconcile(o DragOutcome) (MoveRequest, bool) {
	if o.Destination == nil {
		return MoveRequest{}, false
	}
	if o.Source.LaneID == o.Destination.LaneID {
		return MoveRequest{}, false
	}
	status, ok := ParseStatus(o.Destination.LaneID)
	if !ok {
		return MoveRequest{}, false
	}
	id, err := ParseTaskID(o.DraggedID)
	if err != nil {
		return MoveRequest{}, false
	}
	return MoveRequest{ID: id, Status: status}, true
}
