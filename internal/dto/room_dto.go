package dto

// RoomView is a resolved catalog entry. Occupancy is the membership count; StoredOccupancy is
// the advisory counter of the materialized row (nil for inferred rooms).
type RoomView struct {
	ID              *uint  `json:"id"`
	HostelName      string `json:"hostel_name"`
	RoomNumber      string `json:"room_number"`
	Capacity        int    `json:"capacity"`
	Occupancy       int    `json:"occupancy"`
	StoredOccupancy *int   `json:"stored_occupancy"`
	Available       int    `json:"available"`
	Materialized    bool   `json:"materialized"`
}

// IsFull reports whether no bed is left.
func (r RoomView) IsFull() bool {
	return r.Occupancy >= r.Capacity
}

// RoomUpsertRequest materializes a room or changes its capacity.
type RoomUpsertRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1,max=64"`
}

// RoomAllocateRequest assigns a student to a room.
type RoomAllocateRequest struct {
	StudentID  string `json:"student_id"`
	RoomNumber string `json:"room_number"`
}

// AllocationResponse reports the outcome of an allocation. Warnings list counter
// maintenance steps that failed after the assignment was written.
type AllocationResponse struct {
	StudentID     string   `json:"student_id"`
	RoomNumber    string   `json:"room_number"`
	PreviousRoom  *string  `json:"previous_room"`
	Noop          bool     `json:"noop"`
	CounterSynced bool     `json:"counter_synced"`
	Warnings      []string `json:"warnings"`
}

// RoomReconcileResponse lists rooms whose stored counters were rewritten.
type RoomReconcileResponse struct {
	Updated []RoomView `json:"updated"`
}
