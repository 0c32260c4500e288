package domain

import "time"

// TargetKind identifies which emulation backend a session drives.
// It determines slot capacity and the input frame schema.
type TargetKind string

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	StateActive     SessionState = "active"
	StatePaused     SessionState = "paused"
	StateTerminated SessionState = "terminated"
)

// StateRef is an opaque reference to a save-state blob. The blob itself is
// owned by the persistence collaborator; the coordinator only passes refs.
type StateRef string

// ControllerMapping describes the input surface of a target kind.
// FrameBytes is the exact size of one input frame; anything else is rejected.
type ControllerMapping struct {
	Target       TargetKind `json:"target"`
	SlotCapacity int        `json:"slot_capacity"`
	FrameBytes   int        `json:"frame_bytes"`
	Buttons      int        `json:"buttons"`
	Axes         int        `json:"axes"`
}

// SlotRecord is one numbered player seat. Occupant is empty for a free slot.
type SlotRecord struct {
	SlotIndex int    `json:"slot_index"`
	Occupant  string `json:"occupant,omitempty"`
}

// InputEvent is a single admitted input frame. Events are ephemeral; they are
// forwarded to the emulator and echoed to the channel, never stored.
type InputEvent struct {
	ChannelID  string    `json:"channel_id"`
	UserID     string    `json:"user_id"`
	SlotIndex  int       `json:"slot_index"`
	Payload    []byte    `json:"payload"`
	Seq        uint64    `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
}

// SaveSlot records which save-state index is occupied and by whom last written.
type SaveSlot struct {
	Slot    int       `json:"slot"`
	Ref     StateRef  `json:"ref"`
	SavedBy string    `json:"saved_by"`
	SavedAt time.Time `json:"saved_at"`
}

// StartConfig carries session creation parameters beyond the target kind.
type StartConfig struct {
	RequestedBy string
	Game        string
}

// SessionSummary is a point-in-time snapshot of a session, safe to serialize.
type SessionSummary struct {
	ChannelID      string       `json:"channel_id"`
	Target         TargetKind   `json:"target"`
	State          SessionState `json:"state"`
	Game           string       `json:"game,omitempty"`
	Slots          []SlotRecord `json:"slots"`
	SpectatorCount int          `json:"spectator_count"`
	SaveSlots      []SaveSlot   `json:"save_slots,omitempty"`
	CreatedBy      string       `json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	LastInputAt    time.Time    `json:"last_input_at"`
}

// Status is the service-level view returned by the status operation.
type Status struct {
	Enabled   bool             `json:"enabled"`
	Sessions  []SessionSummary `json:"sessions"`
	Instances []string         `json:"instances,omitempty"`
}

// HistoryEntry is one audit row for a started or stopped session.
type HistoryEntry struct {
	ID        int64      `json:"id"`
	ChannelID string     `json:"channel_id"`
	Target    TargetKind `json:"target"`
	Event     string     `json:"event"`
	Actor     string     `json:"actor,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
