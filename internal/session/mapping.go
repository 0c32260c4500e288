package session

import "github.com/pscheid92/coplay/internal/domain"

// controllerMappings is the static lookup of available targets. Slot capacity
// and frame size are fixed per target; changing a session's target requires
// stop and restart, never a live resize.
var controllerMappings = map[domain.TargetKind]domain.ControllerMapping{
	"nes":     {Target: "nes", SlotCapacity: 2, FrameBytes: 2, Buttons: 8, Axes: 0},
	"snes":    {Target: "snes", SlotCapacity: 2, FrameBytes: 3, Buttons: 12, Axes: 0},
	"gb":      {Target: "gb", SlotCapacity: 1, FrameBytes: 2, Buttons: 8, Axes: 0},
	"gba":     {Target: "gba", SlotCapacity: 1, FrameBytes: 3, Buttons: 10, Axes: 0},
	"genesis": {Target: "genesis", SlotCapacity: 2, FrameBytes: 3, Buttons: 11, Axes: 0},
	"n64":     {Target: "n64", SlotCapacity: 4, FrameBytes: 8, Buttons: 14, Axes: 2},
}

// Mapping returns the controller mapping for a target kind.
func Mapping(target domain.TargetKind) (domain.ControllerMapping, error) {
	m, ok := controllerMappings[target]
	if !ok {
		return domain.ControllerMapping{}, domain.ErrInvalidTarget
	}
	return m, nil
}

// Targets lists all known target kinds.
func Targets() []domain.TargetKind {
	kinds := make([]domain.TargetKind, 0, len(controllerMappings))
	for k := range controllerMappings {
		kinds = append(kinds, k)
	}
	return kinds
}
