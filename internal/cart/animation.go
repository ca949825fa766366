package cart

// Phase is the visual phase of an element whose visibility follows a
// quantity: the add-to-cart stepper or the header badge.
type Phase string

const (
	PhaseHidden   Phase = "hidden"
	PhaseEntering Phase = "entering"
	PhaseVisible  Phase = "visible"
	PhaseExiting  Phase = "exiting"
)

// PhaseFor maps the previous and current quantity to a phase. It has no
// effect on reconciliation.
func PhaseFor(prev, cur int) Phase {
	switch {
	case prev <= 0 && cur > 0:
		return PhaseEntering
	case prev > 0 && cur <= 0:
		return PhaseExiting
	case cur > 0:
		return PhaseVisible
	default:
		return PhaseHidden
	}
}
