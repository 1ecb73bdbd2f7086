package types

// Sentinel is the path value that marks an absent resource. It is stored
// and persisted verbatim, never translated to an empty string, so presets
// written by older builds keep loading.
const Sentinel = "None"

// Kind identifies a resource family competing for a slot.
type Kind int

const (
	PrimaryModel Kind = iota
	AltModel
	ImpulseResponse
)

func (k Kind) String() string {
	switch k {
	case PrimaryModel:
		return "primary_model"
	case AltModel:
		return "alt_model"
	case ImpulseResponse:
		return "impulse_response"
	default:
		return "unknown"
	}
}

// Slot is one of the two parallel processing chains whose outputs are
// cross-faded.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotB {
		return "b"
	}
	return "a"
}

// ResourceID is the stable external identifier of one of the six
// addressable resources. These values appear in URLs, persisted presets
// and notifications; do not rename them.
type ResourceID string

const (
	ModelA    ResourceID = "model_a"
	ModelB    ResourceID = "model_b"
	AltModelA ResourceID = "alt_model_a"
	AltModelB ResourceID = "alt_model_b"
	IRA       ResourceID = "ir_a"
	IRB       ResourceID = "ir_b"
)

// AllResources lists the six resources in drain order: primary A, primary B,
// alt A, alt B, IR A, IR B. Loaders and notification passes iterate this
// slice so sibling teardown always happens in a fixed, documented order.
var AllResources = []ResourceID{ModelA, ModelB, AltModelA, AltModelB, IRA, IRB}

// Split returns the kind and slot a resource id addresses.
func (r ResourceID) Split() (Kind, Slot, bool) {
	switch r {
	case ModelA:
		return PrimaryModel, SlotA, true
	case ModelB:
		return PrimaryModel, SlotB, true
	case AltModelA:
		return AltModel, SlotA, true
	case AltModelB:
		return AltModel, SlotB, true
	case IRA:
		return ImpulseResponse, SlotA, true
	case IRB:
		return ImpulseResponse, SlotB, true
	}
	return 0, 0, false
}

// MakeResourceID is the inverse of Split.
func MakeResourceID(k Kind, s Slot) ResourceID {
	switch k {
	case PrimaryModel:
		if s == SlotB {
			return ModelB
		}
		return ModelA
	case AltModel:
		if s == SlotB {
			return AltModelB
		}
		return AltModelA
	default:
		if s == SlotB {
			return IRB
		}
		return IRA
	}
}
