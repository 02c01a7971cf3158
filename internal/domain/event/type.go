package event

// Type identifies the type of domain event
type Type string

const (
	TypeInstanceCreated   Type = "instance.created"
	TypeInstanceApproved  Type = "instance.approved"
	TypeInstanceRejected  Type = "instance.rejected"
	TypeInstanceCancelled Type = "instance.cancelled"
	TypeInstanceEscalated Type = "instance.escalated"
	TypeLevelAdvanced     Type = "instance.level_advanced"
	TypeGateTransitioned  Type = "gate.transitioned"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeInstanceCreated,
		TypeInstanceApproved,
		TypeInstanceRejected,
		TypeInstanceCancelled,
		TypeInstanceEscalated,
		TypeLevelAdvanced,
		TypeGateTransitioned:
		return true
	default:
		return false
	}
}
