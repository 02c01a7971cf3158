package event

import "testing"

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		expected bool
	}{
		{"created", TypeInstanceCreated, true},
		{"escalated", TypeInstanceEscalated, true},
		{"gate", TypeGateTransitioned, true},
		{"unknown", Type("instance.vaporized"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	evt := New(TypeInstanceCreated, "inst-1", map[string]interface{}{"level": 1})

	if evt.ID == "" {
		t.Error("New() should generate an ID")
	}
	if evt.CorrelationID == "" {
		t.Error("New() should generate a correlation ID")
	}
	if evt.InstanceID != "inst-1" {
		t.Errorf("InstanceID = %v", evt.InstanceID)
	}
	if evt.GetPayloadInt("level") != 1 {
		t.Errorf("GetPayloadInt(level) = %v, want 1", evt.GetPayloadInt("level"))
	}
}

func TestEvent_WithPayloadDoesNotMutateOriginal(t *testing.T) {
	evt := New(TypeInstanceApproved, "inst-2", map[string]interface{}{"actor": "u1"})
	clone := evt.WithPayload("decision", "approve")

	if _, ok := evt.Payload["decision"]; ok {
		t.Error("WithPayload() mutated the original event")
	}
	if clone.GetPayloadString("decision") != "approve" {
		t.Errorf("clone payload = %v", clone.Payload)
	}
	if clone.GetPayloadString("actor") != "u1" {
		t.Error("WithPayload() should carry existing entries")
	}
	if clone.ID != evt.ID || clone.CorrelationID != evt.CorrelationID {
		t.Error("WithPayload() should preserve identity fields")
	}
}

func TestNewWithCorrelation(t *testing.T) {
	evt := NewWithCorrelation(TypeLevelAdvanced, "inst-3", nil, "corr-1")
	if evt.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %v, want corr-1", evt.CorrelationID)
	}
}
