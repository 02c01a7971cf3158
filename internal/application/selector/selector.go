package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// ErrNoApplicableWorkflow is returned when no active definition matches a
// request. This is a configuration gap surfaced to the caller, not retried.
var ErrNoApplicableWorkflow = errors.New("no applicable workflow definition")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Selector picks the single applicable workflow definition for a request.
type Selector struct {
	definitions port.DefinitionRepository
	logger      Logger
}

// New creates a workflow selector.
func New(definitions port.DefinitionRepository, logger Logger) *Selector {
	return &Selector{
		definitions: definitions,
		logger:      logger,
	}
}

// Select returns the first active definition, in descending priority then
// recency order, whose requester-role filter and condition conjunction both
// hold. A definition with no conditions always matches.
func (s *Selector) Select(ctx context.Context, requestType, requesterRole string, attributes map[string]interface{}) (*entity.WorkflowDefinition, error) {
	definitions, err := s.definitions.ListActiveByRequestType(ctx, requestType)
	if err != nil {
		return nil, fmt.Errorf("list definitions for %s: %w", requestType, err)
	}

	for _, def := range definitions {
		if def.RequesterRole != "" && def.RequesterRole != requesterRole {
			continue
		}
		if !s.conditionsHold(def, attributes) {
			continue
		}

		s.logger.Info("Workflow definition selected",
			"request_type", requestType,
			"definition_id", def.ID,
			"priority", def.Priority,
		)
		return def, nil
	}

	return nil, fmt.Errorf("%w: request type %s", ErrNoApplicableWorkflow, requestType)
}

func (s *Selector) conditionsHold(def *entity.WorkflowDefinition, attributes map[string]interface{}) bool {
	for _, cond := range def.Conditions {
		if !evaluate(cond, attributes) {
			return false
		}
	}
	return true
}
