package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentoak/approval-engine/internal/application/chain"
	"github.com/talentoak/approval-engine/internal/application/engine"
	"github.com/talentoak/approval-engine/internal/application/gate"
	"github.com/talentoak/approval-engine/internal/application/selector"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// ApprovalEngine is the engine surface the HTTP layer exposes.
type ApprovalEngine interface {
	CreateInstance(ctx context.Context, requestType, requestID, requesterID string, attributes map[string]interface{}) (*entity.ApprovalInstance, error)
	ProcessApproval(ctx context.Context, instanceID, actorID, decision, comment string) (*entity.ApprovalInstance, error)
	Cancel(ctx context.Context, instanceID, actorID, reason string) (*entity.ApprovalInstance, error)
	GetInstance(ctx context.Context, instanceID string) (*entity.ApprovalInstance, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.ApprovalInstance, error)
	GetCurrentApprover(ctx context.Context, instanceID string) (*entity.ChainStep, error)
	GetHistory(ctx context.Context, instanceID string) ([]*entity.HistoryEntry, error)
	RunEscalationSweep(ctx context.Context) ([]string, error)
}

// OnboardingGate is the gate surface the HTTP layer exposes.
type OnboardingGate interface {
	Create(ctx context.Context, candidateID, position, department, requesterID string) (*entity.OnboardingRecord, error)
	Get(ctx context.Context, id string) (*entity.OnboardingRecord, error)
	GetAudit(ctx context.Context, id string) ([]*entity.OnboardingAudit, error)
	RequestApproval(ctx context.Context, id, actorID string, attributes map[string]interface{}) (*entity.ApprovalInstance, error)
	Transition(ctx context.Context, id, newStatus, actorID, description string, metadata map[string]interface{}) (*entity.OnboardingRecord, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine     ApprovalEngine
	onboarding OnboardingGate
	logger     Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(approvalEngine ApprovalEngine, onboarding OnboardingGate, logger Logger) *Handlers {
	return &Handlers{
		engine:     approvalEngine,
		onboarding: onboarding,
		logger:     logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateInstanceRequest is the body of POST /api/instances.
type CreateInstanceRequest struct {
	RequestType string                 `json:"request_type" binding:"required"`
	RequestID   string                 `json:"request_id" binding:"required"`
	RequesterID string                 `json:"requester_id" binding:"required"`
	Attributes  map[string]interface{} `json:"attributes"`
}

// DecisionRequest is the body of POST /api/instances/:id/decision.
type DecisionRequest struct {
	ActorID  string `json:"actor_id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

// CancelRequest is the body of POST /api/instances/:id/cancel.
type CancelRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason"`
}

// CreateOnboardingRequest is the body of POST /api/onboarding.
type CreateOnboardingRequest struct {
	CandidateID string `json:"candidate_id" binding:"required"`
	Position    string `json:"position"`
	Department  string `json:"department"`
	RequesterID string `json:"requester_id" binding:"required"`
}

// RequestApprovalRequest is the body of POST /api/onboarding/:id/request-approval.
type RequestApprovalRequest struct {
	ActorID    string                 `json:"actor_id" binding:"required"`
	Attributes map[string]interface{} `json:"attributes"`
}

// TransitionRequest is the body of POST /api/onboarding/:id/transition.
type TransitionRequest struct {
	Status      string                 `json:"status" binding:"required"`
	ActorID     string                 `json:"actor_id" binding:"required"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateInstance handles POST /api/instances
func (h *Handlers) CreateInstance(c *gin.Context) {
	var req CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	instance, err := h.engine.CreateInstance(c.Request.Context(), req.RequestType, req.RequestID, req.RequesterID, req.Attributes)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: instance})
}

// GetInstance handles GET /api/instances/:id
func (h *Handlers) GetInstance(c *gin.Context) {
	instance, err := h.engine.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: instance})
}

// ListOpenInstances handles GET /api/instances
func (h *Handlers) ListOpenInstances(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	instances, err := h.engine.ListOpen(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: instances})
}

// GetHistory handles GET /api/instances/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.engine.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// GetCurrentApprover handles GET /api/instances/:id/approver
func (h *Handlers) GetCurrentApprover(c *gin.Context) {
	step, err := h.engine.GetCurrentApprover(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: step})
}

// ProcessDecision handles POST /api/instances/:id/decision
func (h *Handlers) ProcessDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	instance, err := h.engine.ProcessApproval(c.Request.Context(), c.Param("id"), req.ActorID, req.Decision, req.Comment)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: instance})
}

// CancelInstance handles POST /api/instances/:id/cancel
func (h *Handlers) CancelInstance(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	instance, err := h.engine.Cancel(c.Request.Context(), c.Param("id"), req.ActorID, req.Reason)
	if err != nil {
		h.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: instance})
}

// RunSweep handles POST /api/sweep
func (h *Handlers) RunSweep(c *gin.Context) {
	escalated, err := h.engine.RunEscalationSweep(c.Request.Context())
	if err != nil {
		h.logger.Error("Escalation sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "escalation sweep failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"escalated": escalated}})
}

// CreateOnboarding handles POST /api/onboarding
func (h *Handlers) CreateOnboarding(c *gin.Context) {
	var req CreateOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	record, err := h.onboarding.Create(c.Request.Context(), req.CandidateID, req.Position, req.Department, req.RequesterID)
	if err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: record})
}

// GetOnboarding handles GET /api/onboarding/:id
func (h *Handlers) GetOnboarding(c *gin.Context) {
	record, err := h.onboarding.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeGateError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// GetOnboardingAudit handles GET /api/onboarding/:id/audit
func (h *Handlers) GetOnboardingAudit(c *gin.Context) {
	audit, err := h.onboarding.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeGateError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: audit})
}

// RequestOnboardingApproval handles POST /api/onboarding/:id/request-approval
func (h *Handlers) RequestOnboardingApproval(c *gin.Context) {
	var req RequestApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	instance, err := h.onboarding.RequestApproval(c.Request.Context(), c.Param("id"), req.ActorID, req.Attributes)
	if err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: instance})
}

// TransitionOnboarding handles POST /api/onboarding/:id/transition
func (h *Handlers) TransitionOnboarding(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	record, err := h.onboarding.Transition(c.Request.Context(), c.Param("id"), req.Status, req.ActorID, req.Description, req.Metadata)
	if err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeEngineError maps engine errors to HTTP status codes.
func (h *Handlers) writeEngineError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, engine.ErrInstanceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrStaleInstanceState),
		errors.Is(err, engine.ErrDuplicatePending),
		errors.Is(err, engine.ErrNoPendingApprover):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInvalidDecision),
		errors.Is(err, selector.ErrNoApplicableWorkflow),
		errors.Is(err, chain.ErrUnresolvedApprover),
		errors.Is(err, chain.ErrEmptyWorkflow):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("Unhandled engine error", "error", err)
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// writeGateError maps gate errors to HTTP status codes.
func (h *Handlers) writeGateError(c *gin.Context, err error) {
	var invalid *gate.InvalidTransitionError
	switch {
	case errors.Is(err, gate.ErrOnboardingNotFound):
		status := http.StatusNotFound
		c.JSON(status, Response{Success: false, Error: err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		// approval creation errors bubble up through RequestApproval
		h.writeEngineError(c, err)
	}
}
