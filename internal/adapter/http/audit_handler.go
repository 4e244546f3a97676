package http

import (
	"context"
	"net/http"

	"loanflow/internal/domain/auditlog"

	"github.com/labstack/echo/v4"
)

// Trail exposes the read-only log queries.
type Trail interface {
	AuditTrail(ctx context.Context, applicationID, agentType, level string) ([]auditlog.AuditLogEntry, error)
	WorkflowTrail(ctx context.Context, applicationID string) ([]auditlog.WorkflowLogEntry, error)
	Messages(ctx context.Context, applicationID string) ([]auditlog.AgentMessage, error)
}

type AuditHandler struct{ trail Trail }

func NewAuditHandler(trail Trail) *AuditHandler { return &AuditHandler{trail: trail} }

func (h *AuditHandler) GetAuditTrail(c echo.Context) error {
	applicationID := c.Param("application_id")
	entries, err := h.trail.AuditTrail(c.Request().Context(), applicationID,
		c.QueryParam("agent_type"), c.QueryParam("level"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"application_id": applicationID,
		"count":          len(entries),
		"entries":        entries,
	})
}

func (h *AuditHandler) GetWorkflowTrail(c echo.Context) error {
	applicationID := c.Param("application_id")
	entries, err := h.trail.WorkflowTrail(c.Request().Context(), applicationID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"application_id": applicationID,
		"count":          len(entries),
		"entries":        entries,
	})
}

func (h *AuditHandler) GetMessages(c echo.Context) error {
	applicationID := c.Param("application_id")
	msgs, err := h.trail.Messages(c.Request().Context(), applicationID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"application_id": applicationID,
		"count":          len(msgs),
		"messages":       msgs,
	})
}
