package http

import (
	"context"
	"errors"
	"net/http"

	"loanflow/internal/domain/application"
	"loanflow/internal/domain/customer"
	"loanflow/internal/usecase/orchestrator"

	"github.com/labstack/echo/v4"
)

// Workflow is the slice of the orchestrator the handlers need; tests plug
// in a mock.
type Workflow interface {
	Start(ctx context.Context, in orchestrator.StartInput) (*orchestrator.StatusDTO, error)
	Advance(ctx context.Context, in orchestrator.AdvanceInput) (*orchestrator.StatusDTO, error)
	Status(ctx context.Context, applicationID string) (*orchestrator.StatusDTO, error)
	Cancel(ctx context.Context, applicationID string) (*orchestrator.StatusDTO, error)
}

type ApplicationHandler struct{ wf Workflow }

func NewApplicationHandler(wf Workflow) *ApplicationHandler { return &ApplicationHandler{wf: wf} }

type startApplicationReq struct {
	CustomerID   string  `json:"customer_id"   validate:"required,hex32"`
	Amount       float64 `json:"amount"        validate:"required,gte=10000,dec2"`
	TenureMonths int     `json:"tenure_months" validate:"required,gte=6,lte=84"`
	AnnualRate   float64 `json:"annual_rate"   validate:"omitempty,gte=0,lte=100,dec2"`
	Purpose      string  `json:"purpose"`
}

func (h *ApplicationHandler) StartApplication(c echo.Context) error {
	var req startApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.wf.Start(c.Request().Context(), orchestrator.StartInput{
		CustomerID:   req.CustomerID,
		Amount:       req.Amount,
		TenureMonths: req.TenureMonths,
		AnnualRate:   req.AnnualRate,
		Purpose:      req.Purpose,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type advanceApplicationReq struct {
	AgentType     string `json:"agent_type"      validate:"required,oneof=sales verification underwriting sanction"`
	Outcome       string `json:"outcome"         validate:"omitempty,oneof=success failure"`
	Reason        string `json:"reason"`
	StatedName    string `json:"stated_name"`
	StatedPhone   string `json:"stated_phone"`
	StatedAddress string `json:"stated_address"`
	SalaryFileRef string `json:"salary_file_ref"`
}

func (h *ApplicationHandler) AdvanceApplication(c echo.Context) error {
	applicationID := c.Param("application_id")
	if applicationID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_id path param"})
	}
	var req advanceApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.wf.Advance(c.Request().Context(), orchestrator.AdvanceInput{
		ApplicationID: applicationID,
		AgentType:     req.AgentType,
		Outcome:       req.Outcome,
		Reason:        req.Reason,
		StatedName:    req.StatedName,
		StatedPhone:   req.StatedPhone,
		StatedAddress: req.StatedAddress,
		SalaryFileRef: req.SalaryFileRef,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) GetApplication(c echo.Context) error {
	applicationID := c.Param("application_id")
	dto, err := h.wf.Status(c.Request().Context(), applicationID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) CancelApplication(c echo.Context) error {
	applicationID := c.Param("application_id")
	dto, err := h.wf.Cancel(c.Request().Context(), applicationID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// mapDomainError translates the domain error taxonomy to HTTP codes.
// Ordering conflicts and stale applications are 409s: the resource exists
// but refuses the transition.
func mapDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, application.ErrNotFound), errors.Is(err, customer.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, application.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrOutOfOrderTransition),
		errors.Is(err, application.ErrStaleApplication):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrVerificationUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
