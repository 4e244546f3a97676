package http

import (
	"context"
	"net/http"

	"loanflow/internal/domain/verification"

	"github.com/labstack/echo/v4"
)

// SalaryExtraction turns an uploaded document reference into a parsed
// statement available to later underwriting passes.
type SalaryExtraction interface {
	Extract(ctx context.Context, customerID, fileRef string) (string, *verification.SalaryStatement, error)
}

type SalaryHandler struct{ extractor SalaryExtraction }

func NewSalaryHandler(extractor SalaryExtraction) *SalaryHandler {
	return &SalaryHandler{extractor: extractor}
}

type extractSalaryReq struct {
	CustomerID string `json:"customer_id" validate:"required,hex32"`
	FileRef    string `json:"file_ref"    validate:"omitempty,max=128"`
}

func (h *SalaryHandler) ExtractSalary(c echo.Context) error {
	var req extractSalaryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	fileRef, stmt, err := h.extractor.Extract(c.Request().Context(), req.CustomerID, req.FileRef)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"customer_id":  req.CustomerID,
		"file_ref":     fileRef,
		"gross_income": stmt.GrossIncome,
		"net_income":   stmt.NetIncome,
		"employer":     stmt.Employer,
		"parsed":       stmt.Parsed,
	})
}
