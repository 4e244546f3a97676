package http

import (
	"net/http"

	"loanflow/internal/domain/customer"
	"loanflow/internal/domain/verification"

	"github.com/labstack/echo/v4"
)

type CustomerHandler struct {
	customers customer.Repository
	bureau    verification.CreditBureau
}

func NewCustomerHandler(customers customer.Repository, bureau verification.CreditBureau) *CustomerHandler {
	return &CustomerHandler{customers: customers, bureau: bureau}
}

func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	customerID := c.Param("customer_id")
	cust, err := h.customers.GetByCustomerID(c.Request().Context(), customerID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *CustomerHandler) GetCustomerCredit(c echo.Context) error {
	customerID := c.Param("customer_id")
	rep, err := h.bureau.Report(c.Request().Context(), customerID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"customer_id":        rep.CustomerID,
		"credit_score":       rep.Score,
		"pre_approved_limit": rep.PreApprovedLimit,
	})
}
