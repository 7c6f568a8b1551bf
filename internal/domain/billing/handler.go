package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maternacare/maternacare/internal/platform/auth"
	"github.com/maternacare/maternacare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "billing"))

	g.POST("/billing/bills/open", h.OpenBill)
	g.GET("/billing/bills", h.ListBills)
	g.GET("/billing/bills/:id", h.GetBill)
	g.POST("/billing/bills/:id/items", h.AddCharge)
	g.POST("/billing/bills/:id/payments", h.AddPayment)
	g.POST("/billing/bills/:id/discount", h.ApplyDiscount)
	g.POST("/billing/bills/:id/recalculate", h.Recalculate)
	g.POST("/billing/bills/:id/cancel", h.CancelBill)
	g.POST("/billing/payments", h.ProcessPayment)
	g.POST("/billing/admissions/:id/accrual", h.ReconcileAccrual)
	g.GET("/billing/patients/:id/statement", h.GetStatement)
}

// httpError translates ledger errors into HTTP responses. Domain-rule
// rejections go out as 422 with the live amounts so the cashier screen can
// show what is actually owed.
func httpError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	}
	var pe *PaymentExceedsBalanceError
	if errors.As(err, &pe) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"code":    "payment_exceeds_balance",
			"message": pe.Error(),
			"balance": pe.Balance,
		})
	}
	var de *DiscountExceedsSubtotalError
	if errors.As(err, &de) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"code":     "discount_exceeds_subtotal",
			"message":  de.Error(),
			"subtotal": de.Subtotal,
		})
	}
	if errors.Is(err, ErrNoOpenBill) {
		return echo.NewHTTPError(http.StatusNotFound, map[string]interface{}{
			"code":    "no_open_bill",
			"message": "patient has no open bill",
		})
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) OpenBill(c echo.Context) error {
	var body struct {
		PatientID  uuid.UUID `json:"patient_id"`
		FacilityID uuid.UUID `json:"facility_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	bill, err := h.svc.OpenOrCreateBill(ctx, body.PatientID, body.FacilityID, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) ListBills(c echo.Context) error {
	pg := pagination.FromContext(c)

	patientID := uuid.Nil
	if v := c.QueryParam("patient_id"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = pid
	}

	bills, total, err := h.svc.ListBills(c.Request().Context(), patientID, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bills, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bill, err := h.svc.GetBill(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) AddCharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in ChargeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.AddCharge(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, bill)
}

func (h *Handler) AddPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.AddPayment(ctx, id, in, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	var body struct {
		PatientID  uuid.UUID `json:"patient_id"`
		FacilityID uuid.UUID `json:"facility_id"`
		PaymentInput
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.ProcessPayment(ctx, body.PatientID, body.FacilityID, body.PaymentInput, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ApplyDiscount(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in DiscountInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.ApplyDiscount(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) Recalculate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bill, err := h.svc.RecalculateTotals(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) CancelBill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.CancelBill(c.Request().Context(), id, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) ReconcileAccrual(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	bill, err := h.svc.ReconcileRoomAccrual(c.Request().Context(), id)
	if errors.Is(err, ErrNoPricedRoom) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "skipped",
			"reason": "admission has no priced room",
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) GetStatement(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	facilityID, err := uuid.Parse(c.QueryParam("facility_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "facility_id is required")
	}
	st, err := h.svc.BuildStatement(c.Request().Context(), patientID, facilityID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}
