package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newHandlerTest() (*Handler, *Service, *mockFacts, *echo.Echo) {
	svc, _, facts, _ := newTestService()
	return NewHandler(svc), svc, facts, echo.New()
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestOpenBillHandler(t *testing.T) {
	h, _, _, e := newHandlerTest()

	body := fmt.Sprintf(`{"patient_id":%q,"facility_id":%q}`, uuid.New(), uuid.New())
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/billing/bills/open", body)
	if err := h.OpenBill(c); err != nil {
		t.Fatalf("OpenBill: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var bill Bill
	if err := json.Unmarshal(rec.Body.Bytes(), &bill); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bill.Status != StatusDraft {
		t.Errorf("expected draft, got %s", bill.Status)
	}
	if bill.BillNumber == "" {
		t.Error("expected a bill number")
	}
}

func TestOpenBillHandlerValidation(t *testing.T) {
	h, _, _, e := newHandlerTest()

	c, _ := jsonRequest(e, http.MethodPost, "/api/v1/billing/bills/open", `{}`)
	err := h.OpenBill(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAddChargeHandler(t *testing.T) {
	h, svc, _, e := newHandlerTest()
	b := openBill(t, svc)

	body := `{"service_name":"Newborn screening","quantity":1,"unit_price":1750}`
	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/billing/bills/:id/items", body)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if err := h.AddCharge(c); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var bill Bill
	if err := json.Unmarshal(rec.Body.Bytes(), &bill); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bill.Subtotal != 1750 {
		t.Errorf("expected subtotal 1750, got %.2f", bill.Subtotal)
	}
}

func TestAddChargeHandlerInvalidID(t *testing.T) {
	h, _, _, e := newHandlerTest()

	c, _ := jsonRequest(e, http.MethodPost, "/api/v1/billing/bills/:id/items", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	err := h.AddCharge(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAddPaymentHandlerExceedsBalance(t *testing.T) {
	h, svc, _, e := newHandlerTest()
	b := openBill(t, svc)
	if _, err := svc.AddCharge(context.Background(), b.ID, ChargeInput{ServiceName: "NSD", Quantity: 1, UnitPrice: ptr(1000.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}

	c, _ := jsonRequest(e, http.MethodPost, "/api/v1/billing/bills/:id/payments", `{"amount":2000,"method":"cash"}`)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	err := h.AddPayment(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	msg, ok := httpErr.Message.(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured error body, got %T", httpErr.Message)
	}
	if msg["code"] != "payment_exceeds_balance" {
		t.Errorf("unexpected code %v", msg["code"])
	}
	if msg["balance"] != 1000.0 {
		t.Errorf("expected live balance in error body, got %v", msg["balance"])
	}
}

func TestProcessPaymentHandlerNoOpenBill(t *testing.T) {
	h, _, _, e := newHandlerTest()

	body := fmt.Sprintf(`{"patient_id":%q,"facility_id":%q,"amount":500,"method":"cash"}`, uuid.New(), uuid.New())
	c, _ := jsonRequest(e, http.MethodPost, "/api/v1/billing/payments", body)
	err := h.ProcessPayment(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	msg, ok := httpErr.Message.(map[string]interface{})
	if !ok || msg["code"] != "no_open_bill" {
		t.Errorf("expected no_open_bill code, got %v", httpErr.Message)
	}
}

func TestReconcileAccrualHandlerSkipsUnpricedRoom(t *testing.T) {
	h, _, facts, e := newHandlerTest()
	adm := facts.admit(uuid.New(), uuid.New(), nil, day(2025, 3, 10))

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/billing/admissions/:id/accrual", "")
	c.SetParamNames("id")
	c.SetParamValues(adm.ID.String())
	if err := h.ReconcileAccrual(c); err != nil {
		t.Fatalf("ReconcileAccrual: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "skipped" {
		t.Errorf("expected skipped response, got %v", body)
	}
}

func TestReconcileAccrualHandler(t *testing.T) {
	h, _, facts, e := newHandlerTest()
	room := facts.addRoom("Private 201", ptr(1500.0))
	adm := facts.admit(uuid.New(), uuid.New(), &room.ID, day(2025, 3, 10))

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/billing/admissions/:id/accrual", "")
	c.SetParamNames("id")
	c.SetParamValues(adm.ID.String())
	if err := h.ReconcileAccrual(c); err != nil {
		t.Fatalf("ReconcileAccrual: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var bill Bill
	if err := json.Unmarshal(rec.Body.Bytes(), &bill); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bill.RoomItem() == nil {
		t.Error("expected a room accrual item on the bill")
	}
}

func TestGetStatementHandler(t *testing.T) {
	h, svc, _, e := newHandlerTest()
	patientID, facilityID := uuid.New(), uuid.New()

	b, err := svc.OpenOrCreateBill(context.Background(), patientID, facilityID, uuid.Nil)
	if err != nil {
		t.Fatalf("OpenOrCreateBill: %v", err)
	}
	if _, err := svc.AddCharge(context.Background(), b.ID, ChargeInput{ServiceName: "NSD", Quantity: 1, UnitPrice: ptr(5000.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}

	c, rec := jsonRequest(e, http.MethodGet, "/api/v1/billing/patients/:id/statement?facility_id="+facilityID.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	if err := h.GetStatement(c); err != nil {
		t.Fatalf("GetStatement: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var st Statement
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Totals.Outstanding != 5000 {
		t.Errorf("expected outstanding 5000, got %.2f", st.Totals.Outstanding)
	}
}

func TestGetStatementHandlerMissingFacility(t *testing.T) {
	h, _, _, e := newHandlerTest()

	c, _ := jsonRequest(e, http.MethodGet, "/api/v1/billing/patients/:id/statement", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.GetStatement(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetBillHandlerNotFound(t *testing.T) {
	h, _, _, e := newHandlerTest()

	c, _ := jsonRequest(e, http.MethodGet, "/api/v1/billing/bills/:id", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.GetBill(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
