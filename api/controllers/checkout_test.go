package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/internal/checkout"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/types"
)

type fakeCheckoutService struct {
	calls  int
	input  checkout.Input
	result *checkout.Result
	err    error
}

func (f *fakeCheckoutService) Execute(_ context.Context, input checkout.Input) (*checkout.Result, error) {
	f.calls++
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func checkoutBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	payload := map[string]any{
		"cart_id": uuid.NewString(),
		"email":   "buyer@example.com",
		"address": map[string]any{
			"name":   "Ada O.",
			"phone":  "+2348012345678",
			"state":  "Lagos",
			"city":   "Ikeja",
			"street": "1 Allen Avenue",
		},
	}
	for k, v := range overrides {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func TestCheckoutInit_Success(t *testing.T) {
	orderID := uuid.New()
	service := &fakeCheckoutService{result: &checkout.Result{
		OrderID:          orderID,
		AuthorizationURL: "https://checkout.paystack.com/abc",
		Reference:        "MDV-REF-1",
		Totals:           types.OrderTotals{SubtotalKobo: 500000, TotalKobo: 520000, ShippingFeeKobo: 20000},
	}}
	handler := CheckoutInit(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/init", bytes.NewReader(checkoutBody(t, nil)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected one Execute call, got %d", service.calls)
	}
	if service.input.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", service.input.Email)
	}
	if service.input.Address.State != "Lagos" {
		t.Fatalf("unexpected state %q", service.input.Address.State)
	}

	var envelope struct {
		Data checkout.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID {
		t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
	}
	if envelope.Data.Reference != "MDV-REF-1" {
		t.Fatalf("unexpected reference %q", envelope.Data.Reference)
	}
}

func TestCheckoutInit_ValidatesBody(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "missing email", body: checkoutBody(t, map[string]any{"email": ""})},
		{name: "bad cart id", body: checkoutBody(t, map[string]any{"cart_id": "not-a-uuid"})},
		{name: "missing address field", body: checkoutBody(t, map[string]any{"address": map[string]any{"name": "Ada O."}})},
		{name: "unknown field", body: checkoutBody(t, map[string]any{"unexpected": true})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := &fakeCheckoutService{}
			handler := CheckoutInit(service, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/init", bytes.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
			if service.calls != 0 {
				t.Fatalf("service must not run on invalid input")
			}
		})
	}
}

func TestCheckoutInit_ServiceErrorsPassThrough(t *testing.T) {
	service := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")}
	handler := CheckoutInit(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/init", bytes.NewReader(checkoutBody(t, nil)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}
