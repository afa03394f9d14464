package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cleanup/dashboard/internal/auth"
	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret-for-handlers"

// testUser identifies the dashboard user a request is made as.
type testUser struct {
	ID    uuid.UUID
	Store string
	Role  string
}

func newUser(store, role string) testUser {
	return testUser{ID: uuid.New(), Store: store, Role: role}
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, user testUser) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, user.ID, user.Store, user.Role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func testCatalog() pricing.Catalog {
	return pricing.Catalog{
		"1": {
			ID:   "1",
			Name: "Dry Clean",
			Garments: map[string]pricing.Garment{
				"10": {ID: "10", Name: "Shirt", PriceMax: decimal.NewFromInt(100)},
				"11": {ID: "11", Name: "Tie", PriceMax: decimal.NewFromInt(50)},
			},
		},
		"2": {
			ID:   "2",
			Name: "Bleach",
			Garments: map[string]pricing.Garment{
				"20": {ID: "20", Name: "Towel", PriceMax: decimal.NewFromInt(30)},
			},
		},
	}
}
