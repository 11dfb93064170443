package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budget/internal/core"
	"budget/internal/jsonstore"
	"budget/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := jsonstore.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cats := core.CategorySet{
		{Name: "Necessities", Percentage: 60},
		{Name: "Discretionary", Percentage: 40},
	}
	if err := st.SaveCategories(context.Background(), cats); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	budget := services.NewBudgetService(st, nil)
	imports := services.NewImportService(st, nil)

	s := NewServer(":0", budget, imports, Options{})
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})
	return ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp, decoded
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCreateMonthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/months", `{"key":"2026-08","income":"5000.00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", resp.StatusCode, body)
	}
	if body["key"] != "2026-08" {
		t.Errorf("key = %v, want 2026-08", body["key"])
	}
	if body["total_income"] != "5000.00" {
		t.Errorf("total_income = %v, want 5000.00", body["total_income"])
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/months", `{"key":"2026-08","income":"100.00"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/months", `{"key":"August","income":"100.00"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad key status = %d, want 400", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/months", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	months, ok := body["months"].([]any)
	if !ok || len(months) != 1 || months[0] != "2026-08" {
		t.Errorf("months = %v", body["months"])
	}
}

func TestExpenseAndSummaryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/months", `{"key":"2026-08","income":"5000.00"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create month failed: %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/months/2026-08/expenses",
		`{"category":"Necessities","description":"WHOLE FOODS #1","amount":"45.99","date":"2026-08-14"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("commit status = %d, body = %v", resp.StatusCode, body)
	}
	if body["id"] == "" || body["id"] == nil {
		t.Error("expected generated expense id")
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/months/2026-08/expenses",
		`{"category":"Vacation","description":"HOTEL","amount":"10.00"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown category status = %d, want 400", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/months/2026-08/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	if body["total_spent"] != "45.99" {
		t.Errorf("total_spent = %v, want 45.99", body["total_spent"])
	}
	if body["expense_count"] != float64(1) {
		t.Errorf("expense_count = %v, want 1", body["expense_count"])
	}

	// A second expense must show up even though the summary was cached.
	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/months/2026-08/expenses",
		`{"category":"Discretionary","description":"NETFLIX","amount":"15.99"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("second commit failed: %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/months/2026-08/summary", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	if body["total_spent"] != "61.98" {
		t.Errorf("total_spent after invalidation = %v, want 61.98", body["total_spent"])
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/months/2030-01/summary", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown month summary status = %d, want 404", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/months", `{"key":"2026-08","income":"5000.00"}`); resp.StatusCode != http.StatusCreated {
		t.Fatal("create month failed")
	}

	csv := "Description,Amount,Posting Date,Type\n" +
		"WHOLE FOODS #123,-45.99,08/14/2026,DEBIT_CARD\n" +
		"LOCAL BAKERY,-8.50,08/16/2026,DEBIT_CARD\n"

	resp, err := http.Post(ts.URL+"/months/2026-08/import", "text/csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	var result importDTO
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode import result: %v", err)
	}
	if result.Total != 2 || result.Imported != 1 || result.Unresolved != 1 {
		t.Fatalf("result = %+v", result)
	}

	// Resolve the bakery row, which also teaches the categorizer.
	resp2, body := doJSON(t, http.MethodPost, ts.URL+"/months/2026-08/resolve",
		`{"description":"LOCAL BAKERY","amount":"8.50","date":"08/16/2026","category":"Discretionary","merchant":"LOCAL BAKERY"}`)
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("resolve status = %d, body = %v", resp2.StatusCode, body)
	}
	if body["category"] != "Discretionary" {
		t.Errorf("resolved category = %v", body["category"])
	}
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/categories", `{"name":"Savings","percentage":10}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add category status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/categories", `{"name":"Savings","percentage":5}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate category status = %d, want 409", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/categories/Ghost", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("remove missing status = %d, want 404", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/categories")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	defer resp.Body.Close()
	var cats []categoryDTO
	if err := json.NewDecoder(resp.Body).Decode(&cats); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(cats) != 3 || cats[2].Name != "Savings" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{
		`{"key":"2026-07","income":"4000.00"}`,
		`{"key":"2026-08","income":"6000.00"}`,
	} {
		if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/months", body); resp.StatusCode != http.StatusCreated {
			t.Fatal("create month failed")
		}
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/overview", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview status = %d", resp.StatusCode)
	}
	if body["months_tracked"] != float64(2) {
		t.Errorf("months_tracked = %v, want 2", body["months_tracked"])
	}
	if body["average_income"] != "5000.00" {
		t.Errorf("average_income = %v, want 5000.00", body["average_income"])
	}
}
