package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caseradar/caseradar/internal/store"
	"github.com/caseradar/caseradar/pkg/dataset"
	"github.com/caseradar/caseradar/pkg/model"
	"github.com/caseradar/caseradar/pkg/predict"
	"github.com/caseradar/caseradar/pkg/registry"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	var x [][]float64
	var y []float64
	for d := 0; d < 20; d++ {
		p := 1.0 + 0.01*float64(d)
		row := dataset.FeatureRow{PriceLag1: p, PriceLag2: p - 0.01, PriceLag3: p - 0.02, AveragePlayers: 800000}
		x = append(x, row.Vector())
		y = append(y, p+0.01)
	}
	e, err := model.Train(model.Config{Kind: model.KindGBDT, Trees: 10}, x, y, dataset.FeatureNames())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	reg := registry.New([]string{"Kilowatt Case", "Gallery Case"})
	p, err := predict.New(e, reg)
	if err != nil {
		t.Fatalf("predict.New: %v", err)
	}

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv, err := New(db, reg, map[model.Kind]*predict.Predictor{model.KindGBDT: p}, model.KindGBDT, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	srv := testServer(t)

	body := `{"item_name":"Kilowatt Case","price_today":1.10,"price_yesterday":1.05,"price_2days_ago":1.00,"average_players":800000,"has_tournament":false}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		ItemName       string  `json:"item_name"`
		PredictedPrice float64 `json:"predicted_price"`
		Model          string  `json:"model"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ItemName != "Kilowatt Case" || resp.Model != "gbdt" {
		t.Errorf("response = %+v", resp)
	}
	if resp.PredictedPrice <= 0 {
		t.Errorf("predicted price = %v", resp.PredictedPrice)
	}
}

func TestPredictEndpointErrors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"unknown item", http.MethodPost, `{"item_name":"Dream Case","price_today":1}`, http.StatusNotFound},
		{"negative price", http.MethodPost, `{"item_name":"Kilowatt Case","price_today":-1}`, http.StatusBadRequest},
		{"unknown model", http.MethodPost, `{"item_name":"Kilowatt Case","price_today":1,"model":"forest"}`, http.StatusBadRequest},
		{"unloaded model", http.MethodPost, `{"item_name":"Kilowatt Case","price_today":1,"model":"histgb"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, "/api/v1/predict", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestCasesEndpoint(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/api/v1/cases", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		RegistryVersion int `json:"registry_version"`
		Count           int `json:"count"`
		Data            []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("count = %d, data = %v", resp.Count, resp.Data)
	}
	if resp.Data[0].ID != 0 || resp.Data[0].Name != "Kilowatt Case" {
		t.Errorf("first case = %+v", resp.Data[0])
	}
}

func TestModelsEndpoint(t *testing.T) {
	rec := doRequest(t, testServer(t), http.MethodGet, "/api/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
		Data  []struct {
			Kind    string `json:"kind"`
			Default bool   `json:"default"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Data[0].Kind != "gbdt" || !resp.Data[0].Default {
		t.Errorf("models = %+v", resp)
	}
}

func TestNewRequiresPredictors(t *testing.T) {
	reg := registry.New([]string{"Kilowatt Case"})
	if _, err := New(nil, reg, nil, model.KindGBDT, 0); err == nil {
		t.Fatal("expected error with no predictors")
	}
}
