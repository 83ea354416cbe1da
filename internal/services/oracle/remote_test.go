package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPOraclePredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Symbol != "NIFTY" || len(req.Features) != 6 {
			t.Errorf("unexpected request payload %+v", req)
		}
		json.NewEncoder(w).Encode(predictResponse{
			UpProbability:   75,
			DownProbability: 25,
			ModelVersion:    "remote-v2",
		})
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second, 1, 6)
	p, err := o.Predict(context.Background(), "NIFTY", make([]float64, 6))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Direction != "UP" {
		t.Errorf("Direction = %s, want UP", p.Direction)
	}
	if p.Confidence != 75 {
		t.Errorf("Confidence = %v, want 75", p.Confidence)
	}
	if p.ModelVersion != "remote-v2" {
		t.Errorf("ModelVersion = %q, want remote-v2", p.ModelVersion)
	}
}

func TestHTTPOracleDownDirection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{UpProbability: 30, DownProbability: 70})
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second, 1, 2)
	p, err := o.Predict(context.Background(), "NIFTY", []float64{0, 0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Direction != "DOWN" || p.Confidence != 70 {
		t.Errorf("got %s/%v, want DOWN/70", p.Direction, p.Confidence)
	}
}

func TestHTTPOracleRejectsWrongArityLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("service should not be called for a malformed row")
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second, 1, 6)
	if _, err := o.Predict(context.Background(), "NIFTY", []float64{1, 2, 3}); err == nil {
		t.Error("expected arity error, got nil")
	}
}

func TestHTTPOracleRejectsBadProbabilities(t *testing.T) {
	tests := []struct {
		name string
		resp predictResponse
	}{
		{name: "sum below 100", resp: predictResponse{UpProbability: 60, DownProbability: 30}},
		{name: "up above 100", resp: predictResponse{UpProbability: 120, DownProbability: -20}},
		{name: "negative down", resp: predictResponse{UpProbability: 105, DownProbability: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.resp)
			}))
			defer srv.Close()

			o := NewHTTPOracle(srv.URL, time.Second, 1, 1)
			if _, err := o.Predict(context.Background(), "NIFTY", []float64{0}); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestHTTPOracleRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(predictResponse{UpProbability: 55, DownProbability: 45})
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, time.Second, 3, 1)
	p, err := o.Predict(context.Background(), "NIFTY", []float64{0.5})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("service called %d times, want 2", got)
	}
	if p.Confidence != 55 {
		t.Errorf("Confidence = %v, want 55", p.Confidence)
	}
}
