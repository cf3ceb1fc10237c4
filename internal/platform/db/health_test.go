package db

import (
	"encoding/json"
	"testing"
)

func TestPoolStats_JSONShape(t *testing.T) {
	stats := &PoolStats{
		TotalConns:      10,
		IdleConns:       5,
		AcquiredConns:   5,
		MaxConns:        20,
		AcquireCount:    100,
		AcquireDuration: "1.5s",
		Healthy:         true,
	}

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"total_conns", "idle_conns", "acquired_conns", "max_conns", "acquire_count", "acquire_duration", "healthy"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %q in pool stats JSON", key)
		}
	}
	if decoded["healthy"] != true {
		t.Error("healthy flag lost in JSON round trip")
	}
}

func TestHealthResponse_OmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(healthResponse{Service: "medsched", Status: "healthy", Pool: &PoolStats{}})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["error"]; ok {
		t.Error("healthy responses must not carry an error field")
	}
	if decoded["service"] != "medsched" {
		t.Errorf("service = %v", decoded["service"])
	}
}
