package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{
			name:       "with parameters",
			operation:  "ExportBundle",
			parameters: "b_1",
		},
		{
			name:       "empty parameters",
			operation:  "Scan",
			parameters: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters, now)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != "success" {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if op.ID != "20240115T093000Z" {
				t.Errorf("ID = %q, want UTC timestamp", op.ID)
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error keeps success", err: nil, want: false},
		{name: "error marks failure", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("Scan", "", time.Now())
			if got := op.Fail(tt.err); got != tt.err {
				t.Errorf("Fail() = %v, want %v", got, tt.err)
			}
			if op.Failed() != tt.want {
				t.Errorf("Failed() = %v, want %v", op.Failed(), tt.want)
			}
		})
	}
}

func TestOperation_Duration(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	op := NewOperation("Watch", "", start)
	if got := op.Duration(start.Add(1500*time.Millisecond + 300*time.Microsecond)); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got)
	}
}
