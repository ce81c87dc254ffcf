package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Database",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Audio Engine",
			Check: func(ctx context.Context) error {
				return ErrEngineSuspended
			},
			Critical: false,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if !results[0].Passed() {
		t.Errorf("Expected database probe to pass, got error: %v", results[0].Error)
	}

	if !errors.Is(results[1].Error, ErrEngineSuspended) {
		t.Errorf("Expected engine probe to fail with ErrEngineSuspended, got %v", results[1].Error)
	}
	if err := AnalyzeResults(results); err != nil {
		t.Errorf("non-critical failure should not abort startup: %v", err)
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "Database", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "Database", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "Database", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "Database", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "Vehicle Registry", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	results := Run(context.Background(), []Probe{{
		Name:    "Hangs",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}})
	if !errors.Is(results[0].Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", results[0].Error)
	}
}
