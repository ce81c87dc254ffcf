package api

import (
	"testing"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Params sorted and long values dropped",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="PositionJob: Zone changed" to=cabin from=jetway position=-12.4 vehicle=A320 session=6f1c2d0e-8a7b-4c3d-9e2f-1a2b3c4d5e6f`,
			want:  "06:50:46 PositionJob: Zone changed (from=jetway, position=-12.4, to=cabin, vehicle=A320)",
		},
		{
			name:  "No params",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Scheduler started"`,
			want:  "06:50:46 Scheduler started",
		},
		{
			name:  "Unstructured passthrough",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("formatLogLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
