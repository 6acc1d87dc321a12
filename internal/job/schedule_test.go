package job

import (
	"errors"
	"slices"
	"testing"
)

func TestTimestamps(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want []int64
	}{
		{
			name: "evenly spread over range",
			p:    Params{StartMs: 0, EndMs: 9000, TotalThumbsCount: 4, Width: 100, Height: 100},
			want: []int64{0, 3000, 6000, 9000},
		},
		{
			name: "offset start",
			p:    Params{StartMs: 1000, EndMs: 5000, TotalThumbsCount: 3, Width: 1, Height: 1},
			want: []int64{1000, 3000, 5000},
		},
		{
			name: "interval truncated to whole milliseconds",
			p:    Params{StartMs: 0, EndMs: 10, TotalThumbsCount: 4, Width: 1, Height: 1},
			want: []int64{0, 3, 6, 9},
		},
		{
			name: "single frame at start",
			p:    Params{StartMs: 2500, EndMs: 9000, TotalThumbsCount: 1, Width: 1, Height: 1},
			want: []int64{2500},
		},
		{
			name: "empty range repeats start",
			p:    Params{StartMs: 400, EndMs: 400, TotalThumbsCount: 3, Width: 1, Height: 1},
			want: []int64{400, 400, 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Timestamps(tt.p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_Validate(t *testing.T) {
	valid := Params{StartMs: 0, EndMs: 1000, TotalThumbsCount: 2, Width: 10, Height: 10}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero count", func(p *Params) { p.TotalThumbsCount = 0 }},
		{"negative count", func(p *Params) { p.TotalThumbsCount = -3 }},
		{"negative start", func(p *Params) { p.StartMs = -1 }},
		{"end before start", func(p *Params) { p.StartMs, p.EndMs = 500, 100 }},
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"negative height", func(p *Params) { p.Height = -1 }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if _, err := Timestamps(p); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Timestamps: expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
