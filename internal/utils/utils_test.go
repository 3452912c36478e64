package utils

import "testing"

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 20},
		{raw: "1", want: 1},
		{raw: "100", want: 100},
		{raw: " 7 ", want: 7},
		{raw: "0", wantErr: true},
		{raw: "101", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "ten", wantErr: true},
		{raw: "2.5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLimit(tt.raw, 20, 100)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLimit(%q) = %d, want error", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLimit(%q) unexpected error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
