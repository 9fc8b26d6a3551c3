package valueobject

import (
	"errors"
	"testing"
)

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantKey string
		wantVal string
		wantErr error
	}{
		{name: "bytes", in: []byte(`{"reason":"Email rate limit exceeded"}`), wantKey: "reason", wantVal: "Email rate limit exceeded"},
		{name: "string", in: `{"user_id":"42"}`, wantKey: "user_id", wantVal: "42"},
		{name: "decoded map", in: map[string]any{"a": "b"}, wantKey: "a", wantVal: "b"},
		{name: "nil", in: nil},
		{name: "wrong type", in: 12, wantErr: ErrScanValueNotBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j JSONMap
			err := j.Scan(tt.in)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Scan() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if j == nil {
				t.Fatalf("Scan() left map nil")
			}
			if tt.wantKey != "" && j.GetString(tt.wantKey) != tt.wantVal {
				t.Fatalf("GetString(%q) = %q, want %q", tt.wantKey, j.GetString(tt.wantKey), tt.wantVal)
			}
		})
	}
}

func TestJSONMap_ValueNil(t *testing.T) {
	var j JSONMap
	v, err := j.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Fatalf("Value() = %s, want {}", v)
	}
}
