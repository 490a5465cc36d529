package timesync

import (
	"testing"
	"time"
)

func TestParseElapsed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "minutes and seconds", in: "05:12", want: 5*time.Minute + 12*time.Second},
		{name: "hours", in: "01:23:45", want: time.Hour + 23*time.Minute + 45*time.Second},
		{name: "days", in: "3-04:05:06", want: 3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second},
		{name: "large hours", in: "100:00:00", want: 100 * time.Hour},
		{name: "empty", in: "", wantErr: true},
		{name: "seconds only", in: "42", wantErr: true},
		{name: "garbage", in: "aa:bb", wantErr: true},
		{name: "bad day", in: "x-01:00", wantErr: true},
		{name: "minutes out of range", in: "01:75:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseElapsed(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseElapsed(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseElapsed(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseElapsed(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{5*time.Minute + 12*time.Second + 300*time.Millisecond, "05:12"},
		{time.Hour + 23*time.Minute + 45*time.Second, "01:23:45"},
		{3*24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second, "3-04:05:06"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatElapsed(tt.in); got != tt.want {
				t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatElapsed_RoundTrip(t *testing.T) {
	for _, s := range []string{"00:01", "59:59", "23:59:59", "12-00:00:01"} {
		d, err := ParseElapsed(s)
		if err != nil {
			t.Fatalf("ParseElapsed(%q) error = %v", s, err)
		}
		if got := FormatElapsed(d); got != s {
			t.Errorf("FormatElapsed(ParseElapsed(%q)) = %q", s, got)
		}
	}
}

func TestStartedAt(t *testing.T) {
	now := time.Unix(1000000000, 0)

	got, err := StartedAt(now, "01:00:00")
	if err != nil {
		t.Fatalf("StartedAt() error = %v", err)
	}
	if want := now.Add(-time.Hour); !got.Equal(want) {
		t.Errorf("StartedAt() = %v, want %v", got, want)
	}

	if _, err := StartedAt(now, "bogus"); err == nil {
		t.Error("StartedAt() expected error for bogus etime")
	}
}
