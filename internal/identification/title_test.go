package identification

import "testing"

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/media/the_big_lebowski.mkv", "The Big Lebowski"},
		{"/downloads/some.show.episode.two.mkv", "Some Show Episode Two"},
		{"lecture-recording 3.wav", "Lecture Recording 3"},
		{"/media/...mkv", "Unknown Source"},
		{"", "Unknown Source"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DeriveTitle(tt.path); got != tt.expected {
				t.Fatalf("DeriveTitle(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
