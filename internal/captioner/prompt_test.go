package captioner

import "testing"

func TestPrimingPromptAppendsSentinel(t *testing.T) {
	cases := []struct {
		name    string
		context string
		want    string
	}{
		{"empty context yields bare sentinel", "", silenceSentinel},
		{"context precedes sentinel", "previous words", "previous words " + silenceSentinel},
		{"whitespace context trimmed", "  padded  ", "padded " + silenceSentinel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := primingPrompt(tc.context); got != tc.want {
				t.Fatalf("primingPrompt(%q) = %q, want %q", tc.context, got, tc.want)
			}
		})
	}
}

func TestTailContextKeepsTrailingWords(t *testing.T) {
	captions := []CaptionSegment{
		makeCaption(0, 2, "one two three"),
		makeCaption(2, 4, "four five six"),
		makeCaption(4, 6, "seven eight nine"),
	}

	if got := tailContext(captions, 2, 24); got != "four five six seven eight nine" {
		t.Fatalf("tailContext caption cap = %q", got)
	}
	if got := tailContext(captions, 2, 2); got != "eight nine" {
		t.Fatalf("tailContext word cap = %q", got)
	}
	if got := tailContext(nil, 2, 24); got != "" {
		t.Fatalf("tailContext(nil) = %q, want empty", got)
	}
}

func TestHeadContextKeepsLeadingWords(t *testing.T) {
	captions := []CaptionSegment{
		makeCaption(10, 12, "alpha beta"),
		makeCaption(12, 14, "gamma delta"),
		makeCaption(14, 16, "epsilon zeta"),
	}

	if got := headContext(captions, 2, 24); got != "alpha beta gamma delta" {
		t.Fatalf("headContext caption cap = %q", got)
	}
	if got := headContext(captions, 2, 3); got != "alpha beta gamma" {
		t.Fatalf("headContext word cap = %q", got)
	}
}

func TestGapContextUsesNearestNeighborsOnBothSides(t *testing.T) {
	neighbors := []CaptionSegment{
		makeCaption(140, 145, "we left."),
		makeCaption(0, 5, "far before"),
		makeCaption(90, 95, "we kept going"),
		makeCaption(200, 210, "far after"),
		makeCaption(80, 85, "So anyway"),
		makeCaption(130, 135, "and then"),
	}
	gap := Gap{Start: 100, End: 120}

	got := gapContext(neighbors, gap)
	want := "So anyway we kept going and then we left."
	if got != want {
		t.Fatalf("gapContext = %q, want %q", got, want)
	}
}

func TestGapContextExcludesStraddlingCaptions(t *testing.T) {
	neighbors := []CaptionSegment{
		makeCaption(90, 95, "before the gap"),
		makeCaption(95, 105, "straddles the start"),
		makeCaption(118, 125, "straddles the end"),
		makeCaption(125, 130, "after the gap"),
	}
	gap := Gap{Start: 100, End: 120}

	got := gapContext(neighbors, gap)
	want := "before the gap after the gap"
	if got != want {
		t.Fatalf("gapContext = %q, want %q", got, want)
	}
}

func TestGapContextHandlesOneSidedNeighbors(t *testing.T) {
	gap := Gap{Start: 50, End: 60}

	onlyBefore := []CaptionSegment{makeCaption(40, 45, "leading words")}
	if got := gapContext(onlyBefore, gap); got != "leading words" {
		t.Fatalf("gapContext before-only = %q", got)
	}

	onlyAfter := []CaptionSegment{makeCaption(65, 70, "trailing words")}
	if got := gapContext(onlyAfter, gap); got != "trailing words" {
		t.Fatalf("gapContext after-only = %q", got)
	}

	if got := gapContext(nil, gap); got != "" {
		t.Fatalf("gapContext(nil) = %q, want empty", got)
	}
}
