package prompts

import "testing"

func TestDetectMotionClass(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"rolex_submariner_01.png", MotionProductFocus},
		{"leica_m6_closeup.png", MotionProductFocus},
		{"vintage_wine_decanter.png", MotionProductFocus},
		{"harley_davidson_sunset.png", MotionEnviron},
		{"persian_rug_detail.png", MotionEnviron},
		{"sunset_mountains.png", MotionSubtle},
		{"abstract_texture_04.png", MotionSubtle},
		{"ROLEX_DAYTONA.png", MotionProductFocus}, // case-insensitive
		{"wine_rug_closeup.png", MotionEnviron},   // first keyword in pattern order wins
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectMotionClass(tt.filename); got != tt.want {
				t.Errorf("DetectMotionClass(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestBuildDirectiveDeterministic(t *testing.T) {
	first := BuildDirective("queue/rolex_submariner_01.png")
	for i := 0; i < 5; i++ {
		if got := BuildDirective("queue/rolex_submariner_01.png"); got != first {
			t.Fatalf("directive changed across calls: %q vs %q", got, first)
		}
	}
	if first == "" {
		t.Fatal("empty directive")
	}

	// The directory part must not influence the pick.
	if got := BuildDirective("elsewhere/rolex_submariner_01.png"); got != first {
		t.Errorf("directive depends on directory: %q vs %q", got, first)
	}

	// A filename carrying keywords from two classes must still resolve
	// to the same class, and so the same directive, on every call.
	mixed := BuildDirective("queue/wine_rug_closeup.png")
	for i := 0; i < 200; i++ {
		if got := BuildDirective("queue/wine_rug_closeup.png"); got != mixed {
			t.Fatalf("mixed-keyword directive changed across calls: %q vs %q", got, mixed)
		}
	}
	if DetectMotionClass("wine_rug_closeup.png") != MotionEnviron {
		t.Errorf("mixed-keyword class = %q, want %q", DetectMotionClass("wine_rug_closeup.png"), MotionEnviron)
	}
}

func TestBuildDirectiveDrawsFromDetectedPool(t *testing.T) {
	got := BuildDirective("rolex_submariner_01.png")
	found := false
	for _, p := range motionPools[MotionProductFocus] {
		if p == got {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("directive %q not in product focus pool", got)
	}
}
