package domain

import (
	"strings"
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	cases := map[string]Platform{
		"https://www.youtube.com/watch?v=abc123":   PlatformYouTube,
		"https://youtu.be/abc123":                  PlatformYouTube,
		"https://m.youtube.com/watch?v=abc123":     PlatformYouTube,
		"HTTPS://WWW.YOUTUBE.COM/watch?v=abc":      PlatformYouTube,
		"https://www.instagram.com/reel/xyz/":      PlatformInstagram,
		"https://instagr.am/p/xyz":                 PlatformInstagram,
		"https://example.com":                      PlatformUnknown,
		"https://www.tiktok.com/@user/video/123":   PlatformUnknown,
		"not a url at all":                         PlatformUnknown,
		"":                                         PlatformUnknown,
		"https://medium.com/@blog/travel-youtuber": PlatformUnknown,
	}
	for url, want := range cases {
		if got := DetectPlatform(url); got != want {
			t.Errorf("DetectPlatform(%q) = %q; want %q", url, got, want)
		}
	}
}

func TestPlatformSupported(t *testing.T) {
	if !PlatformYouTube.Supported() || !PlatformInstagram.Supported() {
		t.Fatalf("youtube and instagram must be supported")
	}
	if PlatformUnknown.Supported() {
		t.Fatalf("unknown must not be supported")
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]Category{
		"Eats":           CategoryEats,
		"Attractions":    CategoryAttractions,
		"Stay":           CategoryStay,
		"Shopping":       CategoryShopping,
		"Nature & Parks": CategoryNature,
		"Hidden Gems":    CategoryHiddenGems,
		"Nightlife":      CategoryNightlife,
		"restaurant":     CategoryHiddenGems, // unrecognized coerces
		"EATS":           CategoryHiddenGems, // vocabulary is case-sensitive on the wire
		"":               CategoryHiddenGems,
	}
	for raw, want := range cases {
		if got := NormalizeCategory(raw); got != want {
			t.Errorf("NormalizeCategory(%q) = %q; want %q", raw, got, want)
		}
	}
}

func TestCategories_ExactVocabulary(t *testing.T) {
	got := Categories()
	if len(got) != 7 {
		t.Fatalf("vocabulary must have exactly 7 entries, got %d", len(got))
	}
	for _, c := range got {
		if !c.Valid() {
			t.Errorf("Categories() returned invalid entry %q", c)
		}
	}
}

func TestLocationHasGeo(t *testing.T) {
	if (Location{GeoLocation: []float64{0, 0}}).HasGeo() {
		t.Fatalf("[0,0] is the sentinel and must not count as geo")
	}
	if (Location{GeoLocation: nil}).HasGeo() {
		t.Fatalf("missing coordinates must not count as geo")
	}
	if !(Location{GeoLocation: []float64{2.2945, 48.8584}}).HasGeo() {
		t.Fatalf("real coordinates must count as geo")
	}
}

func TestMessageKey(t *testing.T) {
	if got := MessageKey("wamid.1", "id-2", "4477", "text", "ts"); got != "wamid.1" {
		t.Fatalf("explicit whatsapp id must win, got %q", got)
	}
	if got := MessageKey("", "id-2", "4477", "text", "ts"); got != "id-2" {
		t.Fatalf("secondary id must win over fallback, got %q", got)
	}

	fb := MessageKey("", "", "4477", "https://youtu.be/x", "1700000000")
	if !strings.HasPrefix(fb, "fallback:") {
		t.Fatalf("synthesized key must be namespaced, got %q", fb)
	}
	// Deterministic: the same triple always yields the same key.
	if fb != MessageKey("", "", "4477", "https://youtu.be/x", "1700000000") {
		t.Fatalf("fallback key must be deterministic")
	}
	// Any component changing changes the key.
	if fb == MessageKey("", "", "4478", "https://youtu.be/x", "1700000000") {
		t.Fatalf("different sender must yield a different key")
	}
}
