package domain

import "strings"

// Platform is the closed set of content sources the pipeline understands.
// PlatformUnknown is the explicit rejection value: callers must handle it
// rather than fall through silently.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformUnknown   Platform = "unknown"
)

// Supported reports whether the platform can be processed.
func (p Platform) Supported() bool {
	return p == PlatformYouTube || p == PlatformInstagram
}

// DetectPlatform classifies a raw URL by hostname markers. It matches the
// desktop, mobile, and short-link forms of both platforms.
func DetectPlatform(url string) Platform {
	u := strings.ToLower(url)
	for _, marker := range []string{"youtube.com", "youtu.be", "m.youtube.com"} {
		if strings.Contains(u, marker) {
			return PlatformYouTube
		}
	}
	for _, marker := range []string{"instagram.com", "instagr.am"} {
		if strings.Contains(u, marker) {
			return PlatformInstagram
		}
	}
	return PlatformUnknown
}
