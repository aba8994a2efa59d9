package media

import "strings"

// IsPlaylistURL reports whether a URL refers to a playlist.
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, "list=")
}

// ExtractPlaylistID pulls the playlist identifier out of a URL, or
// returns "" when none is present.
func ExtractPlaylistID(url string) string {
	_, rest, ok := strings.Cut(url, "list=")
	if !ok {
		return ""
	}
	if amp := strings.IndexByte(rest, '&'); amp >= 0 {
		rest = rest[:amp]
	}
	return rest
}

// WatchURL builds a single-video URL from a playlist entry id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
