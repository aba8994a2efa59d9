package media

import (
	"strconv"
	"strings"
)

// Ceilings are the quality bounds parsed out of a format selector.
// Zero means unbounded ("best").
type Ceilings struct {
	Height  int // max video height in pixels
	Bitrate int // max audio bitrate in kbps
}

// ParseSelector extracts the height and bitrate ceilings from a
// format-selection expression such as
// "bestvideo[height<=720]+bestaudio/best[height<=720]" or
// "bestaudio[abr<=128]". Expressions without bounds ("best",
// "bestaudio/best") yield zero ceilings.
func ParseSelector(selector string) Ceilings {
	return Ceilings{
		Height:  boundAfter(selector, "height<="),
		Bitrate: boundAfter(selector, "abr<="),
	}
}

func boundAfter(s, marker string) int {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return 0
	}
	rest := s[idx+len(marker):]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
