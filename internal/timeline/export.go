package timeline

import (
	"fmt"
	"io"
	"strings"
)

// WritePlaylist writes the composition as an ffmpeg concat demuxer playlist,
// one entry per inserted segment in timeline order. Playing the playlist with
// a single player invocation is what removes the per-segment seam.
func (c *Composition) WritePlaylist(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "ffconcat version 1.0"); err != nil {
		return fmt.Errorf("failed to write playlist header: %w", err)
	}

	for _, src := range c.Sources {
		// Single quotes inside paths are escaped the way the concat demuxer
		// expects: close, escaped quote, reopen.
		escaped := strings.ReplaceAll(src, "'", `'\''`)
		if _, err := fmt.Fprintf(w, "file '%s'\n", escaped); err != nil {
			return fmt.Errorf("failed to write playlist entry: %w", err)
		}
	}
	return nil
}
