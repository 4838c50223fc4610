package pipeline

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/papercraft-labs/pcrelease/internal/release"
)

// Exit codes reported for a release.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitPartial = 3
)

// PlatformSummary is the outcome of one platform.
type PlatformSummary struct {
	Platform  release.Platform
	Name      string
	Status    Status
	Stage     Stage
	Err       error
	Size      int64
	Published bool
}

// Summary is the outcome of a release run.
type Summary struct {
	Tag        release.Tag
	Platforms  []PlatformSummary
	Published  bool
	URL        string
	PublishErr error
	Cancelled  bool
}

// Succeeded counts platforms whose artifact made it into the release set.
func (s *Summary) Succeeded() int {
	n := 0
	for _, p := range s.Platforms {
		if p.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the platforms that did not succeed.
func (s *Summary) Failed() []release.Platform {
	var out []release.Platform
	for _, p := range s.Platforms {
		if p.Status != StatusSucceeded {
			out = append(out, p.Platform)
		}
	}
	return out
}

// ExitCode maps the summary to a process exit status: 0 when every platform
// was published, 3 when a subset was published, 1 otherwise.
func (s *Summary) ExitCode() int {
	switch {
	case s.Cancelled, s.PublishErr != nil, !s.Published, s.Succeeded() == 0:
		return ExitFailed
	case s.Succeeded() < len(s.Platforms):
		return ExitPartial
	}
	return ExitOK
}

// Write prints a per-platform table followed by the publish outcome.
func (s *Summary) Write(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tSTATUS\tARTIFACT\tSIZE\tDETAIL")
	for _, p := range s.Platforms {
		detail := ""
		if p.Err != nil {
			detail = fmt.Sprintf("%s: %v", p.Stage, p.Err)
		}
		size := "-"
		if p.Size > 0 {
			size = humanize.IBytes(uint64(p.Size))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Platform, p.Status, p.Name, size, detail)
	}
	tw.Flush()

	switch {
	case s.Cancelled:
		fmt.Fprintln(w, "\nRelease cancelled; nothing published.")
	case s.PublishErr != nil:
		fmt.Fprintf(w, "\nPublish failed: %v\n", s.PublishErr)
	case !s.Published:
		fmt.Fprintln(w, "\nNo platform succeeded; nothing published.")
	default:
		fmt.Fprintf(w, "\nPublished %s as pre-release with %d of %d artifacts: %s\n", s.Tag, s.Succeeded(), len(s.Platforms), s.URL)
	}
}
