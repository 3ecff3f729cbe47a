package stacktrace

import (
	"runtime"
	"strings"
	"sync"
)

// maxCaptureDepth bounds Capture.
const maxCaptureDepth = 64

// defaultExtractor backs New(nil, err) and Capture.
var defaultExtractor = sync.OnceValue(func() *Extractor {
	return NewExtractor()
})

// Stacktrace owns the frames of one error.
//
// Frames is nil when no error was given and empty when an error was given but
// no frames could be recovered. Callers distinguish the two with HasTrace.
type Stacktrace struct {
	Frames []Frame `json:"frames,omitempty"`
}

// New builds the stacktrace of err. A nil err leaves Frames unset.
func New(ex *Extractor, err error) *Stacktrace {
	st := &Stacktrace{}
	if err == nil {
		return st
	}
	if ex == nil {
		ex = defaultExtractor()
	}
	st.Frames = ex.Extract(err)
	return st
}

// HasTrace reports whether extraction ran, regardless of how many frames it
// recovered.
func (s *Stacktrace) HasTrace() bool {
	return s != nil && s.Frames != nil
}

// String renders one "   at <frame>" line per frame in storage order. No
// frames render as the empty string.
func (s *Stacktrace) String() string {
	if s == nil || len(s.Frames) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, frame := range s.Frames {
		sb.WriteString("   at ")
		sb.WriteString(frame.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Capture records the calling goroutine's stack, skipping skip frames above
// the caller of Capture. It is used for events that have no error, such as
// plain messages.
func Capture(skip int) *Stacktrace {
	pcs := make([]uintptr, maxCaptureDepth)
	// +2 skips runtime.Callers and Capture itself.
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return &Stacktrace{Frames: []Frame{}}
	}

	walker := defaultExtractor().walker
	native, ok := walker.(*NativeWalker)
	if !ok {
		native = NewNativeWalker()
	}

	raw := resolveCallers(pcs[:n])
	frames := make([]Frame, 0, len(raw))
	for _, fr := range raw {
		frames = append(frames, native.convert(fr))
	}
	return &Stacktrace{Frames: frames}
}
