package stacktrace

import (
	"regexp"
	"strconv"
	"strings"
)

// TraceTexter is implemented by errors that carry a textual stack trace, for
// example one captured with runtime/debug.Stack when a panic was recovered.
type TraceTexter interface {
	StackTraceText() string
}

var (
	// "at <Source> in <Filename>:line <LineNumber>", the suffix being optional.
	atFramePattern = regexp.MustCompile(`(?m)^[ \t]*at (?P<source>\S.*?)(?: in (?P<filename>.*?):line (?P<line>[0-9]+))?\r?$`)

	// Goroutine dumps and github.com/pkg/errors %+v output:
	//
	//	main.handler(0xc000012345)
	//		/src/main.go:42 +0x1d
	goFramePattern = regexp.MustCompile(`(?m)^(?P<function>[^\s].*?)(?:\([^()]*\))?\r?\n\t(?P<filename>.+?):(?P<line>[0-9]+)(?: \+0x[0-9a-f]+)?\r?$`)

	createdByPattern = regexp.MustCompile(`^created by (.+?)(?: in goroutine [0-9]+)?$`)
)

// TextParser is the fallback extraction strategy. It parses trace text
// rendered by the error.
type TextParser struct {
	modules *moduleIndex
}

// NewTextParser creates a text parser.
func NewTextParser() *TextParser {
	return &TextParser{modules: loadModuleIndex()}
}

// Parse extracts frames from trace text. Lines in the "at X in F:line N"
// form take precedence; when none are present, Go goroutine dump frames are
// parsed instead. Unparseable text yields an empty, non-nil slice.
func (p *TextParser) Parse(text string) []Frame {
	if frames := p.parseAtFrames(text); len(frames) > 0 {
		return frames
	}
	return p.parseGoFrames(text)
}

func (p *TextParser) parseAtFrames(text string) []Frame {
	frames := make([]Frame, 0)
	for _, m := range atFramePattern.FindAllStringSubmatchIndex(text, -1) {
		source := text[m[2]:m[3]]

		frame := Frame{
			Function: source,
			Source:   stringPtr(source),
		}
		if m[4] >= 0 {
			frame.Filename = text[m[4]:m[5]]
		}
		if m[6] >= 0 {
			if line, err := strconv.Atoi(text[m[6]:m[7]]); err == nil {
				frame.LineNumber = line
			}
		}
		frames = append(frames, frame)
	}
	return frames
}

func (p *TextParser) parseGoFrames(text string) []Frame {
	frames := make([]Frame, 0)
	for _, m := range goFramePattern.FindAllStringSubmatch(text, -1) {
		symbol := strings.TrimSpace(m[1])
		if strings.HasPrefix(symbol, "goroutine ") {
			continue
		}
		if cm := createdByPattern.FindStringSubmatch(symbol); cm != nil {
			symbol = cm[1]
		}

		qn := splitFunctionName(symbol)
		line, _ := strconv.Atoi(m[3])
		frames = append(frames, Frame{
			Function:   formatFunction(qn),
			Filename:   m[2],
			Module:     qn.pkg,
			Source:     p.modules.source(qn.pkg),
			LineNumber: line,
		})
	}
	return frames
}
