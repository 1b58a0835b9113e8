package lyrics

import (
	"regexp"
	"strconv"
	"strings"
)

// Source records where a document's text came from.
type Source string

const (
	// SourceTag marks lyrics read from the file's own tags.
	SourceTag Source = "tag"
	// SourceNone marks an empty document: nothing resolved.
	SourceNone Source = "none"
	// Remote documents carry the provider's name as their source.
)

// Document is a resolved set of lyrics for one track. It is immutable after
// creation; the header-clearing transform runs once while it is built.
type Document struct {
	Lines         []string
	Timestamps    []float64 // per-line seconds for timed lyrics, nil otherwise
	Source        Source
	HeaderCleared bool
}

// Empty reports whether the document holds no text.
func (d *Document) Empty() bool {
	return len(d.Lines) == 0
}

// Text reassembles the document into a single string.
func (d *Document) Text() string {
	return strings.Join(d.Lines, "\n")
}

var timestampRe = regexp.MustCompile(`^\[(\d{1,2}):(\d{1,2})(?:\.(\d{1,3}))?\]`)

// splitLines splits lyrics text into lines, recognizing optional LRC-style
// per-line timestamps. When at least one line is timestamped, the returned
// timestamps slice has one entry per line; untimed lines inherit the previous
// timestamp so the slice stays monotonic.
func splitLines(text string) ([]string, []float64) {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	lines := make([]string, len(raw))
	timestamps := make([]float64, len(raw))
	timed := false
	last := 0.0

	for i, line := range raw {
		if m := timestampRe.FindStringSubmatch(line); m != nil {
			mins, _ := strconv.Atoi(m[1])
			secs, _ := strconv.Atoi(m[2])
			ms := 0
			if m[3] != "" {
				ms, _ = strconv.Atoi(m[3])
				switch len(m[3]) {
				case 1:
					ms *= 100
				case 2:
					ms *= 10
				}
			}
			last = float64(mins*60+secs) + float64(ms)/1000
			timed = true
			line = strings.TrimSpace(line[len(m[0]):])
		}
		lines[i] = line
		timestamps[i] = last
	}

	// drop trailing empty lines
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
		timestamps = timestamps[:len(timestamps)-1]
	}

	if len(lines) == 0 {
		return nil, nil
	}
	if !timed {
		return lines, nil
	}
	return lines, timestamps
}

var headerRe = regexp.MustCompile(`^\[[^\[\]]*\]$`)

// clearHeaders removes lines consisting solely of a bracketed section label,
// such as verse or chorus markers.
func clearHeaders(lines []string, timestamps []float64) ([]string, []float64) {
	kept := make([]string, 0, len(lines))
	var keptTs []float64
	if timestamps != nil {
		keptTs = make([]float64, 0, len(timestamps))
	}
	for i, line := range lines {
		if headerRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
		if keptTs != nil {
			keptTs = append(keptTs, timestamps[i])
		}
	}
	return kept, keptTs
}
