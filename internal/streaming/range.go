package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRangeNotSatisfiable indicates a Range header that cannot be served for
// the file at hand.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte window of a file.
type Range struct {
	Start int64
	End   int64
}

// Length is the value sent as Content-Length. A window whose bounds
// coincide reports zero and carries no body.
func (r Range) Length() int64 {
	if r.Start == r.End {
		return 0
	}
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange resolves a "bytes=<start>-<end>" header against a file of the
// given size. An empty header selects the whole file. Only the first range
// of a multi-range header is honoured.
func ParseRange(header string, size int64) (Range, error) {
	if size <= 0 {
		return Range{}, fmt.Errorf("%w: empty file", ErrRangeNotSatisfiable)
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return Range{Start: 0, End: size - 1}, nil
	}

	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return Range{}, fmt.Errorf("%w: unsupported unit in %q", ErrRangeNotSatisfiable, header)
	}
	set, _, _ = strings.Cut(set, ",")
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: malformed range %q", ErrRangeNotSatisfiable, header)
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	var r Range
	switch {
	case startStr == "" && endStr == "":
		r = Range{Start: 0, End: size - 1}
	case startStr == "":
		n, err := parseOffset(endStr)
		if err != nil || n == 0 {
			return Range{}, fmt.Errorf("%w: malformed suffix %q", ErrRangeNotSatisfiable, header)
		}
		r = Range{Start: max(size-n, 0), End: size - 1}
	case endStr == "":
		start, err := parseOffset(startStr)
		if err != nil {
			return Range{}, fmt.Errorf("%w: malformed start %q", ErrRangeNotSatisfiable, header)
		}
		r = Range{Start: start, End: size - 1}
	default:
		start, err := parseOffset(startStr)
		if err != nil {
			return Range{}, fmt.Errorf("%w: malformed start %q", ErrRangeNotSatisfiable, header)
		}
		end, err := parseOffset(endStr)
		if err != nil || end < start {
			return Range{}, fmt.Errorf("%w: malformed end %q", ErrRangeNotSatisfiable, header)
		}
		r = Range{Start: start, End: min(end, size-1)}
	}

	if r.Start >= size {
		return Range{}, fmt.Errorf("%w: start %d beyond size %d", ErrRangeNotSatisfiable, r.Start, size)
	}
	return r, nil
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative offset %d", n)
	}
	return n, nil
}
