// Package outcar parses the output log written by the electronic-structure
// solver and recovers the parameter values a finished run actually used.
//
// The parser is line-oriented over a fixed text format. It recognizes three
// things:
//   - realized parameter values ("... NBANDS = 8", "ENCUT = 520.0 eV", ...)
//   - the terminal summary line proving the run finished
//   - diagnostic banners for parameters the solver silently rewrote, today
//     the parallel band-count adjustment
//
// A log without the parameter summary block is malformed (*ParseError).
// A log with the summary block but no terminal line is a run still in
// progress or killed mid-flight (ErrIncompleteRun). The two conditions are
// deliberately distinct: callers resubmit on the latter but must surface
// the former.
package outcar

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/hartree/recalc/internal/param"
)

// NoticeCause categorizes a diagnostic notice.
type NoticeCause string

const (
	// CauseParallelBandAdjustment is the solver raising NBANDS to divide
	// evenly across parallel ranks. Benign: the run is valid with the
	// adjusted value.
	CauseParallelBandAdjustment NoticeCause = "PARALLEL_BAND_ADJUSTMENT"

	// CauseUnknown marks a recognized banner shape the parser cannot
	// attribute. Unknown causes never explain a parameter difference.
	CauseUnknown NoticeCause = "UNKNOWN"
)

// Notice is a structured record of one parameter override reported in the
// output log. Produced only here; consumed only by the decision engine.
type Notice struct {
	Cause  NoticeCause
	Key    string
	Before int64
	After  int64
}

// RunRecord is the recovered state of one finished run: the parameters as
// realized by the solver plus any diagnostic notices. It is always
// re-derived from the log at decision time and never persisted, so it
// cannot go stale relative to disk.
type RunRecord struct {
	Params  param.Set
	Notices []Notice
}

// ErrIncompleteRun reports a log whose parameter block parsed but whose
// terminal summary line is absent: the run never finished. This is a
// recognized terminal condition, not a data-integrity failure.
var ErrIncompleteRun = errors.New("prior run incomplete: no terminal summary line")

// ParseError reports a malformed or unreadable output log where a
// well-formed one was expected. Callers must surface it; it is never a
// business decision.
type ParseError struct {
	// Path is the log file that failed to parse.
	Path string

	// Line is the 1-based line number of the failure, 0 if not line-scoped.
	Line int

	// Message describes the failure.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// terminalMarker is the tail of the solver's final timing block. A log
// without it belongs to an unfinished run.
const terminalMarker = "Voluntary context switches"

// bandBannerMarker opens the multi-line advisory the solver prints when it
// adjusts the band count for parallel runs.
const bandBannerMarker = "The number of bands has been changed from the values supplied"

// foundNowRe matches the numeric payload of the band-adjustment banner:
//
//	I found NBANDS = <old> now NBANDS = <new>
//
// Whitespace is variable; both integers must capture exactly.
var foundNowRe = regexp.MustCompile(`I found\s+NBANDS\s*=\s*(\d+)\s+now\s+NBANDS\s*=\s*(\d+)`)

// foundNowLooseRe recognizes the payload line shape without committing to
// parseable integers, so a garbled pair is detected as malformed rather
// than silently skipped.
var foundNowLooseRe = regexp.MustCompile(`I found\s+NBANDS`)

// extractor recovers one realized parameter value from a log line.
type extractor struct {
	key string
	re  *regexp.Regexp
	// convert turns the captured text into a typed value.
	convert func(string) (param.Value, error)
}

func intValue(s string) (param.Value, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return param.Int(n), nil
}

func floatValue(s string) (param.Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return param.Float(f), nil
}

func stringValue(s string) (param.Value, error) {
	return param.String(s), nil
}

// extractors lists the parameters the solver is known to echo into the log.
// NBANDS is the one known to be silently rewritten; the rest are recovered
// so the comparator can diff them without re-reading input files.
// Last occurrence wins: the final echoed value is the realized one.
var extractors = []extractor{
	{"NBANDS", regexp.MustCompile(`\bNBANDS\s*=\s*(-?\d+)`), intValue},
	{"ISPIN", regexp.MustCompile(`\bISPIN\s*=\s*(-?\d+)`), intValue},
	{"ISMEAR", regexp.MustCompile(`\bISMEAR\s*=\s*(-?\d+)`), intValue},
	{"IBRION", regexp.MustCompile(`\bIBRION\s*=\s*(-?\d+)`), intValue},
	{"NSW", regexp.MustCompile(`\bNSW\s*=\s*(-?\d+)`), intValue},
	{"ENCUT", regexp.MustCompile(`\bENCUT\s*=\s*(-?\d+(?:\.\d+)?)`), floatValue},
	{"SIGMA", regexp.MustCompile(`\bSIGMA\s*=\s*(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`), floatValue},
	{"EDIFF", regexp.MustCompile(`\bEDIFF\s*=\s*(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`), floatValue},
	{"PREC", regexp.MustCompile(`\bPREC\s*=\s*([A-Za-z]+)`), stringValue},
}

// Parse reads the output log at path and returns the recovered RunRecord.
//
// Error contract:
//   - absent or unreadable file: *ParseError
//   - no parameter summary block at all: *ParseError
//   - band banner present but numeric pair unparseable: *ParseError
//   - summary block present but no terminal line: ErrIncompleteRun
func Parse(path string) (*RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Message: "cannot open output log", Err: err}
	}
	defer f.Close()

	params := make(param.Set)
	var notices []Notice
	complete := false

	// bannerOpenLine is non-zero while a band banner has been seen but its
	// numeric payload has not.
	bannerOpenLine := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := trimBoxBorder(sc.Text())

		if strings.Contains(line, terminalMarker) {
			complete = true
		}

		if strings.Contains(line, bandBannerMarker) {
			bannerOpenLine = lineNo
			continue
		}

		if foundNowLooseRe.MatchString(line) {
			m := foundNowRe.FindStringSubmatch(line)
			if m == nil {
				return nil, &ParseError{
					Path: path, Line: lineNo,
					Message: "band-adjustment diagnostic present but numeric pair is malformed",
				}
			}
			// Both captures are \d+; ParseInt cannot fail on them.
			before, _ := strconv.ParseInt(m[1], 10, 64)
			after, _ := strconv.ParseInt(m[2], 10, 64)
			notices = append(notices, Notice{
				Cause:  CauseParallelBandAdjustment,
				Key:    "NBANDS",
				Before: before,
				After:  after,
			})
			bannerOpenLine = 0
			continue
		}

		for _, ex := range extractors {
			m := ex.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v, err := ex.convert(m[1])
			if err != nil {
				return nil, &ParseError{
					Path: path, Line: lineNo,
					Message: fmt.Sprintf("unparseable %s value %q", ex.key, m[1]),
					Err:     err,
				}
			}
			params[ex.key] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Path: path, Message: "reading output log", Err: err}
	}

	if bannerOpenLine > 0 {
		return nil, &ParseError{
			Path: path, Line: bannerOpenLine,
			Message: "band-adjustment banner without a parseable numeric pair",
		}
	}

	if len(params) == 0 {
		return nil, &ParseError{Path: path, Message: "no parameter summary block found"}
	}

	if !complete {
		return nil, ErrIncompleteRun
	}

	return &RunRecord{Params: params, Notices: notices}, nil
}

// trimBoxBorder strips the `|` box-drawing borders the solver wraps its
// advisory banners in, plus surrounding whitespace.
func trimBoxBorder(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	return strings.TrimSpace(s)
}
