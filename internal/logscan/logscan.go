// Package logscan searches tool log files and source heads for regular expressions.
//
// Every search distinguishes three outcomes: the file could not be read, it was read
// and nothing matched, or a line (or, in anchored mode, the head of the file) matched.
// Callers decide what an unreadable file means; it is never reported as "no match".
package logscan

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"git.home.luguber.info/inful/texbuilder/internal/util/sets"
)

// Outcome is the tri-state result of a search.
type Outcome uint8

const (
	Unreadable Outcome = iota
	NoMatch
	Matched
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	default:
		return "unreadable"
	}
}

// Result carries the outcome and, for a match, the named groups of the matching text.
type Result struct {
	Outcome Outcome
	Groups  map[string]string
	Err     error // why the file was unreadable
}

// Matched reports whether the search found the pattern.
func (r Result) Matched() bool { return r.Outcome == Matched }

// Readable reports whether the file could be read to the end or to the match.
func (r Result) Readable() bool { return r.Outcome != Unreadable }

// AnchorPrefix marks a pattern that is matched against the growing head of a file.
const AnchorPrefix = `\A`

const maxLine = 4 * 1024 * 1024

var (
	cacheMu sync.Mutex
	cache   = map[string]*regexp.Regexp{}
)

// Compile compiles pattern in multi-line mode, so ^ and $ match at line boundaries.
// Compiled patterns are cached.
func Compile(pattern string) (*regexp.Regexp, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if re, ok := cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	cache[pattern] = re
	return re, nil
}

// MatchInFile searches path for pattern. A pattern starting with \A is anchored: lines
// are appended to a buffer and the whole buffer is matched after each line. Otherwise
// every line is matched on its own and the first matching line ends the search.
// The error is non-nil only if pattern does not compile.
func MatchInFile(path, pattern string) (Result, error) {
	re, err := Compile(pattern)
	if err != nil {
		return Result{}, err
	}
	return Search(path, re, strings.HasPrefix(pattern, AnchorPrefix)), nil
}

// Search is MatchInFile with a compiled expression.
func Search(path string, re *regexp.Regexp, anchored bool) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Outcome: Unreadable, Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var head strings.Builder
	for sc.Scan() {
		text := sc.Text()
		if anchored {
			if head.Len() > 0 {
				head.WriteByte('\n')
			}
			head.WriteString(text)
			text = head.String()
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return Result{Outcome: Matched, Groups: namedGroups(re, m)}
		}
	}
	if err := sc.Err(); err != nil {
		return Result{Outcome: Unreadable, Err: err}
	}
	return Result{Outcome: NoMatch}
}

func namedGroups(re *regexp.Regexp, m []string) map[string]string {
	var groups map[string]string
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(m) || m[i] == "" {
			continue
		}
		if groups == nil {
			groups = make(map[string]string)
		}
		groups[name] = m[i]
	}
	return groups
}

// CollectMatches returns the distinct values of capture group idx over all lines of
// path matching pattern. ok is false if the file could not be read.
func CollectMatches(path, pattern string, idx int) (values sets.Set[string], ok bool, err error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx > re.NumSubexp() {
		return nil, false, fmt.Errorf("pattern %q has no group %d", pattern, idx)
	}
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, false, nil
	}
	defer f.Close()

	values = sets.New[string]()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		if m := re.FindStringSubmatch(sc.Text()); m != nil {
			values.Add(m[idx])
		}
	}
	if sc.Err() != nil {
		return nil, false, nil
	}
	return values, true, nil
}
