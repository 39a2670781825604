// Package structure recognizes the hierarchical numbering of Korean
// policy documents and judges whether a chunk was cut mid-section.
//
// Five levels are recognized: article headers (제N조/장/절), ho (가.),
// mok (1.), item (①), and subitem (a.). Truncation signals at either end
// of a chunk drive the context expansion direction.
package structure

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// Hierarchy levels, top to bottom.
const (
	LevelArticle = 1
	LevelHo      = 2
	LevelMok     = 3
	LevelItem    = 4
	LevelSubitem = 5
)

// Element is one detected structural marker.
type Element struct {
	// Text is the matched marker, e.g. "제28조" or "①".
	Text string
	// Value is the ordinal payload: "28", "가", "1", "①", "a".
	Value string
	// Line is the trimmed line the marker starts.
	Line string
	// LineNum is the zero-based line index within the chunk.
	LineNum int
	Level   int
}

// Structure holds all detected markers grouped by level.
type Structure struct {
	Articles []Element
	Ho       []Element
	Mok      []Element
	Items    []Element
	Subitems []Element

	// HighestLevel and LowestLevel bound the levels present (0 = none).
	HighestLevel int
	LowestLevel  int
}

// Completeness is the truncation verdict for one chunk.
type Completeness struct {
	IsComplete     bool
	StartTruncated bool
	EndTruncated   bool
	Direction      store.Direction
	Structure      Structure
	Reasons        []string
	FrontIssues    []string
	BackIssues     []string
}

type levelPatterns struct {
	level    int
	patterns []*regexp.Regexp
}

var hierarchy = []levelPatterns{
	{LevelArticle, []*regexp.Regexp{
		regexp.MustCompile(`^제\s*(\d+)\s*조`),
		regexp.MustCompile(`^제\s*(\d+)\s*장`),
		regexp.MustCompile(`^제\s*(\d+)\s*절`),
	}},
	{LevelHo, []*regexp.Regexp{
		regexp.MustCompile(`^\s*([가-힣])\.\s`),
		regexp.MustCompile(`^\s*\(([가-힣])\)`),
		regexp.MustCompile(`^\s*([ㄱ-ㅎ])\.\s`),
	}},
	{LevelMok, []*regexp.Regexp{
		regexp.MustCompile(`^\s*(\d+)\.\s`),
		regexp.MustCompile(`^\s*\((\d+)\)`),
		regexp.MustCompile(`^\s*(\d+)\)\s`),
	}},
	{LevelItem, []*regexp.Regexp{
		regexp.MustCompile(`^\s*([①②③④⑤⑥⑦⑧⑨⑩⑪⑫⑬⑭⑮])`),
		regexp.MustCompile(`^\s*([㉠㉡㉢㉣㉤㉥㉦㉧㉨㉩])`),
	}},
	{LevelSubitem, []*regexp.Regexp{
		regexp.MustCompile(`^\s*([a-z])\.\s`),
		regexp.MustCompile(`^\s*\(([a-z])\)`),
		regexp.MustCompile(`^\s*([a-z])\)\s`),
	}},
}

var circleNumbers = map[string]int{
	"①": 1, "②": 2, "③": 3, "④": 4, "⑤": 5,
	"⑥": 6, "⑦": 7, "⑧": 8, "⑨": 9, "⑩": 10,
	"⑪": 11, "⑫": 12, "⑬": 13, "⑭": 14, "⑮": 15,
}

var hangulOrder = map[string]int{
	"가": 1, "나": 2, "다": 3, "라": 4, "마": 5,
	"바": 6, "사": 7, "아": 8, "자": 9, "차": 10,
}

// Front truncation: a chunk should not open with ellipses, closers, verb
// endings, or a bare particle.
var incompleteStartPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`^\.{2,}`), "starts with ellipsis"},
	{regexp.MustCompile(`^[)\]}"'”’]`), "starts with closing bracket or quote"},
	{regexp.MustCompile(`^(한다|하여|된다|되어|있다|없다|이다)`), "starts with verb ending"},
	{regexp.MustCompile(`^[을를의에게는이가와과도]\s`), "starts with bare particle"},
	{regexp.MustCompile(`^\)[와과를을의에]`), "starts with closing bracket and particle"},
}

var sentenceEndRe = regexp.MustCompile(`[.!?。]$`)

// Tail patterns checked only when no sentence terminator is present.
var incompleteEndPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[는을를가이에]\s*$`),
	regexp.MustCompile(`(하|된|하여)\s*$`),
	regexp.MustCompile(`[^\s가-힣]{1,2}\s*$`),
}

// Analyzer detects document structure and judges chunk completeness.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze scans content line by line and returns all structural markers.
// A line contributes at most one marker, from the highest matching level.
func (a *Analyzer) Analyze(content string) Structure {
	var s Structure

	lines := strings.Split(strings.TrimSpace(content), "\n")
	for num, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

	levels:
		for _, lp := range hierarchy {
			for _, re := range lp.patterns {
				m := re.FindStringSubmatch(trimmed)
				if m == nil {
					continue
				}
				el := Element{
					Text:    strings.TrimSpace(m[0]),
					Value:   m[1],
					Line:    trimmed,
					LineNum: num,
					Level:   lp.level,
				}
				switch lp.level {
				case LevelArticle:
					s.Articles = append(s.Articles, el)
				case LevelHo:
					s.Ho = append(s.Ho, el)
				case LevelMok:
					s.Mok = append(s.Mok, el)
				case LevelItem:
					s.Items = append(s.Items, el)
				case LevelSubitem:
					s.Subitems = append(s.Subitems, el)
				}
				break levels
			}
		}
	}

	for _, group := range [][]Element{s.Articles, s.Ho, s.Mok, s.Items, s.Subitems} {
		if len(group) == 0 {
			continue
		}
		level := group[0].Level
		if s.HighestLevel == 0 || level < s.HighestLevel {
			s.HighestLevel = level
		}
		if level > s.LowestLevel {
			s.LowestLevel = level
		}
	}

	return s
}

// sequenceIssue is a numbering discontinuity within one level.
type sequenceIssue struct {
	startsAt int // first number when it is not 1, else 0
	gapFrom  int // gap lower bound, else 0
	gapTo    int // gap upper bound
	message  string
}

// checkSequence finds ordering problems in one level's markers.
func checkSequence(name string, items []Element) []sequenceIssue {
	var numbers []int
	for _, it := range items {
		n := ordinal(it)
		if n > 0 {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return nil
	}

	sort.Ints(numbers)

	var issues []sequenceIssue
	if numbers[0] != 1 {
		issues = append(issues, sequenceIssue{
			startsAt: numbers[0],
			message:  fmt.Sprintf("%s numbering starts at %d, not 1", name, numbers[0]),
		})
	}
	for i := 0; i+1 < len(numbers); i++ {
		if numbers[i+1]-numbers[i] > 1 {
			issues = append(issues, sequenceIssue{
				gapFrom: numbers[i],
				gapTo:   numbers[i+1],
				message: fmt.Sprintf("%s numbering gap: %d to %d", name, numbers[i], numbers[i+1]),
			})
		}
	}
	return issues
}

// ordinal maps an element's value to its sequence number (0 = unknown).
func ordinal(el Element) int {
	switch el.Level {
	case LevelItem:
		return circleNumbers[el.Value]
	case LevelHo:
		return hangulOrder[el.Value]
	case LevelMok, LevelSubitem:
		if n, err := strconv.Atoi(el.Value); err == nil {
			return n
		}
		// Subitem letters: a=1, b=2, ...
		if len(el.Value) == 1 && el.Value[0] >= 'a' && el.Value[0] <= 'z' {
			return int(el.Value[0]-'a') + 1
		}
	}
	return 0
}

// CheckCompleteness judges whether a chunk is cut at either end and which
// direction expansion should take.
func (a *Analyzer) CheckCompleteness(content string) Completeness {
	s := a.Analyze(content)
	trimmed := strings.TrimSpace(content)

	c := Completeness{Structure: s}

	// Front: incomplete opening patterns
	for _, p := range incompleteStartPatterns {
		if p.re.MatchString(trimmed) {
			c.StartTruncated = true
			c.Reasons = append(c.Reasons, p.reason)
			c.FrontIssues = append(c.FrontIssues, p.reason)
			break
		}
	}

	// Front: sub-level markers with no article header above them
	if len(s.Articles) == 0 &&
		(len(s.Ho) > 0 || len(s.Mok) > 0 || len(s.Items) > 0 || len(s.Subitems) > 0) {
		reason := "items present without an article header"
		c.StartTruncated = true
		c.Reasons = append(c.Reasons, reason)
		c.FrontIssues = append(c.FrontIssues, reason)
	}

	// Numbering: start offset is a front signal, gaps are a back signal
	for _, group := range []struct {
		name  string
		items []Element
	}{{"ho", s.Ho}, {"mok", s.Mok}, {"item", s.Items}} {
		for _, issue := range checkSequence(group.name, group.items) {
			if issue.startsAt > 0 {
				c.StartTruncated = true
				c.Reasons = append(c.Reasons, issue.message)
				c.FrontIssues = append(c.FrontIssues, issue.message)
			}
			if issue.gapFrom > 0 {
				c.EndTruncated = true
				c.Reasons = append(c.Reasons, issue.message)
				c.BackIssues = append(c.BackIssues, issue.message)
			}
		}
	}

	// Back: missing sentence terminator, then particle or dangling tail.
	// A chunk ending in a terminator has a sound tail; the fragment
	// patterns only apply when the terminator is already missing.
	if trimmed != "" && !sentenceEndRe.MatchString(trimmed) {
		reason := "no sentence terminator"
		c.EndTruncated = true
		c.Reasons = append(c.Reasons, reason)
		c.BackIssues = append(c.BackIssues, reason)

		for _, re := range incompleteEndPatterns {
			if re.MatchString(trimmed) {
				tail := "ends with particle or dangling fragment"
				c.Reasons = append(c.Reasons, tail)
				c.BackIssues = append(c.BackIssues, tail)
				break
			}
		}
	}

	// Back: unbalanced opening brackets
	open := strings.Count(content, "(") + strings.Count(content, "[") + strings.Count(content, "{")
	closed := strings.Count(content, ")") + strings.Count(content, "]") + strings.Count(content, "}")
	if open > closed {
		reason := "unbalanced opening brackets"
		c.EndTruncated = true
		c.Reasons = append(c.Reasons, reason)
		c.BackIssues = append(c.BackIssues, reason)
	}

	switch {
	case c.StartTruncated && c.EndTruncated:
		c.Direction = store.DirectionBoth
	case c.StartTruncated:
		c.Direction = store.DirectionPrev
	case c.EndTruncated:
		c.Direction = store.DirectionNext
	default:
		c.Direction = store.DirectionNone
	}
	c.IsComplete = !c.StartTruncated && !c.EndTruncated

	a.logger.Debug("completeness check",
		"complete", c.IsComplete,
		"direction", string(c.Direction),
		"front_issues", len(c.FrontIssues),
		"back_issues", len(c.BackIssues))

	return c
}

// StartsNewSection reports whether the first line of content opens a new
// article, chapter, section, or numbered heading. The expander uses this
// to stop forward expansion at semantic boundaries.
func StartsNewSection(content string, pivotHasTable bool) bool {
	first := firstLine(content)
	if first == "" {
		return false
	}
	for _, re := range sectionStartRes {
		if re.MatchString(first) {
			return true
		}
	}
	if !pivotHasTable && strings.HasPrefix(first, "|") && strings.HasSuffix(first, "|") {
		return true
	}
	return false
}

var sectionStartRes = []*regexp.Regexp{
	regexp.MustCompile(`^제\d+조`),
	regexp.MustCompile(`^제\d+장`),
	regexp.MustCompile(`^제\d+절`),
	regexp.MustCompile(`^\d+\.\s+[가-힣]+`),
}

// HasTable reports whether content contains a markdown-style table row.
func HasTable(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|") && len(t) > 1 {
			return true
		}
	}
	return false
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
