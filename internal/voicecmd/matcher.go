package voicecmd

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the minimum similarity score for a fuzzy match.
const DefaultThreshold = 0.8

// DefaultAmbiguityDelta is the max score gap that still counts as a tie.
const DefaultAmbiguityDelta = 0.1

// ResultKind distinguishes the shape of a MatchResult.
type ResultKind int

const (
	NoMatch ResultKind = iota
	Exact
	Fuzzy
	Ambiguous
)

// Candidate is one scored command match.
type Candidate struct {
	Command    Command
	Score      float64
	Parameters map[string]string
}

// MatchResult is the outcome of Matcher.Match.
type MatchResult struct {
	Kind       ResultKind
	Candidate  Candidate   // valid when Kind is Exact or Fuzzy
	Candidates []Candidate // valid when Kind is Ambiguous
}

// MatcherConfig tunes the fuzzy-match threshold and ambiguity window.
type MatcherConfig struct {
	Threshold      float64
	AmbiguityDelta float64
}

// DefaultMatcherConfig returns the default thresholds.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{Threshold: DefaultThreshold, AmbiguityDelta: DefaultAmbiguityDelta}
}

// Matcher scores normalized transcribed text against a set of commands.
// It holds no state of its own — Registry owns the command set.
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher returns a Matcher with the default configuration.
func NewMatcher() *Matcher { return &Matcher{cfg: DefaultMatcherConfig()} }

// NewMatcherWithConfig returns a Matcher using cfg.
func NewMatcherWithConfig(cfg MatcherConfig) *Matcher { return &Matcher{cfg: cfg} }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// tryExtractParams matches a "{param}" trigger pattern: input must start
// with the fixed prefix before the placeholder, and the remainder becomes
// the parameter value.
func tryExtractParams(input, trigger string) (map[string]string, bool) {
	idx := strings.IndexByte(trigger, '{')
	if idx < 0 {
		return nil, false
	}
	close := strings.IndexByte(trigger[idx:], '}')
	if close < 0 {
		return nil, false
	}
	prefix := strings.TrimSpace(trigger[:idx])
	paramName := strings.TrimSpace(trigger[idx+1 : idx+close])
	if paramName == "" {
		return nil, false
	}

	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(strings.ToLower(trimmed), normalize(prefix)) {
		return nil, false
	}
	value := strings.TrimSpace(trimmed[len(prefix):])
	return map[string]string{paramName: value}, true
}

func normalizedSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

func (m *Matcher) matchOne(input string, cmd Command) (Candidate, bool) {
	if !cmd.Enabled {
		return Candidate{}, false
	}

	if params, ok := tryExtractParams(input, cmd.Trigger); ok {
		return Candidate{Command: cmd, Score: 1.0, Parameters: params}, true
	}

	normInput, normTrigger := normalize(input), normalize(cmd.Trigger)
	if normInput == normTrigger {
		return Candidate{Command: cmd, Score: 1.0, Parameters: map[string]string{}}, true
	}

	score := normalizedSimilarity(normInput, normTrigger)
	if score >= m.cfg.Threshold {
		return Candidate{Command: cmd, Score: score, Parameters: map[string]string{}}, true
	}
	return Candidate{}, false
}

// Match scores input against commands and classifies the result: a single
// winner resolves to Exact/Fuzzy, a score-1.0 winner
// is always Exact, two or more candidates within AmbiguityDelta of the top
// score resolve to Ambiguous (no action fires), and nothing crossing
// Threshold resolves to NoMatch.
func (m *Matcher) Match(input string, commands []Command) MatchResult {
	var candidates []Candidate
	for _, cmd := range commands {
		if c, ok := m.matchOne(input, cmd); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	switch len(candidates) {
	case 0:
		return MatchResult{Kind: NoMatch}
	case 1:
		return MatchResult{Kind: kindFor(candidates[0].Score), Candidate: candidates[0]}
	default:
		top := candidates[0].Score
		var close []Candidate
		for _, c := range candidates {
			if top-c.Score <= m.cfg.AmbiguityDelta {
				close = append(close, c)
			}
		}
		if len(close) > 1 {
			return MatchResult{Kind: Ambiguous, Candidates: close}
		}
		return MatchResult{Kind: kindFor(candidates[0].Score), Candidate: candidates[0]}
	}
}

func kindFor(score float64) ResultKind {
	if score >= 1.0-1e-9 {
		return Exact
	}
	return Fuzzy
}
