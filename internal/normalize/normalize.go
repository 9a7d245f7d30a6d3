// Package normalize converts untrusted generator text into a structured,
// validated turn result. The generator is a schema-free text producer: its
// output is "probably JSON, possibly prose", so parsing runs as a pipeline of
// fallible repair stages with a guaranteed-success synthetic terminal stage,
// followed by field validation that can still reject the turn.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"otherlife/internal/game"
)

// Parse methods reported on a normalized result.
const (
	ParseStrict    = "strict"
	ParseExtracted = "extracted"
	ParseSynthetic = "synthetic"
)

// PriorContext is what the normalizer knows about the session before this
// turn. It steers fallback synthesis and lets validation resolve fields the
// generator omitted against prior state.
type PriorContext struct {
	// OpeningTurn marks the first turn of a life; a synthetic fallback then
	// produces a birth scene instead of a generic continuation.
	OpeningTurn bool

	// Age is the player's current in-story age, used by continuation
	// fallbacks.
	Age int

	// HasTraits/HasTime report whether prior state can supply a trait vector
	// or a current-time value when the response lacks one.
	HasTraits bool
	HasTime   bool

	// Now is the clock used for synthesized dates. Zero means time.Now.
	Now time.Time
}

func (p PriorContext) now() time.Time {
	if p.Now.IsZero() {
		return time.Now()
	}
	return p.Now
}

// Result is a normalized turn plus parsing metadata.
type Result struct {
	Turn        *game.TurnResult
	ParseMethod string
	Warnings    []string
}

// Stats tracks pipeline outcomes for diagnostics.
type Stats struct {
	TotalProcessed     int
	StrictParses       int
	ExtractedParses    int
	Synthesized        int
	ValidationFailures int
}

// Normalizer repairs and validates raw generator output.
type Normalizer struct {
	// MaxOptions bounds the offered options; extra entries are dropped with a
	// warning.
	MaxOptions int

	stats Stats
}

// New returns a Normalizer with the standard two-option bound.
func New() *Normalizer {
	return &Normalizer{MaxOptions: 2}
}

// plusSign matches the generator quirk of writing numeric fields as ": +3".
var plusSign = regexp.MustCompile(`:\s*\+(\d+)`)

// Normalize runs the full pipeline on one raw reply. It either returns a
// well-formed turn or a *game.MalformedResponseError naming the fields that
// could not be resolved; it never guesses silently past validation.
func (n *Normalizer) Normalize(raw string, prior PriorContext) (*Result, error) {
	n.stats.TotalProcessed++

	cleaned := repair(raw)

	if turn, ok := n.parseStrict(cleaned); ok {
		return n.validate(turn, ParseStrict, nil, prior)
	}

	// The strict slice failed; rescan the original text for any parseable
	// top-level object, largest first.
	candidates := findJSONCandidates(repairNumbers(raw))
	for i := len(candidates) - 1; i >= 0; i-- {
		if turn, ok := n.parseStrict(candidates[i]); ok {
			return n.validate(turn, ParseExtracted,
				[]string{"structured payload extracted from mixed content"}, prior)
		}
	}

	// Terminal stage: deterministic synthetic turn built from the prose.
	n.stats.Synthesized++
	turn := n.synthesize(raw, prior)
	return &Result{
		Turn:        turn,
		ParseMethod: ParseSynthetic,
		Warnings:    []string{"no structured payload found, synthesized turn from raw text"},
	}, nil
}

// Stats returns a copy of the pipeline counters.
func (n *Normalizer) Stats() Stats { return n.stats }

// repair strips markdown fences, slices the outermost brace pair, and
// rewrites plus-signed numbers.
func repair(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	// Drop any prose the generator wrapped around the object.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && start < end {
		s = s[start : end+1]
	}

	return repairNumbers(s)
}

// repairNumbers rewrites the literal-plus quirk (": +3" -> ": 3") before
// structural parsing.
func repairNumbers(s string) string {
	return plusSign.ReplaceAllString(s, ": $1")
}

// wireTurn mirrors game.TurnResult with a raw choices field so validation can
// distinguish an absent array from an empty or malformed one.
type wireTurn struct {
	Message     string            `json:"message"`
	BirthInfo   *game.BirthInfo   `json:"birthInfo"`
	CurrentTime *game.CurrentTime `json:"currentTime"`
	Traits      *game.TraitVector `json:"ocean"`
	Choices     json.RawMessage   `json:"choices"`
	Ability     *game.Ability     `json:"skillCommand"`
	TimeSpan    *game.TimeSpan    `json:"timeProgression"`
}

func (n *Normalizer) parseStrict(s string) (*wireTurn, bool) {
	var w wireTurn
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, false
	}
	// A reply that parses but carries no recognizable field is prose that
	// happened to contain braces; let later stages handle it.
	if w.Message == "" && w.Choices == nil && w.Traits == nil {
		return nil, false
	}
	return &w, true
}

// validate applies the post-parse rules: message present, options an array of
// at most MaxOptions entries, and a trait vector plus a current time
// resolvable from the response or prior state.
func (n *Normalizer) validate(w *wireTurn, method string, warnings []string, prior PriorContext) (*Result, error) {
	var missing []string

	if strings.TrimSpace(w.Message) == "" {
		missing = append(missing, "message")
	}

	var opts []game.Option
	switch {
	case w.Choices == nil:
		missing = append(missing, "choices")
	default:
		if err := json.Unmarshal(w.Choices, &opts); err != nil {
			missing = append(missing, "choices (not array)")
		}
	}
	if len(opts) > n.MaxOptions {
		warnings = append(warnings, "extra options dropped")
		opts = opts[:n.MaxOptions]
	}

	if w.Traits == nil && !prior.HasTraits {
		missing = append(missing, "ocean")
	}
	if w.CurrentTime == nil && !prior.HasTime {
		missing = append(missing, "currentTime")
	}

	if len(missing) > 0 {
		n.stats.ValidationFailures++
		return nil, &game.MalformedResponseError{Missing: missing}
	}

	if method == ParseStrict {
		n.stats.StrictParses++
	} else {
		n.stats.ExtractedParses++
	}

	turn := &game.TurnResult{
		Message:     strings.TrimSpace(w.Message),
		BirthInfo:   w.BirthInfo,
		CurrentTime: w.CurrentTime,
		Traits:      w.Traits,
		Options:     opts,
		Ability:     w.Ability,
		TimeSpan:    normalizeTimeSpan(w.TimeSpan),
	}
	return &Result{Turn: turn, ParseMethod: method, Warnings: warnings}, nil
}

// normalizeTimeSpan clamps a negative duration to zero. FlexInt already
// coerced textual durations during decoding.
func normalizeTimeSpan(ts *game.TimeSpan) *game.TimeSpan {
	if ts == nil {
		return nil
	}
	if ts.DurationMinutes < 0 {
		out := *ts
		out.DurationMinutes = 0
		return &out
	}
	return ts
}
