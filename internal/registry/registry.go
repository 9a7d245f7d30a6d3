// Package registry decides whether a proposed ability may join the active
// set. The generator produces free-form command tokens, so exact matching is
// not enough: near-duplicate narrative abilities ("/sob" after "/cry") are
// caught by a similarity predicate before they inflate the ability list.
package registry

import (
	"strings"

	"otherlife/internal/game"
)

// Rejection reasons reported by TryGrant.
const (
	ReasonGranted          = "granted"
	ReasonDuplicateExact   = "duplicate-exact"
	ReasonDuplicateSimilar = "duplicate-similar"
)

// SimilarityFunc reports whether two abilities are close enough that granting
// both would be a duplicate. The predicate is pluggable so clusters can be
// extended or replaced without touching grant control flow.
type SimilarityFunc func(a, b game.Ability) bool

// Decision is the outcome of one grant check. Granted is nil when the
// proposal was rejected; Similar names the existing ability that blocked a
// similarity rejection.
type Decision struct {
	Granted *game.Ability
	Reason  string
	Similar string
}

// Registry runs grant checks against the ability set a PlayerState owns. It
// holds no state of its own beyond the similarity predicate.
type Registry struct {
	similar SimilarityFunc
}

// New returns a Registry using the default keyword-cluster predicate.
func New() *Registry {
	return &Registry{similar: DefaultSimilarity}
}

// NewWithSimilarity returns a Registry with a custom predicate. A nil
// predicate disables similarity checks, leaving only exact matching.
func NewWithSimilarity(fn SimilarityFunc) *Registry {
	return &Registry{similar: fn}
}

// TryGrant checks a proposed ability against the existing set. Exact command
// duplicates (case-insensitive) are rejected first; otherwise the similarity
// predicate runs against each existing ability.
func (r *Registry) TryGrant(existing []game.Ability, proposed game.Ability) Decision {
	for _, have := range existing {
		if strings.EqualFold(have.Command, proposed.Command) {
			return Decision{Reason: ReasonDuplicateExact, Similar: have.Command}
		}
	}

	if r.similar != nil {
		for _, have := range existing {
			if r.similar(have, proposed) {
				return Decision{Reason: ReasonDuplicateSimilar, Similar: have.Command}
			}
		}
	}

	granted := proposed
	return Decision{Granted: &granted, Reason: ReasonGranted}
}

// ResetSet returns the ability set a fresh life starts with: exactly the
// built-in restart ability. Run before any grant check on a full-reset turn.
func (r *Registry) ResetSet() []game.Ability {
	return []game.Ability{game.RestartAbility()}
}

// DefaultSimilarity is the stock predicate: command tokens with their leading
// marker stripped are compared as substrings of each other, and descriptions
// are checked for keywords of the same synonym cluster. Description matching
// is skipped when either description is empty.
func DefaultSimilarity(a, b game.Ability) bool {
	ca := strings.ToLower(strings.TrimPrefix(a.Command, "/"))
	cb := strings.ToLower(strings.TrimPrefix(b.Command, "/"))
	if ca != "" && cb != "" {
		if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
			return true
		}
	}

	da := strings.ToLower(a.Description)
	db := strings.ToLower(b.Description)
	if da == "" || db == "" {
		return false
	}

	for _, cluster := range synonymClusters {
		if containsAny(da, cluster) && containsAny(db, cluster) {
			return true
		}
	}
	return false
}

// synonymClusters group near-synonymous ability concepts. Two descriptions
// that each contain a keyword from the same cluster count as similar.
var synonymClusters = [][]string{
	{"哭", "哭泣", "流泪", "大哭", "泪", "cry", "sob", "weep", "tear"},
	{"撒谎", "欺骗", "说谎", "谎言", "骗", "隐瞒", "lie", "lying", "deceive", "deceit", "deception"},
	{"魅力", "诱惑", "迷人", "吸引", "charm", "seduce", "seduction"},
	{"威胁", "恐吓", "threat", "intimidate", "intimidation"},
	{"反抗", "叛逆", "违抗", "rebel", "defy", "defiance"},
	{"操控", "控制", "影响", "操纵", "manipulate", "manipulation", "control"},
	{"背叛", "出卖", "betray", "betrayal"},
	{"牺牲", "奉献", "献身", "sacrifice"},
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
