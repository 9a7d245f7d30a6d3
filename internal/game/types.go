// Package game defines the persistent data model for the life simulation:
// the five-dimension trait vector, unlockable abilities, the append-only
// timeline, and the aggregate PlayerState that the turn resolver owns.
package game

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TraitVector is the five-dimension personality model tracked across a
// session. Every dimension is an integer held in [0,100]; the dimension set
// never changes shape.
type TraitVector struct {
	SensingOpenness      int `json:"sensingOpenness"`
	LiteralCommunication int `json:"literalCommunication"`
	EmotionalSync        int `json:"emotionalSync"`
	FocusGravity         int `json:"focusGravity"`
	SocialFriction       int `json:"socialFriction"`
}

// TraitDelta is a partial trait movement. Dimensions left at zero are
// untouched when the delta is applied.
type TraitDelta struct {
	SensingOpenness      int `json:"sensingOpenness,omitempty"`
	LiteralCommunication int `json:"literalCommunication,omitempty"`
	EmotionalSync        int `json:"emotionalSync,omitempty"`
	FocusGravity         int `json:"focusGravity,omitempty"`
	SocialFriction       int `json:"socialFriction,omitempty"`
}

// IsZero reports whether the delta moves no dimension.
func (d TraitDelta) IsZero() bool {
	return d == TraitDelta{}
}

// Ability is a narrative-unlockable player capability: a slash-command token
// plus a free-form description. Commands are unique (case-insensitive) within
// the active set; descriptions feed similarity checks only.
type Ability struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// RestartAbility is the single built-in ability every life starts with.
func RestartAbility() Ability {
	return Ability{Command: "/start", Description: "重新开始人生"}
}

// BirthInfo records where and when a life began.
type BirthInfo struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// CurrentTime is the in-story clock.
type CurrentTime struct {
	Date string  `json:"date"`
	Time string  `json:"time"`
	Age  FlexInt `json:"age"`
}

// TimeSpan represents the in-story time elapsed by one turn.
type TimeSpan struct {
	FromDate        string  `json:"fromDate"`
	FromTime        string  `json:"fromTime"`
	ToDate          string  `json:"toDate"`
	ToTime          string  `json:"toTime"`
	DurationMinutes FlexInt `json:"duration"`
}

// Option is one of the A/B choices offered after a turn. Options are
// ephemeral: only the chosen one's delta survives, folded into the resulting
// timeline entry.
type Option struct {
	ID          string     `json:"id"`
	Label       string     `json:"text"`
	Consequence string     `json:"consequence,omitempty"`
	TraitDelta  TraitDelta `json:"personalityChange"`
}

// TimelineEntry is one resolved turn. Entries are immutable once created and
// the timeline is append-only.
type TimelineEntry struct {
	ID             string     `json:"id"`
	Timestamp      string     `json:"timestamp"`
	UserInput      string     `json:"userInput"`
	Narrative      string     `json:"narrative"`
	ChosenOption   string     `json:"chosenOption,omitempty"`
	GrantedAbility *Ability   `json:"grantedAbility,omitempty"`
	TraitDelta     TraitDelta `json:"traitDelta"`
	TimeSpan       *TimeSpan  `json:"timeSpan,omitempty"`
}

// NewTimelineEntry stamps a fresh entry with a uuid and the wall-clock time.
func NewTimelineEntry(userInput, narrative string) TimelineEntry {
	return TimelineEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserInput: userInput,
		Narrative: narrative,
	}
}

// PlayerState is the single owned aggregate of a session. The turn resolver
// is its only writer; everything else sees copies or derived views.
type PlayerState struct {
	BirthInfo   BirthInfo       `json:"birthInfo"`
	CurrentTime CurrentTime     `json:"currentTime"`
	Traits      TraitVector     `json:"traits"`
	Timeline    []TimelineEntry `json:"timeline"`
	Abilities   []Ability       `json:"abilities"`
}

// NewPlayerState returns the default state for a fresh life: age 0, every
// trait at mid-range, and only the built-in restart ability unlocked.
func NewPlayerState() *PlayerState {
	return &PlayerState{
		CurrentTime: CurrentTime{Age: 0},
		Traits:      NeutralTraits(),
		Abilities:   []Ability{RestartAbility()},
	}
}

// Clone deep-copies the state so a turn can be staged without mutating the
// committed aggregate.
func (s *PlayerState) Clone() *PlayerState {
	out := *s
	out.Timeline = make([]TimelineEntry, len(s.Timeline))
	copy(out.Timeline, s.Timeline)
	out.Abilities = make([]Ability, len(s.Abilities))
	copy(out.Abilities, s.Abilities)
	return &out
}

// HasAbility reports whether a command is already unlocked
// (case-insensitive).
func (s *PlayerState) HasAbility(command string) bool {
	for _, a := range s.Abilities {
		if strings.EqualFold(a.Command, command) {
			return true
		}
	}
	return false
}

// AbilityCommands returns the unlocked command tokens in grant order.
func (s *PlayerState) AbilityCommands() []string {
	cmds := make([]string, len(s.Abilities))
	for i, a := range s.Abilities {
		cmds[i] = a.Command
	}
	return cmds
}

// RecentTimeline returns at most the last n timeline entries.
func (s *PlayerState) RecentTimeline(n int) []TimelineEntry {
	if n <= 0 || len(s.Timeline) <= n {
		return s.Timeline
	}
	return s.Timeline[len(s.Timeline)-n:]
}

// TurnResult is the structured, validated form of one generator reply. The
// normalizer guarantees Message is non-empty and Options is well-formed; the
// pointer fields stay nil when the generator omitted them.
type TurnResult struct {
	Message     string       `json:"message"`
	BirthInfo   *BirthInfo   `json:"birthInfo,omitempty"`
	CurrentTime *CurrentTime `json:"currentTime,omitempty"`
	Traits      *TraitVector `json:"ocean,omitempty"`
	Options     []Option     `json:"choices"`
	Ability     *Ability     `json:"skillCommand,omitempty"`
	TimeSpan    *TimeSpan    `json:"timeProgression,omitempty"`
}

// ActionKind discriminates the player actions a session accepts.
type ActionKind string

const (
	ActionStart    ActionKind = "start"
	ActionRestart  ActionKind = "restart"
	ActionOption   ActionKind = "option"
	ActionFreeform ActionKind = "freeform"
)

// Action is the tagged player-input variant fed to the turn resolver.
// Exactly the fields relevant to Kind are set.
type Action struct {
	Kind     ActionKind
	OptionID string // option: "A" or "B"
	Text     string // freeform: raw player text
}

// StartAction begins the first life of a session.
func StartAction() Action { return Action{Kind: ActionStart} }

// RestartAction wipes the session and begins a new life.
func RestartAction() Action { return Action{Kind: ActionRestart} }

// OptionAction selects one of the offered A/B options.
func OptionAction(id string) Action { return Action{Kind: ActionOption, OptionID: id} }

// FreeformAction submits arbitrary player text.
func FreeformAction(text string) Action { return Action{Kind: ActionFreeform, Text: text} }

// FlexInt is an int that tolerates the generator's numeric quirks: JSON
// numbers, quoted numbers, leading plus signs, and trailing prose such as
// "120分钟". Unparseable values decode to zero rather than failing the turn.
type FlexInt int

// UnmarshalJSON implements tolerant numeric decoding.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(strings.TrimPrefix(s, "+"))

	// Keep the leading signed-integer run, drop trailing prose.
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || (end == 0 && c == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON writes a plain number.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Int returns the value as a plain int.
func (f FlexInt) Int() int { return int(f) }
