// Package session owns the single active PlayerState and resolves turns
// against it: build generator context, invoke the model, normalize the reply,
// fold deltas through the clamper and the ability registry, append the
// timeline entry, persist. A turn either fully resolves or fully fails; the
// committed state never reflects a partial turn.
package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"otherlife/internal/game"
	"otherlife/internal/generator"
	"otherlife/internal/normalize"
	"otherlife/internal/registry"
	"otherlife/internal/store"
)

// Session drives one logical game session. Exactly one turn may be in flight
// at a time; a second action while resolving fails fast with
// game.ErrTurnInFlight.
type Session struct {
	client     generator.Client
	store      store.Store
	normalizer *normalize.Normalizer
	registry   *registry.Registry
	logger     *zap.Logger

	historyWindow int
	now           func() time.Time

	// gate enforces the one-turn-at-a-time contract without blocking callers.
	gate *semaphore.Weighted

	state   *game.PlayerState
	offered []game.Option
}

// Options configures a Session.
type Options struct {
	Client        generator.Client
	Store         store.Store
	Logger        *zap.Logger
	HistoryWindow int

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// New creates a session, adopting persisted state when the store has any.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = 8
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		client:        opts.Client,
		store:         opts.Store,
		normalizer:    normalize.New(),
		registry:      registry.New(),
		logger:        logger,
		historyWindow: window,
		now:           now,
		gate:          semaphore.NewWeighted(1),
		state:         game.NewPlayerState(),
	}

	if s.store != nil {
		if saved, err := s.store.Load(); err == nil && saved != nil {
			s.state = saved
			logger.Info("restored persisted state",
				zap.Int("timeline", len(saved.Timeline)),
				zap.Int("abilities", len(saved.Abilities)))
		}
	}
	return s
}

// State returns a copy of the committed player state. Reading twice without
// an intervening turn yields identical values.
func (s *Session) State() *game.PlayerState {
	return s.state.Clone()
}

// OfferedOptions returns the options the last resolved turn offered.
func (s *Session) OfferedOptions() []game.Option {
	out := make([]game.Option, len(s.offered))
	copy(out, s.offered)
	return out
}

// Started reports whether this session has resolved an opening turn.
func (s *Session) Started() bool {
	return len(s.state.Timeline) > 0
}

// ResolveTurn processes one player action and returns the committed state
// plus any newly offered options. On any failure the previous state stands
// untouched and unpersisted.
func (s *Session) ResolveTurn(ctx context.Context, action game.Action) (*game.PlayerState, []game.Option, error) {
	if !s.gate.TryAcquire(1) {
		return nil, nil, game.ErrTurnInFlight
	}
	defer s.gate.Release(1)

	switch action.Kind {
	case game.ActionStart:
		// A start against a life in progress restarts it.
		if s.Started() {
			return s.restart(ctx)
		}
		return s.resolve(ctx, "/start", nil)

	case game.ActionRestart:
		return s.restart(ctx)

	case game.ActionOption:
		opt, ok := s.findOffered(action.OptionID)
		if !ok {
			return nil, nil, &game.ValidationError{Field: "option", Reason: "no offered option " + action.OptionID}
		}
		return s.resolve(ctx, generator.OptionInput(opt), &opt)

	case game.ActionFreeform:
		text := strings.TrimSpace(action.Text)
		if text == "" {
			return nil, nil, &game.ValidationError{Field: "input", Reason: "empty"}
		}
		if text == "/start" {
			if s.Started() {
				return s.restart(ctx)
			}
			return s.resolve(ctx, "/start", nil)
		}
		return s.resolve(ctx, text, nil)

	default:
		return nil, nil, &game.ValidationError{Field: "action", Reason: "unknown kind"}
	}
}

// restart wipes the session back to defaults and immediately plays the
// opening turn. The wipe itself commits: a restart is a player-visible reset
// even when the opening turn afterwards fails.
func (s *Session) restart(ctx context.Context) (*game.PlayerState, []game.Option, error) {
	fresh := game.NewPlayerState()
	fresh.Abilities = s.registry.ResetSet()
	s.state = fresh
	s.offered = nil

	if s.store != nil {
		if err := s.store.Reset(); err != nil {
			s.logger.Warn("reset persistence failed", zap.Error(err))
		}
	}
	s.logger.Info("session reset, starting new life")

	return s.resolve(ctx, "/start", nil)
}

// resolve runs one non-restart turn end to end against a staged copy of the
// state, committing only on full success.
func (s *Session) resolve(ctx context.Context, input string, chosen *game.Option) (*game.PlayerState, []game.Option, error) {
	messages := generator.BuildMessages(s.state, input, s.historyWindow)

	raw, err := s.client.Generate(ctx, messages)
	if err != nil {
		s.logger.Warn("generator call failed", zap.Error(err))
		return nil, nil, err
	}

	prior := normalize.PriorContext{
		OpeningTurn: !s.Started(),
		Age:         s.state.CurrentTime.Age.Int(),
		HasTraits:   true,
		HasTime:     s.state.CurrentTime.Date != "",
		Now:         s.now(),
	}
	result, err := s.normalizer.Normalize(raw, prior)
	if err != nil {
		s.logger.Warn("response rejected", zap.Error(err))
		return nil, nil, err
	}
	turn := result.Turn
	for _, w := range result.Warnings {
		s.logger.Debug("normalizer warning", zap.String("warning", w), zap.String("method", result.ParseMethod))
	}

	staged := s.state.Clone()

	// The chosen option's declared delta is authoritative; the generator's
	// own trait snapshot only applies when no mechanical delta exists.
	var delta game.TraitDelta
	switch {
	case chosen != nil:
		delta = chosen.TraitDelta
		staged.Traits = game.ApplyDelta(staged.Traits, delta)
	case turn.Traits != nil:
		staged.Traits = game.ClampTraits(*turn.Traits)
	}

	entry := game.NewTimelineEntry(input, turn.Message)
	entry.TraitDelta = delta
	entry.TimeSpan = turn.TimeSpan
	if chosen != nil {
		entry.ChosenOption = chosen.ID
	}

	if turn.Ability != nil {
		decision := s.registry.TryGrant(staged.Abilities, *turn.Ability)
		if decision.Granted != nil {
			staged.Abilities = append(staged.Abilities, *decision.Granted)
			entry.GrantedAbility = decision.Granted
			s.logger.Info("ability unlocked",
				zap.String("command", decision.Granted.Command))
		} else {
			// Rejected proposals are dropped from state; the reason stays
			// available for diagnostics.
			s.logger.Debug("ability rejected",
				zap.String("command", turn.Ability.Command),
				zap.String("reason", decision.Reason),
				zap.String("conflicts_with", decision.Similar))
		}
	}

	if turn.BirthInfo != nil {
		staged.BirthInfo = *turn.BirthInfo
	}
	if turn.CurrentTime != nil {
		staged.CurrentTime = *turn.CurrentTime
	}
	staged.Timeline = append(staged.Timeline, entry)

	// Commit, then persist. Persistence failures never undo a resolved turn.
	s.state = staged
	s.offered = turn.Options
	if s.store != nil {
		if err := s.store.Save(staged); err != nil {
			s.logger.Warn("persist failed, in-memory state remains authoritative", zap.Error(err))
		}
	}

	return s.State(), s.OfferedOptions(), nil
}

func (s *Session) findOffered(id string) (game.Option, bool) {
	for _, opt := range s.offered {
		if strings.EqualFold(opt.ID, id) {
			return opt, true
		}
	}
	return game.Option{}, false
}
