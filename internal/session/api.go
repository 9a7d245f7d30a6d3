package session

import (
	"context"

	"otherlife/internal/game"
)

// Envelope is the caller-facing result shape. No internal error type crosses
// this boundary; failures flatten to a plain message.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TurnOutcome is the Data payload of a resolved turn.
type TurnOutcome struct {
	State   *game.PlayerState `json:"state"`
	Options []game.Option     `json:"options"`
}

func ok(data interface{}) Envelope { return Envelope{Success: true, Data: data} }
func fail(err error) Envelope      { return Envelope{Success: false, Error: err.Error()} }

// StartNewLife plays the opening turn (or restarts a life in progress).
func (s *Session) StartNewLife(ctx context.Context) Envelope {
	state, options, err := s.ResolveTurn(ctx, game.StartAction())
	if err != nil {
		return fail(err)
	}
	return ok(TurnOutcome{State: state, Options: options})
}

// SubmitOption resolves a turn for one of the offered A/B options.
func (s *Session) SubmitOption(ctx context.Context, id string) Envelope {
	state, options, err := s.ResolveTurn(ctx, game.OptionAction(id))
	if err != nil {
		return fail(err)
	}
	return ok(TurnOutcome{State: state, Options: options})
}

// SubmitFreeform resolves a turn for arbitrary player text.
func (s *Session) SubmitFreeform(ctx context.Context, text string) Envelope {
	state, options, err := s.ResolveTurn(ctx, game.FreeformAction(text))
	if err != nil {
		return fail(err)
	}
	return ok(TurnOutcome{State: state, Options: options})
}

// GetState returns the committed state without resolving anything.
func (s *Session) GetState() Envelope {
	return ok(TurnOutcome{State: s.State(), Options: s.OfferedOptions()})
}

// ResetGame wipes the session and plays a fresh opening turn.
func (s *Session) ResetGame(ctx context.Context) Envelope {
	state, options, err := s.ResolveTurn(ctx, game.RestartAction())
	if err != nil {
		return fail(err)
	}
	return ok(TurnOutcome{State: state, Options: options})
}
