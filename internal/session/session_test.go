package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"otherlife/internal/game"
	"otherlife/internal/generator"
	"otherlife/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (a transitive dependency of the generator's genai
	// client) starts a worker goroutine in its package init that cannot be
	// stopped; ignore it so goleak only flags goroutines leaked by this
	// package.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeClient replays canned responses in order. A non-nil block channel makes
// Generate wait until it is closed; entered (if set) is closed when the first
// call arrives, so tests can synchronize on the gate being held.
type fakeClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]generator.Message
	block   chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (c *fakeClient) Generate(ctx context.Context, messages []generator.Message) (string, error) {
	if c.entered != nil {
		c.once.Do(func() { close(c.entered) })
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", fmt.Errorf("fakeClient: out of replies")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

const openingReply = `{
  "message": "【场景】产房里一声啼哭。",
  "birthInfo": {"date": "2000-01-01", "time": "08:00", "location": "市人民医院"},
  "currentTime": {"date": "2000-01-01", "time": "08:00", "age": 0},
  "ocean": {"sensingOpenness": 50, "literalCommunication": 50, "emotionalSync": 50, "focusGravity": 50, "socialFriction": 50},
  "choices": [
    {"id": "A", "text": "安静地观察周围", "personalityChange": {"socialFriction": -1}},
    {"id": "B", "text": "好奇地四处张望", "personalityChange": {"sensingOpenness": 3}}
  ],
  "timeProgression": {"fromDate": "2000-01-01", "fromTime": "08:00", "toDate": "2000-01-01", "toTime": "08:00", "duration": 0}
}`

const followupReply = `{
  "message": "【旁白】你安静地看着这个世界。",
  "currentTime": {"date": "2000-01-02", "time": "10:00", "age": 0},
  "ocean": {"sensingOpenness": 90, "literalCommunication": 90, "emotionalSync": 90, "focusGravity": 90, "socialFriction": 90},
  "choices": [
    {"id": "A", "text": "睡觉", "personalityChange": {}},
    {"id": "B", "text": "哭闹", "personalityChange": {"socialFriction": 2}}
  ]
}`

func newTestSession(t *testing.T, client generator.Client) (*Session, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir() + "/game.json")
	require.NoError(t, err)
	return New(Options{Client: client, Store: st, HistoryWindow: 8}), st
}

func TestResolveTurn_OpeningCommits(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply}}
	sess, st := newTestSession(t, client)

	state, options, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	assert.Equal(t, "市人民医院", state.BirthInfo.Location)
	assert.Len(t, state.Timeline, 1)
	assert.Equal(t, "【场景】产房里一声啼哭。", state.Timeline[0].Narrative)
	require.Len(t, options, 2)
	assert.Equal(t, "A", options[0].ID)

	// Committed state reached the store too.
	persisted, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Len(t, persisted.Timeline, 1)
}

func TestResolveTurn_GeneratorFailureLeavesStateUntouched(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply}}
	sess, st := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)
	before := sess.State()

	client.mu.Lock()
	client.err = &game.GeneratorUnavailableError{Err: fmt.Errorf("connection refused")}
	client.mu.Unlock()

	_, _, err = sess.ResolveTurn(context.Background(), game.FreeformAction("继续"))
	require.Error(t, err)

	var unavailable *game.GeneratorUnavailableError
	assert.True(t, errors.As(err, &unavailable))

	if diff := cmp.Diff(before, sess.State()); diff != "" {
		t.Errorf("state changed across failed turn (-before +after):\n%s", diff)
	}

	persisted, err := st.Load()
	require.NoError(t, err)
	assert.Len(t, persisted.Timeline, 1, "failed turn must not be persisted")
}

func TestResolveTurn_ChosenDeltaBeatsSnapshot(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply, followupReply}}
	sess, _ := newTestSession(t, client)

	_, options, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	// The follow-up reply claims a wildly different trait snapshot; the
	// chosen option's declared delta wins over it.
	state, _, err := sess.ResolveTurn(context.Background(), game.OptionAction(options[0].ID))
	require.NoError(t, err)

	want := game.TraitVector{SensingOpenness: 50, LiteralCommunication: 50, EmotionalSync: 50, FocusGravity: 50, SocialFriction: 49}
	assert.Equal(t, want, state.Traits)
	assert.Equal(t, "A", state.Timeline[1].ChosenOption)
	assert.Equal(t, game.TraitDelta{SocialFriction: -1}, state.Timeline[1].TraitDelta)
}

func TestResolveTurn_FreeformAppliesSnapshot(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply, followupReply}}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	state, _, err := sess.ResolveTurn(context.Background(), game.FreeformAction("哭"))
	require.NoError(t, err)

	// No mechanical delta, so the generator's snapshot applies, clamped.
	assert.Equal(t, 90, state.Traits.SensingOpenness)
}

func TestResolveTurn_UnknownOptionRejected(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply}}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	_, _, err = sess.ResolveTurn(context.Background(), game.OptionAction("C"))
	var verr *game.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "option", verr.Field)
	assert.Len(t, client.calls, 1, "rejected action must not reach the generator")
}

func TestResolveTurn_EmptyFreeformRejected(t *testing.T) {
	client := &fakeClient{}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.FreeformAction("   "))
	var verr *game.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestResolveTurn_OneTurnAtATime(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	client := &fakeClient{replies: []string{openingReply}, block: block, entered: entered}
	sess, _ := newTestSession(t, client)

	done := make(chan error, 1)
	go func() {
		_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
		done <- err
	}()

	// The first turn holds the gate once its generator call is in flight.
	<-entered
	_, _, err := sess.ResolveTurn(context.Background(), game.FreeformAction("x"))
	assert.ErrorIs(t, err, game.ErrTurnInFlight)

	close(block)
	require.NoError(t, <-done)
}

func TestRestart_WipesLife(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply, followupReply, openingReply}}
	sess, _ := newTestSession(t, client)

	_, options, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)
	_, _, err = sess.ResolveTurn(context.Background(), game.OptionAction(options[0].ID))
	require.NoError(t, err)
	require.Len(t, sess.State().Timeline, 2)

	state, _, err := sess.ResolveTurn(context.Background(), game.RestartAction())
	require.NoError(t, err)

	assert.Len(t, state.Timeline, 1, "restart plays a fresh opening turn")
	assert.Equal(t, []string{"/start"}, state.AbilityCommands())
}

func TestResolveTurn_StartTextRestartsInProgressLife(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply, openingReply}}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	state, _, err := sess.ResolveTurn(context.Background(), game.FreeformAction("/start"))
	require.NoError(t, err)
	assert.Len(t, state.Timeline, 1)
}

func TestResolveTurn_AbilityGrantAndDuplicate(t *testing.T) {
	withSkill := func(command, description string) string {
		return fmt.Sprintf(`{
		  "message": "剧情转折。",
		  "currentTime": {"date": "2001-01-01", "time": "09:00", "age": 1},
		  "choices": [{"id": "A", "text": "继续"}, {"id": "B", "text": "停下"}],
		  "skillCommand": {"command": %q, "description": %q}
		}`, command, description)
	}

	client := &fakeClient{replies: []string{
		openingReply,
		withSkill("/cry", "放声大哭"),
		withSkill("/sob", "默默哭泣流泪"),
	}}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	state, _, err := sess.ResolveTurn(context.Background(), game.FreeformAction("大哭"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/start", "/cry"}, state.AbilityCommands())
	require.NotNil(t, state.Timeline[1].GrantedAbility)
	assert.Equal(t, "/cry", state.Timeline[1].GrantedAbility.Command)

	// Near-duplicate of /cry: turn commits, grant does not.
	state, _, err = sess.ResolveTurn(context.Background(), game.FreeformAction("再哭"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/start", "/cry"}, state.AbilityCommands())
	assert.Nil(t, state.Timeline[2].GrantedAbility)
}

func TestNew_AdoptsPersistedState(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir() + "/game.json")
	require.NoError(t, err)

	saved := game.NewPlayerState()
	saved.BirthInfo = game.BirthInfo{Date: "1990-05-05", Time: "06:00", Location: "老家"}
	saved.Timeline = append(saved.Timeline, game.NewTimelineEntry("/start", "出生"))
	require.NoError(t, st.Save(saved))

	sess := New(Options{Client: &fakeClient{}, Store: st})

	assert.True(t, sess.Started())
	assert.Equal(t, "老家", sess.State().BirthInfo.Location)
}

func TestState_ReturnsCopy(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply}}
	sess, _ := newTestSession(t, client)

	_, _, err := sess.ResolveTurn(context.Background(), game.StartAction())
	require.NoError(t, err)

	got := sess.State()
	got.Traits.SensingOpenness = 0
	got.Timeline[0].Narrative = "tampered"

	fresh := sess.State()
	assert.NotEqual(t, 0, fresh.Traits.SensingOpenness)
	assert.NotEqual(t, "tampered", fresh.Timeline[0].Narrative)
}

func TestEnvelope_API(t *testing.T) {
	client := &fakeClient{replies: []string{openingReply}}
	sess, _ := newTestSession(t, client)

	env := sess.StartNewLife(context.Background())
	require.True(t, env.Success, "error: %s", env.Error)

	outcome, ok := env.Data.(TurnOutcome)
	require.True(t, ok)
	assert.Len(t, outcome.Options, 2)

	env = sess.SubmitOption(context.Background(), "Z")
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}
