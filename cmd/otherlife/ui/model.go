package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"otherlife/internal/game"
	"otherlife/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chrome is the fixed vertical space around the narrative viewport: title,
// status, traits, abilities, options, input and help lines.
const chrome = 10

// turnMsg carries a resolved turn back into the update loop.
type turnMsg struct {
	state   *game.PlayerState
	options []game.Option
	err     error
}

// Model is the bubbletea model for the interactive life.
type Model struct {
	sess   *session.Session
	styles Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	state   *game.PlayerState
	options []game.Option
	log     []string

	loading bool
	ready   bool
	errText string
	width   int
	height  int
}

// New builds the interface around an existing session. A session restored
// from disk shows its recent history immediately.
func New(sess *session.Session) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "输入行动，或按 A / B 选择…  (Ctrl+C 退出)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 500
	ti.Width = 78
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	m := Model{
		sess:     sess,
		styles:   styles,
		input:    ti,
		spinner:  sp,
		viewport: vp,
		state:    sess.State(),
		options:  sess.OfferedOptions(),
	}

	// The opening turn is already in flight by the time Init's command runs.
	m.loading = !sess.Started()

	if sess.Started() {
		for _, e := range m.state.RecentTimeline(8) {
			if e.UserInput != "" {
				m.log = append(m.log, styles.UserInput.Render("> "+e.UserInput))
			}
			m.log = append(m.log, m.renderNarrative(e.Narrative), "")
		}
		m.viewport.SetContent(strings.Join(m.log, "\n"))
		m.viewport.GotoBottom()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if !m.sess.Started() {
		cmds = append(cmds, m.resolve(game.StartAction()))
	}
	return tea.Batch(cmds...)
}

// resolve runs one action against the session off the update loop. Callers
// flip loading themselves; this only builds the command.
func (m Model) resolve(action game.Action) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		state, options, err := sess.ResolveTurn(context.Background(), action)
		return turnMsg{state: state, options: options, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.loading {
				return m.handleSubmit()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-chrome, 5)
		m.input.Width = msg.Width - 6
		m.ready = true
		m.viewport.SetContent(strings.Join(m.log, "\n"))
		m.viewport.GotoBottom()

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = describeErr(msg.err)
			break
		}
		m.state = msg.state
		m.options = msg.options
		if n := len(msg.state.Timeline); n > 0 {
			last := msg.state.Timeline[n-1]
			m.log = append(m.log, m.renderNarrative(last.Narrative), "")
			if last.GrantedAbility != nil {
				m.log = append(m.log, m.styles.Abilities.Render(
					fmt.Sprintf("✦ 解锁新技能 %s：%s", last.GrantedAbility.Command, last.GrantedAbility.Description)), "")
			}
		}
		m.viewport.SetContent(strings.Join(m.log, "\n"))
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}
		return m, nil
	}

	m.input, tiCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// handleSubmit maps the raw input line to a player action. "A"/"B" (or
// "1"/"2") pick an offered option; anything else goes through verbatim.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())

	var action game.Action
	switch {
	case text == "" && !m.sess.Started():
		// Empty enter retries a failed opening turn.
		action = game.StartAction()
	case text == "":
		return m, nil
	case isOptionKey(text, 0) && len(m.options) >= 1:
		action = game.OptionAction(m.options[0].ID)
		text = m.options[0].Label
	case isOptionKey(text, 1) && len(m.options) >= 2:
		action = game.OptionAction(m.options[1].ID)
		text = m.options[1].Label
	default:
		action = game.FreeformAction(text)
	}

	m.log = append(m.log, m.styles.UserInput.Render("> "+text))
	m.viewport.SetContent(strings.Join(m.log, "\n"))
	m.viewport.GotoBottom()
	m.input.Reset()
	m.loading = true
	m.errText = ""
	return m, tea.Batch(m.resolve(action), m.spinner.Tick)
}

func isOptionKey(text string, idx int) bool {
	keys := [][]string{{"a", "1"}, {"b", "2"}}
	for _, k := range keys[idx] {
		if strings.EqualFold(text, k) {
			return true
		}
	}
	return false
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render("换个人生 · otherlife"))
	b.WriteString("  ")
	b.WriteString(m.styles.Status.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.styles.Traits.Render(m.traitLine()))
	b.WriteString("\n")
	b.WriteString(m.styles.Abilities.Render("技能: " + m.abilityLine()))
	b.WriteString("\n")

	b.WriteString(m.styles.Panel.Width(m.width - 2).Render(m.viewport.View()))
	b.WriteString("\n")

	if len(m.options) > 0 && !m.loading {
		for i, opt := range m.options {
			key := string(rune('A' + i))
			b.WriteString(m.styles.OptionKey.Render("["+key+"] "))
			b.WriteString(m.styles.Option.Render(opt.Label))
			b.WriteString("\n")
		}
	}

	if m.errText != "" {
		b.WriteString(m.styles.Error.Render("✗ " + m.errText))
		b.WriteString("\n")
	}

	if m.loading {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Status.Render(" 命运正在展开…"))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("Enter 发送 · A/B 选择 · /start 重新开始 · Ctrl+C 退出"))

	return b.String()
}

func (m Model) statusLine() string {
	if m.state.CurrentTime.Date == "" {
		return "新的人生尚未开始"
	}
	return fmt.Sprintf("%s %s · %d岁 · %s",
		m.state.CurrentTime.Date, m.state.CurrentTime.Time,
		m.state.CurrentTime.Age.Int(), m.state.BirthInfo.Location)
}

func (m Model) traitLine() string {
	t := m.state.Traits
	return fmt.Sprintf("感知 %s · 直言 %s · 共情 %s · 专注 %s · 摩擦 %s",
		traitBar(t.SensingOpenness), traitBar(t.LiteralCommunication),
		traitBar(t.EmotionalSync), traitBar(t.FocusGravity), traitBar(t.SocialFriction))
}

// traitBar renders a 0..100 score as a five-cell bar plus the number.
func traitBar(score int) string {
	filled := score / 20
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 5-filled) + fmt.Sprintf(" %d", score)
}

func (m Model) abilityLine() string {
	cmds := m.state.AbilityCommands()
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = fmt.Sprintf("%d.%s", i+1, c)
	}
	return strings.Join(parts, "  ")
}

// renderNarrative styles a narrative block line by line: scene headers in
// 【brackets】, parenthesized asides, spoken lines with a 名字： prefix.
func (m Model) renderNarrative(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "【"):
			out = append(out, m.styles.Scene.Render(line))
		case strings.HasPrefix(trimmed, "（") || strings.HasPrefix(trimmed, "("):
			out = append(out, m.styles.Aside.Render(line))
		case isSpokenLine(trimmed):
			out = append(out, m.styles.Voice.Render(line))
		default:
			out = append(out, m.styles.Narrative.Render(line))
		}
	}
	return lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(out, "\n"))
}

// isSpokenLine matches dialogue of the form 名字：「…」 without absorbing
// ordinary prose containing a colon later on.
func isSpokenLine(line string) bool {
	idx := strings.Index(line, "：")
	if idx <= 0 {
		return false
	}
	return len([]rune(line[:idx])) <= 6
}

func describeErr(err error) string {
	var unavailable *game.GeneratorUnavailableError
	var malformed *game.MalformedResponseError
	switch {
	case errors.Is(err, game.ErrTurnInFlight):
		return "上一回合还在结算中"
	case errors.As(err, &unavailable):
		return "叙事引擎暂时不可用，请稍后重试"
	case errors.As(err, &malformed):
		return "叙事引擎回应异常，请重试"
	default:
		return err.Error()
	}
}
