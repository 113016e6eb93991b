package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hargou/captioncraft/internal/feed"
	"github.com/Hargou/captioncraft/internal/prefs"
	"github.com/Hargou/captioncraft/internal/session"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewFeed
)

// inputMode tracks what the compose field is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputCaption
	inputComment
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Engine    *feed.Engine
	Mutator   *feed.Mutator
	Session   *session.Manager
	ThemeName string
	PrefsPath string
	Username  string // prefill for the login form
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	engine    *feed.Engine
	mutator   *feed.Mutator
	session   *session.Manager
	prefsPath string

	keys  keyMap
	theme Theme

	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot      feed.Snapshot
	updates       <-chan feed.Snapshot
	cancelUpdates func()

	selectedPost    int
	selectedCaption int

	// Login form
	username    textinput.Model
	fullName    textinput.Model
	password    textinput.Model
	loginFocus  int
	loginErr    string
	loggingIn   bool
	registering bool

	// Compose field
	inputMode inputMode
	compose   textinput.Model
}

type snapshotMsg feed.Snapshot

type updatesClosedMsg struct{}

type loginResultMsg struct{ err error }

type actionDoneMsg struct{ err error }

// NewModel builds the root model. The caller owns the subscription
// lifetime through opts.Context.
func NewModel(opts Options) Model {
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.SetValue(opts.Username)
	username.Focus()

	fullName := textinput.New()
	fullName.Placeholder = "display name"

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	compose := textinput.New()
	compose.CharLimit = 500

	updates, cancel := opts.Engine.Subscribe()

	m := Model{
		ctx:           opts.Context,
		engine:        opts.Engine,
		mutator:       opts.Mutator,
		session:       opts.Session,
		prefsPath:     prefsPath,
		keys:          defaultKeyMap(),
		theme:         GetTheme(opts.ThemeName),
		currentView:   ViewLogin,
		snapshot:      opts.Engine.Snapshot(),
		updates:       updates,
		cancelUpdates: cancel,
		username:      username,
		fullName:      fullName,
		password:      password,
		compose:       compose,
	}
	if _, ok := opts.Session.Current(); ok {
		m.currentView = ViewFeed
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		waitForSnapshot(m.updates),
		textinput.Blink,
	}
	if m.currentView == ViewFeed {
		cmds = append(cmds, m.loadFeedCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case snapshotMsg:
		m.snapshot = feed.Snapshot(msg)
		m.clampSelection()
		return m, waitForSnapshot(m.updates)

	case updatesClosedMsg:
		return m, tea.Quit

	case loginResultMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.loginErr = msg.err.Error()
			return m, nil
		}
		m.loginErr = ""
		m.password.SetValue("")
		m.registering = false
		m.currentView = ViewFeed
		m.savePrefs()
		return m, m.loadFeedCmd()

	case actionDoneMsg:
		// Failures surface through the snapshot's Err field.
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.currentView == ViewLogin {
		return m.renderLogin()
	}
	return m.renderFeed()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.cancelUpdates()
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.currentView == ViewLogin {
		return m.handleLoginKey(msg)
	}
	if m.inputMode != inputNone {
		return m.handleComposeKey(msg)
	}
	return m.handleFeedKey(msg)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlN:
		m.registering = !m.registering
		m.loginErr = ""
		m.loginFocus = 0
		m.focusLoginField()
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		m.loginFocus = (m.loginFocus + 1) % m.loginFieldCount()
		m.focusLoginField()
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.loginFocus = (m.loginFocus + m.loginFieldCount() - 1) % m.loginFieldCount()
		m.focusLoginField()
		return m, nil

	case tea.KeyEnter:
		if m.loggingIn {
			return m, nil
		}
		user := m.username.Value()
		name := m.fullName.Value()
		pass := m.password.Value()
		if user == "" || pass == "" || (m.registering && name == "") {
			m.loginErr = "all fields are required"
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		if m.registering {
			return m, m.registerCmd(user, name, pass)
		}
		return m, m.loginCmd(user, pass)
	}

	var cmd tea.Cmd
	switch m.loginFocus {
	case 0:
		m.username, cmd = m.username.Update(msg)
	case 1:
		if m.registering {
			m.fullName, cmd = m.fullName.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	default:
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) loginFieldCount() int {
	if m.registering {
		return 3
	}
	return 2
}

func (m *Model) focusLoginField() {
	m.username.Blur()
	m.fullName.Blur()
	m.password.Blur()
	switch m.loginFocus {
	case 0:
		m.username.Focus()
	case 1:
		if m.registering {
			m.fullName.Focus()
		} else {
			m.password.Focus()
		}
	default:
		m.password.Focus()
	}
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.inputMode = inputNone
		m.compose.SetValue("")
		m.compose.Blur()
		return m, nil

	case tea.KeyEnter:
		text := m.compose.Value()
		mode := m.inputMode
		m.inputMode = inputNone
		m.compose.SetValue("")
		m.compose.Blur()
		if text == "" {
			return m, nil
		}
		switch mode {
		case inputCaption:
			post, ok := m.currentPost()
			if !ok {
				return m, nil
			}
			return m, m.actionCmd(func() error {
				return m.mutator.AddCaption(m.ctx, post.ID, text)
			})
		case inputComment:
			caption, ok := m.currentCaption()
			if !ok {
				return m, nil
			}
			return m, m.actionCmd(func() error {
				return m.mutator.AddComment(m.ctx, caption.ID, text)
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	return m, cmd
}

func (m Model) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelUpdates()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadFeedCmd()

	case key.Matches(msg, m.keys.Logout):
		m.currentView = ViewLogin
		m.password.SetValue("")
		m.loginFocus = 0
		m.username.Focus()
		m.password.Blur()
		return m, m.actionCmd(func() error {
			return m.session.Logout(m.ctx)
		})

	case key.Matches(msg, m.keys.Up):
		if m.selectedPost > 0 {
			m.selectedPost--
			m.selectedCaption = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selectedPost < len(m.snapshot.Posts)-1 {
			m.selectedPost++
			m.selectedCaption = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevCaption):
		if m.selectedCaption > 0 {
			m.selectedCaption--
		}
		return m, nil

	case key.Matches(msg, m.keys.NextCaption):
		if post, ok := m.currentPost(); ok && m.selectedCaption < len(post.Captions)-1 {
			m.selectedCaption++
		}
		return m, nil

	case key.Matches(msg, m.keys.LikePost):
		post, ok := m.currentPost()
		if !ok {
			return m, nil
		}
		return m, m.actionCmd(func() error {
			return m.mutator.TogglePostLike(m.ctx, post.ID)
		})

	case key.Matches(msg, m.keys.LikeCaption):
		caption, ok := m.currentCaption()
		if !ok {
			return m, nil
		}
		return m, m.actionCmd(func() error {
			return m.mutator.ToggleCaptionLike(m.ctx, caption.ID)
		})

	case key.Matches(msg, m.keys.ComposeCaption):
		if _, ok := m.currentPost(); !ok {
			return m, nil
		}
		m.inputMode = inputCaption
		m.compose.Placeholder = "new caption"
		m.compose.Focus()
		return m, nil

	case key.Matches(msg, m.keys.ComposeComment):
		if _, ok := m.currentCaption(); !ok {
			return m, nil
		}
		m.inputMode = inputComment
		m.compose.Placeholder = "new comment"
		m.compose.Focus()
		return m, nil

	case key.Matches(msg, m.keys.ShowComments):
		caption, ok := m.currentCaption()
		if !ok {
			return m, nil
		}
		return m, m.actionCmd(func() error {
			return m.mutator.LoadComments(m.ctx, caption.ID)
		})

	case key.Matches(msg, m.keys.Escape):
		m.mutator.HideComments()
		return m, nil
	}

	return m, nil
}

func (m *Model) clampSelection() {
	if m.selectedPost >= len(m.snapshot.Posts) {
		m.selectedPost = len(m.snapshot.Posts) - 1
	}
	if m.selectedPost < 0 {
		m.selectedPost = 0
	}
	if post, ok := m.currentPost(); ok {
		if m.selectedCaption >= len(post.Captions) {
			m.selectedCaption = len(post.Captions) - 1
		}
	}
	if m.selectedCaption < 0 {
		m.selectedCaption = 0
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:        m.theme.Name,
		LastUsername: m.username.Value(),
	})
}

// waitForSnapshot blocks on the engine's update channel and converts
// the next version into a message.
func waitForSnapshot(updates <-chan feed.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.session.Login(m.ctx, username, password); err != nil {
			return loginResultMsg{err: err}
		}
		return loginResultMsg{}
	}
}

func (m Model) registerCmd(username, name, password string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.session.Register(m.ctx, username, name, password); err != nil {
			return loginResultMsg{err: err}
		}
		return loginResultMsg{}
	}
}

func (m Model) loadFeedCmd() tea.Cmd {
	return m.actionCmd(func() error {
		return m.engine.LoadFeed(m.ctx)
	})
}

func (m Model) actionCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn()}
	}
}
