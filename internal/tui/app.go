// internal/tui/app.go
//
// This is the terminal widget for phonelink. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the widget state (session, inputs, toasts)
// 2. Update: a function that updates state based on messages
// 3. View: a function that renders state to a string
//
// The flow is: paste token -> fetch numbers -> pick one -> connect.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kingrea/phonelink/internal/location"
	"github.com/kingrea/phonelink/internal/logbook"
	"github.com/kingrea/phonelink/internal/phoneapi"
	"github.com/kingrea/phonelink/internal/session"
)

// appState represents where the widget is in the connect workflow
type appState int

const (
	stateIdle          appState = iota // no credential yet
	stateAwaitingToken                 // credential typed, not fetched
	stateFetching                      // list request in flight
	stateBrowsing                      // numbers shown, zero or one selected
	stateSubmitting                    // connect request in flight or settling
)

func (s appState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingToken:
		return "awaitingToken"
	case stateFetching:
		return "fetching"
	case stateBrowsing:
		return "browsing"
	case stateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultToastTTL    = 3 * time.Second
	defaultSettleDelay = 1500 * time.Millisecond
	actionRevealDelay  = 10 * time.Millisecond
)

// User-facing copy.
const (
	msgInvalidToken     = "Please enter a valid API token."
	msgFetchSucceeded   = "Phone numbers fetched successfully!"
	msgFetchFailed      = "Failed to fetch contacts."
	msgConnectFailed    = "Failed to connect user."
	msgConnectSucceeded = "User connected successfully! (%s)"
	msgLocationMissing  = "Location ID missing. The host must open this widget with ?locationId={{location.id}} in the page URL."
	msgLocationAtStart  = "Location not detected. Contact support."
	msgLocationReceived = "Location received from host."
	labelSending        = "Sending..."
)

// NumberService is the remote phone number API.
type NumberService interface {
	ListNumbers(ctx context.Context, token string) ([]string, error)
	Connect(ctx context.Context, token, locationID, fromNumber string) error
}

// LocationResolver recovers the host location id on demand.
type LocationResolver interface {
	Resolve(ctx context.Context) (location.Result, error)
}

// LocationReceivedMsg is sent into the program when the embedding host
// answers a location request over the bridge.
type LocationReceivedMsg struct {
	ID string
}

type fetchResultMsg struct {
	numbers []string
	err     error
}

type submitResultMsg struct {
	number     string
	locationID string
	source     string
	err        error
}

type submitSettledMsg struct{}

type actionRevealMsg struct {
	seq int
}

type startupLocationMsg struct {
	result location.Result
	err    error
}

type focusArea int

const (
	focusToken focusArea = iota
	focusList
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook journals widget activity and enables the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithToastTTL overrides how long toasts stay on screen.
func WithToastTTL(ttl time.Duration) AppOption {
	return func(a *App) {
		if ttl > 0 {
			a.toastTTL = ttl
		}
	}
}

// WithSettleDelay overrides how long the action stays locked after a
// successful connect.
func WithSettleDelay(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.settleDelay = d
		}
	}
}

// WithContext sets the parent context for network calls.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the widget model. In bubbletea, this holds ALL the state.
type App struct {
	state    appState
	ctx      context.Context
	session  *session.Session
	api      NumberService
	resolver LocationResolver
	logbook  *logbook.Logbook

	toastTTL    time.Duration
	settleDelay time.Duration

	// UI components
	tokenInput textinput.Model
	spinner    spinner.Model
	toasts     *notifier
	focus      focusArea
	cursor     int
	authErr    string

	// the action bar slides in one tick after the first selection
	actionVisible bool
	revealSeq     int

	width  int
	height int
}

// NewApp wires a widget around an existing session.
func NewApp(sess *session.Session, api NumberService, resolver LocationResolver, opts ...AppOption) *App {
	if sess == nil {
		sess = session.New()
	}
	input := textinput.New()
	input.Placeholder = "Paste your API token"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.Prompt = "› "
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	a := &App{
		state:       stateIdle,
		ctx:         context.Background(),
		session:     sess,
		api:         api,
		resolver:    resolver,
		toastTTL:    defaultToastTTL,
		settleDelay: defaultSettleDelay,
		tokenInput:  input,
		spinner:     spin,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.toasts = newNotifier(a.toastTTL)
	if sess.HasCredential() {
		a.tokenInput.SetValue(sess.Credential())
		a.state = stateAwaitingToken
	}
	return a
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.logInfo("Widget opened")
	return tea.Batch(textinput.Blink, a.resolveLocation())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.tokenInput.Width = max(10, msg.Width-12)
		return a, nil

	case startupLocationMsg:
		return a, a.handleStartupLocation(msg)

	case fetchResultMsg:
		return a, a.handleFetchResult(msg)

	case submitResultMsg:
		return a, a.handleSubmitResult(msg)

	case submitSettledMsg:
		if a.state == stateSubmitting {
			a.state = stateBrowsing
		}
		return a, nil

	case actionRevealMsg:
		if msg.seq == a.revealSeq && a.session.SelectedCount() > 0 {
			a.actionVisible = true
		}
		return a, nil

	case toastExpiredMsg:
		a.toasts.expire(msg.id)
		return a, nil

	case LocationReceivedMsg:
		id := strings.TrimSpace(msg.ID)
		if !location.Valid(id) {
			return a, nil
		}
		a.session.LocationID = id
		a.logInfo("Location %s received from host", id)
		return a, a.toasts.push(toastInfo, msgLocationReceived)

	case spinner.TickMsg:
		if a.state != stateFetching {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.tokenInput, cmd = a.tokenInput.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return tea.Quit
	case "tab", "shift+tab":
		a.switchFocus()
		return nil
	}
	if a.focus == focusList {
		return a.handleListKey(key)
	}
	if key == "enter" {
		return a.startFetch()
	}
	if key == "esc" {
		return tea.Quit
	}
	var cmd tea.Cmd
	a.tokenInput, cmd = a.tokenInput.Update(msg)
	a.setCredential(a.tokenInput.Value())
	return cmd
}

func (a *App) handleListKey(key string) tea.Cmd {
	contacts := a.session.Contacts()
	switch key {
	case "q", "esc":
		return tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(contacts)-1 {
			a.cursor++
		}
	case " ", "space", "x":
		if a.cursor < len(contacts) {
			return a.toggle(contacts[a.cursor].ID)
		}
	case "enter":
		return a.startSubmit()
	case "r":
		return a.startFetch()
	}
	return nil
}

func (a *App) switchFocus() {
	if a.focus == focusToken && len(a.session.Contacts()) > 0 {
		a.focus = focusList
		a.tokenInput.Blur()
		return
	}
	a.focus = focusToken
	a.tokenInput.Focus()
}

// setCredential mirrors the token field into the session on every keystroke.
func (a *App) setCredential(raw string) {
	token := a.session.SetCredential(raw)
	a.authErr = ""
	switch a.state {
	case stateIdle, stateAwaitingToken:
		if token == "" {
			a.state = stateIdle
		} else {
			a.state = stateAwaitingToken
		}
	}
}

func (a *App) startFetch() tea.Cmd {
	if a.state == stateFetching || a.state == stateSubmitting {
		return nil
	}
	token := a.session.SetCredential(a.tokenInput.Value())
	if token == "" {
		a.authErr = msgInvalidToken
		a.state = stateIdle
		return nil
	}
	a.authErr = ""
	a.state = stateFetching
	a.logInfo("Fetching phone numbers")
	return tea.Batch(a.spinner.Tick, a.fetchNumbers(token))
}

func (a *App) fetchNumbers(token string) tea.Cmd {
	ctx := a.ctx
	api := a.api
	return func() tea.Msg {
		if api == nil {
			return fetchResultMsg{err: errors.New(msgFetchFailed)}
		}
		numbers, err := api.ListNumbers(ctx, token)
		return fetchResultMsg{numbers: numbers, err: err}
	}
}

func (a *App) handleFetchResult(msg fetchResultMsg) tea.Cmd {
	if a.state != stateFetching {
		return nil
	}
	if msg.err != nil {
		a.authErr = errorText(msg.err, msgFetchFailed)
		if len(a.session.Contacts()) > 0 {
			// a failed refetch leaves the previous list usable
			a.state = stateBrowsing
		} else {
			a.session.ClearSelection()
			a.actionVisible = false
			a.state = stateAwaitingToken
		}
		a.logError("Fetch failed: %s", a.authErr)
		return a.toasts.push(toastError, msgFetchFailed)
	}
	a.session.SetContacts(msg.numbers)
	a.cursor = 0
	a.actionVisible = false
	a.state = stateBrowsing
	if len(msg.numbers) > 0 {
		a.focus = focusList
		a.tokenInput.Blur()
	}
	a.logInfo("Fetched %d phone numbers", len(msg.numbers))
	return a.toasts.push(toastSuccess, msgFetchSucceeded)
}

func (a *App) toggle(id int) tea.Cmd {
	if a.state != stateBrowsing {
		return nil
	}
	before := a.session.SelectedCount()
	a.session.Toggle(id)
	return a.updateSelection(before)
}

// updateSelection hides the action bar at zero and schedules its reveal
// when the count goes from zero to one.
func (a *App) updateSelection(before int) tea.Cmd {
	count := a.session.SelectedCount()
	if count == 0 {
		a.actionVisible = false
		a.revealSeq++
		return nil
	}
	if before > 0 && a.actionVisible {
		return nil
	}
	a.revealSeq++
	seq := a.revealSeq
	return tea.Tick(actionRevealDelay, func(time.Time) tea.Msg {
		return actionRevealMsg{seq: seq}
	})
}

// startSubmit locks the action and connects the selected number. A submit
// while one is already in flight is ignored.
func (a *App) startSubmit() tea.Cmd {
	if a.state != stateBrowsing {
		return nil
	}
	contact, ok := a.session.Selected()
	if !ok {
		return nil
	}
	a.state = stateSubmitting
	a.logInfo("Connecting %s", contact.PhoneNumber)
	return a.submit(a.session.Credential(), contact.PhoneNumber)
}

// submit re-resolves the location before calling connect so that a
// late-arriving id from the host is picked up.
func (a *App) submit(token, number string) tea.Cmd {
	ctx := a.ctx
	api := a.api
	resolver := a.resolver
	known := a.session.LocationID
	return func() tea.Msg {
		result := submitResultMsg{number: number}
		res, err := resolveWith(ctx, resolver, known)
		if err != nil {
			result.err = err
			return result
		}
		result.locationID = res.ID
		result.source = res.Source
		if api == nil {
			result.err = errors.New(msgConnectFailed)
			return result
		}
		result.err = api.Connect(ctx, token, res.ID, number)
		return result
	}
}

func (a *App) handleSubmitResult(msg submitResultMsg) tea.Cmd {
	if a.state != stateSubmitting {
		return nil
	}
	if errors.Is(msg.err, location.ErrUnresolved) {
		a.state = stateBrowsing
		a.logWarn("Connect aborted: location unresolved")
		return a.toasts.push(toastError, msgLocationMissing)
	}
	if msg.locationID != "" {
		a.session.LocationID = msg.locationID
	}
	before := a.session.SelectedCount()
	a.session.ClearSelection()
	selCmd := a.updateSelection(before)
	if msg.err != nil {
		a.state = stateBrowsing
		text := errorText(msg.err, msgConnectFailed)
		a.logError("Connect %s failed: %s", msg.number, text)
		return tea.Batch(selCmd, a.toasts.push(toastError, text))
	}
	a.logInfo("Connected %s to location %s (%s)", msg.number, msg.locationID, msg.source)
	settle := tea.Tick(a.settleDelay, func(time.Time) tea.Msg {
		return submitSettledMsg{}
	})
	return tea.Batch(selCmd, a.toasts.push(toastSuccess, fmt.Sprintf(msgConnectSucceeded, msg.number)), settle)
}

func (a *App) resolveLocation() tea.Cmd {
	ctx := a.ctx
	resolver := a.resolver
	return func() tea.Msg {
		res, err := resolveWith(ctx, resolver, "")
		return startupLocationMsg{result: res, err: err}
	}
}

func (a *App) handleStartupLocation(msg startupLocationMsg) tea.Cmd {
	if msg.err != nil {
		a.logWarn("Location not detected at startup")
		return a.toasts.push(toastError, msgLocationAtStart)
	}
	a.session.LocationID = msg.result.ID
	a.logInfo("Location %s detected via %s", msg.result.ID, msg.result.Source)
	return nil
}

// resolveWith asks the resolver first and falls back to an id the session
// already holds, such as one delivered over the bridge.
func resolveWith(ctx context.Context, resolver LocationResolver, known string) (location.Result, error) {
	if resolver != nil {
		res, err := resolver.Resolve(ctx)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, location.ErrUnresolved) {
			return location.Result{}, err
		}
	}
	if location.Valid(known) {
		return location.Result{ID: strings.TrimSpace(known), Source: location.SourceSession}, nil
	}
	return location.Result{}, location.ErrUnresolved
}

// errorText prefers a server-supplied message and otherwise falls back.
func errorText(err error, fallback string) string {
	var apiErr *phoneapi.APIError
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		return fallback
	}
	if errors.Is(err, phoneapi.ErrMissingToken) {
		return msgInvalidToken
	}
	return fallback
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
