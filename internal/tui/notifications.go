package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type toastKind int

const (
	toastSuccess toastKind = iota
	toastError
	toastInfo
)

func (k toastKind) String() string {
	switch k {
	case toastSuccess:
		return "success"
	case toastError:
		return "error"
	default:
		return "info"
	}
}

type toast struct {
	id        int
	kind      toastKind
	message   string
	createdAt time.Time
}

// toastExpiredMsg removes a single toast once its TTL has passed.
type toastExpiredMsg struct {
	id int
}

// notifier stacks transient toasts. Each toast schedules its own expiry.
type notifier struct {
	ttl    time.Duration
	now    func() time.Time
	nextID int
	toasts []toast
}

func newNotifier(ttl time.Duration) *notifier {
	if ttl <= 0 {
		ttl = defaultToastTTL
	}
	return &notifier{ttl: ttl, now: time.Now}
}

// push shows a toast and returns the command that expires it.
func (n *notifier) push(kind toastKind, message string) tea.Cmd {
	n.nextID++
	id := n.nextID
	n.toasts = append(n.toasts, toast{
		id:        id,
		kind:      kind,
		message:   message,
		createdAt: n.now(),
	})
	return tea.Tick(n.ttl, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (n *notifier) expire(id int) {
	for i, t := range n.toasts {
		if t.id == id {
			n.toasts = append(n.toasts[:i], n.toasts[i+1:]...)
			return
		}
	}
}

// active returns the toasts that have not outlived the TTL, oldest first.
func (n *notifier) active() []toast {
	now := n.now()
	out := make([]toast, 0, len(n.toasts))
	for _, t := range n.toasts {
		if now.Sub(t.createdAt) > n.ttl {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (n *notifier) latest() (toast, bool) {
	active := n.active()
	if len(active) == 0 {
		return toast{}, false
	}
	return active[len(active)-1], true
}

func (n *notifier) render(width int) string {
	active := n.active()
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, t := range active {
		style := lipgloss.NewStyle().
			Width(max(20, width)).
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("#1E1E1E")).
			Background(toastColor(t.kind))
		lines = append(lines, style.Render(t.message))
	}
	return strings.Join(lines, "\n")
}

func toastColor(kind toastKind) lipgloss.Color {
	switch kind {
	case toastSuccess:
		return lipgloss.Color("#7BD88F")
	case toastError:
		return lipgloss.Color("#FF6B6B")
	default:
		return lipgloss.Color("#5B8DEF")
	}
}
