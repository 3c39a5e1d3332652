package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"

	"posync/internal/conn"
	"posync/internal/domain"
	"posync/internal/state"
	"posync/internal/util"
)

// Messages.
type tickMsg time.Time

type statusMsg struct {
	status conn.Status
	err    error
}

type changeMsg struct {
	change state.Change
}

type streamDownMsg struct{ err error }

type reconnectMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus reads the daemon's connection status.
func fetchStatus(client *http.Client, base string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Get(base + "/api/status")
		if err != nil {
			return statusMsg{err: err}
		}
		defer resp.Body.Close()
		var body struct {
			Data conn.Status `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return statusMsg{err: fmt.Errorf("decoding status: %w", err)}
		}
		return statusMsg{status: body.Data}
	}
}

// requestReconnect asks the daemon to restart its sync connection.
func requestReconnect(client *http.Client, base string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Post(base+"/api/reconnect", "application/json", nil)
		if err != nil {
			return reconnectMsg{err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			var body struct {
				Errors []string `json:"errors"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			return reconnectMsg{err: fmt.Errorf("reconnect: %s %s", resp.Status, strings.Join(body.Errors, "; "))}
		}
		return reconnectMsg{}
	}
}

type model struct {
	addr   string
	client *http.Client
	cancel context.CancelFunc

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	status    conn.Status
	statusErr error
	snap      state.Snapshot
	changed   string
	streaming bool
	streamErr error
	notice    string
}

func initialModel(addr string, cancel context.CancelFunc) model {
	return model{
		addr:   addr,
		client: &http.Client{Timeout: 3 * time.Second},
		cancel: cancel,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), fetchStatus(m.client, "http://"+m.addr))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "home":
			m.viewport.GotoTop()
			return m, nil
		case "r":
			m.notice = "reconnect requested"
			return m, requestReconnect(m.client, "http://"+m.addr)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 2
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(), fetchStatus(m.client, "http://"+m.addr))

	case statusMsg:
		m.status = msg.status
		m.statusErr = msg.err
		return m, nil

	case changeMsg:
		m.snap = msg.change.Snapshot
		m.changed = msg.change.Aggregate
		m.streaming = true
		m.streamErr = nil
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}
		return m, nil

	case reconnectMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = "reconnect started"
		}
		return m, fetchStatus(m.client, "http://"+m.addr)

	case streamDownMsg:
		m.streaming = false
		m.streamErr = msg.err
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) renderContent() string {
	var b strings.Builder
	if m.streamErr != nil {
		b.WriteString(badStyle.Render("stream: "+m.streamErr.Error()) + "\n\n")
	}
	b.WriteString(renderSnapshot(m.snap, m.changed))
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "connecting to " + m.addr + "..."
	}

	text := headerText(m.status, m.addr, m.streaming)
	style := headerStyle(m.status.State)
	if m.statusErr != nil {
		text = fmt.Sprintf(" posync  %s    daemon unreachable: %v ", m.addr, m.statusErr)
		style = closedStyle
	}
	headerBar := style.Render(padOrTrunc(text, m.width))

	pct := m.viewport.ScrollPercent() * 100
	footerLeft := " q quit  r reconnect  home top  pgup/dn scroll"
	if m.notice != "" {
		footerLeft += "    " + m.notice
	}
	footerRight := fmt.Sprintf("%.0f%% ", pct)
	gap := m.width - len(footerLeft) - len(footerRight)
	if gap < 0 {
		gap = 0
	}
	footerBar := footerStyle.Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))

	return headerBar + "\n" + m.viewport.View() + "\n" + footerBar
}

// readStream follows the daemon's state stream and forwards every snapshot
// to the program, redialing after a pause when the stream drops.
func readStream(ctx context.Context, url string, p *tea.Program, log *slog.Logger) {
	for ctx.Err() == nil {
		err := streamOnce(ctx, url, p)
		if ctx.Err() != nil {
			return
		}
		log.Warn("stream dropped", "error", err)
		p.Send(streamDownMsg{err: err})
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func streamOnce(ctx context.Context, url string, p *tea.Program) error {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer c.CloseNow()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		var ch state.Change
		if err := json.Unmarshal(env.Payload, &ch); err != nil {
			continue
		}
		p.Send(changeMsg{change: ch})
	}
}

func main() {
	addr := "localhost:8080"
	if a := os.Getenv("POSYNC_ADDR"); a != "" {
		addr = a
	}

	// The TUI owns the terminal; logs go to a file when requested.
	logger := slog.New(slog.DiscardHandler)
	if path := os.Getenv("POSYNC_CONSOLE_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: util.ParseLevel(os.Getenv("LOG_LEVEL"))}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		initialModel(addr, cancel),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go readStream(ctx, "ws://"+addr+"/api/stream", p, logger)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
