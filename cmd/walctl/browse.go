package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginLeft(2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

const previewWidth = 48

type browseKeys struct {
	NextPage key.Binding
	PrevPage key.Binding
	First    key.Binding
	Last     key.Binding
	Up       key.Binding
	Down     key.Binding
	Quit     key.Binding
}

var defaultBrowseKeys = browseKeys{
	NextPage: key.NewBinding(
		key.WithKeys("n", "pgdown"),
		key.WithHelp("n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("p", "pgup"),
		key.WithHelp("p", "prev page"),
	),
	First: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "first"),
	),
	Last: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "last"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.First, k.Last, k.Quit}
}

func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPage, k.PrevPage, k.First, k.Last},
		{k.Up, k.Down, k.Quit},
	}
}

// browser pages through a log one table page at a time. Only the visible
// page is held in memory.
type browser struct {
	log      wal.Reader
	table    table.Model
	help     help.Model
	keys     browseKeys
	pageSize uint64
	start    uint64
	err      error
}

func newBrowser(log wal.Reader, pageSize int) browser {
	columns := []table.Column{
		{Title: "Index", Width: 20},
		{Title: "Bytes", Width: 10},
		{Title: "Payload", Width: previewWidth + 2},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(pageSize),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	b := browser{
		log:      log,
		table:    t,
		help:     help.New(),
		keys:     defaultBrowseKeys,
		pageSize: uint64(pageSize),
		start:    log.FirstIndex(),
	}
	b.load()
	return b
}

// end is one past the last retained index.
func (b *browser) end() uint64 { return b.log.FirstIndex() + b.log.Len() }

func (b *browser) lastPageStart() uint64 {
	if b.log.Len() == 0 {
		return b.log.FirstIndex()
	}
	return b.log.FirstIndex() + (b.log.Len()-1)/b.pageSize*b.pageSize
}

func (b *browser) load() {
	b.err = nil
	if b.log.Len() == 0 {
		b.table.SetRows(nil)
		return
	}

	stop := min(b.start+b.pageSize, b.end())
	it, err := b.log.Iter(wal.Between(b.start, stop))
	if err != nil {
		b.err = err
		return
	}
	defer it.Close()

	rows := make([]table.Row, 0, b.pageSize)
	for it.Next() {
		rows = append(rows, table.Row{
			strconv.FormatUint(it.Index(), 10),
			strconv.Itoa(len(it.Value())),
			preview(it.Value()),
		})
	}
	if err := it.Err(); err != nil {
		b.err = err
	}
	b.table.SetRows(rows)
	b.table.GotoTop()
}

func preview(payload []byte) string {
	q := strconv.Quote(string(payload))
	if len(q) > previewWidth {
		q = q[:previewWidth-3] + "..."
	}
	return q
}

func (b browser) Init() tea.Cmd { return nil }

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.help.Width = msg.Width
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit
		case key.Matches(msg, b.keys.NextPage):
			if b.start+b.pageSize < b.end() {
				b.start += b.pageSize
				b.load()
			}
			return b, nil
		case key.Matches(msg, b.keys.PrevPage):
			if b.start > b.log.FirstIndex() {
				b.start -= min(b.pageSize, b.start-b.log.FirstIndex())
				b.load()
			}
			return b, nil
		case key.Matches(msg, b.keys.First):
			b.start = b.log.FirstIndex()
			b.load()
			return b, nil
		case key.Matches(msg, b.keys.Last):
			b.start = b.lastPageStart()
			b.load()
			return b, nil
		}
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

func (b browser) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Write-ahead log browser"))
	s.WriteString("\n\n")

	last := "-"
	if b.log.Len() > 0 {
		last = strconv.FormatUint(b.end()-1, 10)
	}
	s.WriteString(summaryStyle.Render(fmt.Sprintf("First %d   Last %s   Entries %d",
		b.log.FirstIndex(), last, b.log.Len())))
	s.WriteString("\n")

	if b.log.Len() == 0 {
		s.WriteString(contentStyle.Render("The log is empty."))
	} else {
		s.WriteString(contentStyle.Render(b.table.View()))
	}

	if b.err != nil {
		s.WriteString("\n\n")
		s.WriteString(warnStyle.Render("  " + b.err.Error()))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(b.help.ShortHelpView(b.keys.ShortHelp())))
	return s.String()
}

func cmdBrowse(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("browse")
	pageSize := fs.Int("page", 20, "entries per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pageSize < 1 {
		return fmt.Errorf("%w: -page must be positive", errUsage)
	}

	l, err := a.openLog()
	if err != nil {
		return err
	}
	defer l.Close()

	if listen := a.cfg.Metrics.Listen; listen != "" {
		srv := &http.Server{
			Addr:              listen,
			Handler:           a.metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", logging.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		a.logger.Info("serving metrics", logging.String("listen", listen))
	}

	p := tea.NewProgram(newBrowser(l, *pageSize),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(a.stdin),
		tea.WithOutput(a.stdout),
	)
	_, err = p.Run()
	return err
}
