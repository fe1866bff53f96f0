package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"

	"dexscope/internal/batch"
	"dexscope/internal/dex"
	"dexscope/internal/dexscope/styles"
	"dexscope/internal/source"
)

type viewMode int

const (
	viewSummary viewMode = iota
	viewClasses
	viewDetail
)

type classItem struct {
	container *dex.Container
	class     *dex.Class
	origin    string // group/name of the container
	javaName  string
}

func (i classItem) Title() string       { return i.javaName }
func (i classItem) Description() string { return i.origin }
func (i classItem) FilterValue() string { return i.javaName }

// classDelegate renders one class per line.
type classDelegate struct{}

func (d classDelegate) Height() int                               { return 1 }
func (d classDelegate) Spacing() int                              { return 0 }
func (d classDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d classDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(classItem)
	if !ok {
		return
	}

	indicator := " "
	name := i.javaName
	if index == m.Index() {
		indicator = ">"
		name = styles.Selected.Render(name)
	}
	fields, methods := memberCounts(i.class.Data)
	fmt.Fprintf(w, " %s  %s  %s", indicator, name,
		styles.Muted.Render(fmt.Sprintf("%s · %d fields · %d methods", i.origin, fields, methods)))
}

type model struct {
	summary   viewport.Model
	classList list.Model
	detail    viewport.Model
	spinner   spinner.Model
	mode      viewMode
	ctx       context.Context // cancelled when the program exits
	input     string
	srcs      []source.Source
	opts      batch.Options
	results   []batch.Result
	loading   bool
	width     int
	height    int
}

type decodedMsg struct {
	results []batch.Result
}

func decodeCmd(ctx context.Context, srcs []source.Source, opts batch.Options) tea.Cmd {
	return func() tea.Msg {
		return decodedMsg{results: batch.Decode(ctx, srcs, opts)}
	}
}

func NewModel(ctx context.Context, input string, srcs []source.Source, opts batch.Options) model {
	summary := viewport.New()
	summary.SetWidth(80)
	summary.SetHeight(24)

	detail := viewport.New()
	detail.SetWidth(80)
	detail.SetHeight(24)

	classList := list.New([]list.Item{}, classDelegate{}, 80, 24)
	classList.SetShowStatusBar(false)
	classList.SetFilteringEnabled(true)
	classList.Title = "Classes"
	classList.Styles.Title = styles.Title
	classList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Selected

	m := model{
		summary:   summary,
		classList: classList,
		detail:    detail,
		spinner:   s,
		mode:      viewSummary,
		ctx:       ctx,
		input:     input,
		srcs:      srcs,
		opts:      opts,
		loading:   true,
		width:     80,
		height:    24,
	}
	m.updateSummary()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(decodeCmd(m.ctx, m.srcs, m.opts), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case decodedMsg:
		m.results = msg.results
		m.loading = false
		m.updateClassList()
		m.updateSummary()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateSummary()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.summary.SetWidth(msg.Width)
			m.summary.SetHeight(msg.Height - 2)
			m.classList.SetWidth(msg.Width)
			m.classList.SetHeight(msg.Height - 2)
			m.detail.SetWidth(msg.Width)
			m.detail.SetHeight(msg.Height - 2)
			m.updateSummary()
		}

	case tea.KeyMsg:
		// While filtering, the list gets every key except quit.
		if m.mode == viewClasses && m.classList.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.mode = viewSummary
			return m, nil
		case "c":
			if m.classCount() > 0 {
				m.mode = viewClasses
			}
			return m, nil
		case "enter":
			if m.mode == viewClasses {
				if item, ok := m.classList.SelectedItem().(classItem); ok {
					m.detail.SetContent(classDetail(item.container, item.class))
					m.detail.GotoTop()
					m.mode = viewDetail
				}
			}
			return m, nil
		case "esc":
			if m.mode == viewDetail {
				m.mode = viewClasses
				return m, nil
			}
		case "tab":
			m.mode = m.nextMode(1)
			return m, nil
		case "shift+tab":
			m.mode = m.nextMode(-1)
			return m, nil
		}
	}

	switch m.mode {
	case viewClasses:
		m.classList, cmd = m.classList.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	default:
		m.summary, cmd = m.summary.Update(msg)
	}
	return m, cmd
}

// nextMode cycles summary → classes → detail, skipping views that have
// nothing to show.
func (m model) nextMode(step int) viewMode {
	mode := m.mode
	for range 3 {
		mode = viewMode((int(mode) + step + 3) % 3)
		switch {
		case mode == viewClasses && m.classCount() == 0:
		case mode == viewDetail && m.detail.TotalLineCount() == 0:
		default:
			return mode
		}
	}
	return m.mode
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewClasses:
		content = m.classList.View()
		menu = " Enter: members • /: filter • S: summary • Tab: cycle • Q: quit "
	case viewDetail:
		content = m.detail.View()
		menu = " Esc: classes • S: summary • Tab: cycle • Q: quit "
	default:
		content = m.summary.View()
		if m.classCount() > 0 {
			menu = " C: classes • Tab: cycle • Q: quit "
		} else {
			menu = " Q: quit "
		}
	}
	return content + "\n" + styles.MenuBar.Width(m.width).Render(menu)
}

func (m model) classCount() int {
	return len(m.classList.Items())
}

func (m *model) updateClassList() {
	var items []list.Item
	for _, r := range m.results {
		if r.Err != nil {
			continue
		}
		origin := r.Source.Group + "/" + r.Source.Name
		for i := range r.Container.Classes {
			cls := &r.Container.Classes[i]
			items = append(items, classItem{
				container: r.Container,
				class:     cls,
				origin:    origin,
				javaName:  dex.Descriptor(cls.Name),
			})
		}
	}
	m.classList.SetItems(items)
}

func (m *model) updateSummary() {
	width := m.width
	if width == 0 {
		width = 80
	}

	var md string
	if m.loading {
		relPath := m.input
		if cwd, err := os.Getwd(); err == nil {
			if rel, err := pathpkg.Rel(cwd, m.input); err == nil {
				relPath = rel
			}
		}
		md = fmt.Sprintf("# dexscope\n\n```\n; %s\n; %d containers\n```\n\n%s Decoding...",
			relPath, len(m.srcs), m.spinner.View())
	} else {
		md = summaryMarkdown(m.results, false)
	}

	rendered, err := styles.GetMarkdownRenderer(width - 2).Render(md)
	if err != nil {
		rendered = md
	}
	m.summary.SetContent(strings.TrimSuffix(rendered, "\n"))
}
