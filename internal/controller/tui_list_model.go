package controller

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tickMsg time.Time

// Simple delegate for target list items.
type targetDelegate struct {
	offset int
}

func (d targetDelegate) Height() int  { return 1 }
func (d targetDelegate) Spacing() int { return 0 }
func (d targetDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d targetDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	target, ok := item.(targetItem)
	if !ok {
		return
	}

	isSelected := index == m.Index()

	var nameStyle, stepsStyle, opStyle lipgloss.Style

	label := string(target.info.ID)
	if target.info.Source != "" {
		label = fmt.Sprintf("%s ← %s", label, target.info.Source)
	}

	// steps (6) + operator (20) + spacing (4)
	width := m.Width() - 30

	if isSelected {
		base := lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true)
		nameStyle = base
		stepsStyle = base.Width(6).Align(lipgloss.Right)
		opStyle = base.Width(20)
		label = animateScroll(label, width, d.offset)
	} else {
		nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
		stepsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			Width(6).
			Align(lipgloss.Right)
		opStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Width(20)
		label = truncateToWidth(label, width)
	}

	line := fmt.Sprintf("%s  %s  %s",
		stepsStyle.Render(fmt.Sprintf("%d", target.info.Steps)),
		opStyle.Render(truncateToWidth(target.info.Operator, 20)),
		nameStyle.Render(label),
	)
	_, _ = fmt.Fprint(w, line)
}

func animateScroll(text string, width int, offset int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	gap := "   "

	// Ticks to wait before scrolling starts.
	pause := 5

	if offset < pause {
		return truncateToWidth(text, width)
	}

	runes := []rune(text + gap)
	n := len(runes)
	start := (offset - pause) % n

	res := make([]rune, 0, width)
	for i := range width {
		res = append(res, runes[(start+i)%n])
	}

	return string(res)
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	const ellipsis = "…"

	maxWidth := width - lipgloss.Width(ellipsis)
	if maxWidth <= 0 {
		return ellipsis
	}

	currentWidth := 0

	result := make([]rune, 0, len(text))
	for _, r := range text {
		rWidth := lipgloss.Width(string(r))
		if currentWidth+rWidth > maxWidth {
			break
		}

		result = append(result, r)
		currentWidth += rWidth
	}

	return string(result) + ellipsis
}

// listModel shows the targets of the listed workflows.
type listModel struct {
	width        int
	height       int
	targetList   list.Model
	delegate     targetDelegate
	total        int
	workflows    int
	steps        int
	rendered     bool
	animOffset   int
	lastSelected int
}

func newListModel() listModel {
	delegate := targetDelegate{}
	targetList := list.New([]list.Item{}, delegate, 80, 20)
	targetList.SetShowPagination(false)
	targetList.SetShowFilter(true)
	targetList.SetShowHelp(false)
	targetList.SetShowTitle(false)
	targetList.SetShowStatusBar(false)
	targetList.FilterInput.Placeholder = "Filter targets…"

	return listModel{
		targetList:   targetList,
		delegate:     delegate,
		lastSelected: -1,
	}
}

func (m listModel) Init() tea.Cmd {
	return tea.Tick(time.Second/2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.targetList.SetWidth(m.width)

	case tickMsg:
		if m.targetList.FilterState() != list.Filtering && m.rendered {
			m.animOffset++
			m.delegate.offset = m.animOffset
			m.targetList.SetDelegate(m.delegate)
		}

		return m, tea.Tick(time.Millisecond*150, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		default:
			m.targetList, cmd = m.targetList.Update(msg)

			if m.targetList.Index() != m.lastSelected {
				m.lastSelected = m.targetList.Index()
				m.animOffset = 0
				m.delegate.offset = 0
				m.targetList.SetDelegate(m.delegate)
			}

			return m, cmd
		}

	case targetsMsg:
		m = m.handleTargetsMsg(msg)
	}

	return m, cmd
}

func (m listModel) handleTargetsMsg(msg targetsMsg) listModel {
	targets := make([]TargetInfo, len(msg.targets))
	copy(targets, msg.targets)

	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Workflow != targets[j].Workflow {
			return targets[i].Workflow < targets[j].Workflow
		}

		return targets[i].ID < targets[j].ID
	})

	workflows := make(map[string]struct{})
	items := make([]list.Item, 0, len(targets))

	m.steps = 0

	for _, t := range targets {
		workflows[string(t.Workflow)] = struct{}{}
		m.steps += t.Steps
		items = append(items, targetItem{info: t})
	}

	m.total = len(targets)
	m.workflows = len(workflows)
	m.targetList.SetItems(items)
	m.rendered = true

	if len(items) > 0 && m.lastSelected == -1 {
		m.lastSelected = 0
	}

	return m
}

func (m listModel) View() string {
	if !m.rendered {
		return "Loading workflows…\n"
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := titleStyle.Render("🧬 goevolve targets")

	summary := summaryStyle.Render(fmt.Sprintf(
		"Targets: %s   Workflows: %s   Steps: %s",
		accentStyle.Render(fmt.Sprintf("%d", m.total)),
		accentStyle.Render(fmt.Sprintf("%d", m.workflows)),
		accentStyle.Render(fmt.Sprintf("%d", m.steps)),
	))

	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/k up • ↓/j down • g/G top/bottom • / filter • q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		m.renderTable(),
		footer,
	)
}

func (m listModel) renderTable() string {
	// title, summary, footer, border and headers
	listHeight := m.height - 9
	if listHeight < 5 {
		listHeight = 5
	}

	// margin, border and padding
	listWidth := m.width - 6

	m.targetList.SetHeight(listHeight)
	m.targetList.SetWidth(listWidth)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8")).
		Width(listWidth)

	headers := headerStyle.Render(fmt.Sprintf("%6s  %-20s  %s", "Steps", "Operator", "Target"))

	tableContainer := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Margin(0, 1).
		Padding(0, 1)

	return tableContainer.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headers,
			m.targetList.View(),
		),
	)
}
