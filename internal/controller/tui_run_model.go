package controller

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/mouse-blink/goevolve/internal/model"
)

const recentRounds = 8

// reportResult is one finished target in the results list.
type reportResult struct {
	target   string
	workflow string
	strategy string
	rounds   int
	score    float64
	diff     string
}

func (r reportResult) FilterValue() string {
	return r.target + " " + r.workflow + " " + r.strategy
}

// reportDelegate renders report results in the list.
type reportDelegate struct {
	offset int
}

func (d reportDelegate) Height() int  { return 1 }
func (d reportDelegate) Spacing() int { return 0 }
func (d reportDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d reportDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	result, ok := item.(reportResult)
	if !ok {
		return
	}

	// score (12) + strategy (12) + rounds (8) + spacing (6)
	targetWidth := m.Width() - 38

	scoreStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).Width(12)
	strategyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Width(12)
	roundsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(8)
	targetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	target := truncateToWidth(result.target, targetWidth)

	if index == m.Index() {
		selected := lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true)
		scoreStyle = selected.Width(12)
		strategyStyle = selected.Width(12)
		roundsStyle = selected.Width(8)
		targetStyle = selected
		target = animateScroll(result.target, targetWidth, d.offset)
	}

	line := fmt.Sprintf("%s  %s  %s  %s",
		scoreStyle.Render(fmt.Sprintf("%.4g", result.score)),
		strategyStyle.Render(result.strategy),
		roundsStyle.Render(fmt.Sprintf("%d", result.rounds)),
		targetStyle.Render(target),
	)
	_, _ = fmt.Fprint(w, line)
}

// runModel shows the progress of a search and, once reports arrive, the
// ranked results with their diffs.
type runModel struct {
	width         int
	height        int
	progressBar   progress.Model
	info          RunInfo
	completed     int
	total         int
	failed        int
	percent       float64
	threadTargets map[int]string
	rounds        []string
	rendered      bool
	finished      bool
	results       []reportResult
	resultsList   list.Model
	delegate      reportDelegate
	animOffset    int
	lastSelected  int
	showDiff      bool
	selectedDiff  string
	selectedName  string
}

func newRunModel() runModel {
	prog := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	delegate := reportDelegate{}
	resultsList := list.New([]list.Item{}, delegate, 80, 20)
	resultsList.SetShowPagination(false)
	resultsList.SetShowFilter(true)
	resultsList.SetShowHelp(false)
	resultsList.SetShowTitle(false)
	resultsList.SetShowStatusBar(false)
	resultsList.FilterInput.Placeholder = "Filter results…"

	return runModel{
		progressBar:   prog,
		resultsList:   resultsList,
		delegate:      delegate,
		threadTargets: make(map[int]string),
		lastSelected:  -1,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)

	case tea.KeyMsg:
		m, cmd = m.handleKeyMsg(msg)

	case tea.MouseMsg:
		m, cmd = m.handleMouseMsg(msg)

	case tickMsg:
		return m.handleTickMsg(msg)

	case runInfoMsg:
		m = m.handleRunInfo(msg)

	case progressMsg:
		m = m.handleProgress(msg)

	case roundSealedMsg:
		m = m.handleRoundSealed(msg)

	case reportMsg:
		m = m.handleReport(msg)
	}

	return m, cmd
}

func (m runModel) handleRunInfo(msg runInfoMsg) runModel {
	m.info = msg.info
	m.total = msg.info.Calls
	m.completed = 0
	m.failed = 0
	m.percent = 0
	m.threadTargets = make(map[int]string)
	m.rendered = true
	m.finished = false

	return m
}

func (m runModel) handleProgress(msg progressMsg) runModel {
	p := msg.progress

	m.completed = p.Completed
	m.total = p.Total
	m.threadTargets[p.Thread] = string(p.Target)
	m.rendered = true

	if p.Err != nil {
		m.failed++
	}

	if m.total > 0 {
		m.percent = float64(m.completed) / float64(m.total)
	}

	return m
}

func (m runModel) handleRoundSealed(msg roundSealedMsg) runModel {
	if len(msg.round.Entries) == 0 {
		return m
	}

	best := msg.round.Best()
	line := fmt.Sprintf("%s  round %d  best %.4g  %s",
		msg.round.Target, msg.round.Number, best.Score, describeOrigin(best.Variant))

	m.rounds = append(m.rounds, line)
	if len(m.rounds) > recentRounds {
		m.rounds = m.rounds[len(m.rounds)-recentRounds:]
	}

	return m
}

func describeOrigin(v *m.Variant) string {
	if v.Lineage.Operator == "" {
		return string(v.Lineage.Origin)
	}

	return fmt.Sprintf("%s by %s", v.Lineage.Origin, v.Lineage.Operator)
}

func (m runModel) handleReport(msg reportMsg) runModel {
	m.results = append(m.results, reportResult{
		target:   string(msg.report.Target),
		workflow: string(msg.report.Workflow),
		strategy: msg.report.Strategy,
		rounds:   len(msg.report.Rounds),
		score:    msg.report.BestScore,
		diff:     msg.diff,
	})

	items := make([]list.Item, 0, len(m.results))
	for _, r := range m.results {
		items = append(items, r)
	}

	m.resultsList.SetItems(items)
	m.rendered = true
	m.finished = true

	return m
}

func (m runModel) View() string {
	if !m.rendered {
		return "Initializing search…\n"
	}

	if m.finished {
		return m.viewResults()
	}

	return m.viewProgress()
}

func (m runModel) viewProgress() string {
	accentColor := lipgloss.Color("6")

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(accentColor)

	title := titleStyle.Render(fmt.Sprintf("🧬 goevolve %s search", m.info.Strategy))

	summary := summaryStyle.Render(fmt.Sprintf(
		"Calls: %s / %s  •  Failed: %s  •  Workers: %s  •  Seed: %s",
		accentStyle.Render(fmt.Sprintf("%d", m.completed)),
		accentStyle.Render(fmt.Sprintf("%d", m.total)),
		accentStyle.Render(fmt.Sprintf("%d", m.failed)),
		accentStyle.Render(fmt.Sprintf("%d", m.info.Threads)),
		accentStyle.Render(fmt.Sprintf("%d", m.info.Seed)),
	))

	progressView := lipgloss.NewStyle().
		Padding(0, 2).
		Render(m.progressBar.ViewAs(m.percent))

	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(m.width).
		Render("Press q to quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		progressView,
		m.renderThreadBox(accentColor),
		m.renderRoundsBox(),
		footer,
	)
}

func (m runModel) renderThreadBox(accentColor lipgloss.Color) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Margin(1, 1, 0, 0).
		Width(m.width - 4)

	threads := m.info.Threads
	if threads < 1 {
		threads = 1
	}

	// width minus border and padding
	available := m.width - 8
	digits := len(fmt.Sprintf("%d", threads-1))
	label := fmt.Sprintf("Worker %%%dd: %%s", digits)
	targetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	lines := make([]string, 0, threads)

	for i := range threads {
		target := m.threadTargets[i]
		if target == "" {
			target = "idle"
		}

		lines = append(lines, fmt.Sprintf(label, i, targetStyle.Render(truncateToWidth(target, available-10-digits))))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m runModel) renderRoundsBox() string {
	if len(m.rounds) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	lineStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	lines := []string{headerStyle.Render("Sealed rounds")}
	for _, r := range m.rounds {
		lines = append(lines, lineStyle.Render(truncateToWidth(r, m.width-8)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Margin(0, 1, 1, 0).
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m runModel) viewResults() string {
	accentColor := lipgloss.Color("6")

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(accentColor)

	title := titleStyle.Render("🧬 goevolve results")

	improved := 0

	for _, r := range m.results {
		if strings.TrimSpace(r.diff) != "" {
			improved++
		}
	}

	summary := summaryStyle.Render(fmt.Sprintf(
		"Targets: %s  •  Changed: %s",
		accentStyle.Render(fmt.Sprintf("%d", len(m.results))),
		accentStyle.Render(fmt.Sprintf("%d", improved)),
	))

	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/k up • ↓/j down • / filter • enter/space/click diff • q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		m.renderResultsBox(accentColor),
		footer,
	)
}

func (m runModel) renderResultsBox(accentColor lipgloss.Color) string {
	listWidth := m.width - 4

	listHeight := m.height - 9 - m.diffBoxHeight()
	if listHeight < 5 {
		listHeight = 5
	}

	m.resultsList.SetHeight(listHeight)
	m.resultsList.SetWidth(listWidth)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8")).
		Width(listWidth)

	headers := headerStyle.Render(fmt.Sprintf("%-12s  %-12s  %-8s  %s", "Best", "Strategy", "Rounds", "Target"))

	resultsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Margin(0, 1, 0, 0).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, headers, m.resultsList.View()))

	diffBox := m.renderDiffBox(accentColor, listWidth)
	if diffBox == "" {
		return resultsBox
	}

	return lipgloss.JoinVertical(lipgloss.Left, resultsBox, diffBox)
}

func (m runModel) handleKeyMsg(msg tea.KeyMsg) (runModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	if !m.finished {
		return m, nil
	}

	if msg.String() == "enter" || msg.String() == " " {
		m.toggleSelectedDiff()
		return m, nil
	}

	m.resultsList, cmd = m.resultsList.Update(msg)
	m.trackSelection()

	return m, cmd
}

func (m runModel) handleMouseMsg(msg tea.MouseMsg) (runModel, tea.Cmd) {
	var cmd tea.Cmd

	if !m.finished {
		return m, nil
	}

	m.resultsList, cmd = m.resultsList.Update(msg)
	m.trackSelection()

	if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease && m.resultsList.FilterState() != list.Filtering {
		m.toggleSelectedDiff()
	}

	return m, cmd
}

// trackSelection resets the scroll animation and hides the diff when the
// selection moves.
func (m *runModel) trackSelection() {
	if m.resultsList.Index() == m.lastSelected {
		return
	}

	m.lastSelected = m.resultsList.Index()
	m.animOffset = 0
	m.delegate.offset = 0
	m.resultsList.SetDelegate(m.delegate)
	m.showDiff = false
	m.selectedDiff = ""
	m.selectedName = ""
}

func (m *runModel) toggleSelectedDiff() {
	result, ok := m.resultsList.SelectedItem().(reportResult)
	if !ok {
		return
	}

	diff := strings.TrimSpace(result.diff)
	if diff == "" || (m.showDiff && m.selectedDiff == diff) {
		m.showDiff = false
		m.selectedDiff = ""
		m.selectedName = ""

		return
	}

	m.showDiff = true
	m.selectedDiff = diff
	m.selectedName = result.target
}

func (m runModel) diffMaxLines() int {
	return min(max(m.height/3, 6), 20)
}

func (m runModel) diffBoxHeight() int {
	if !m.showDiff || m.selectedDiff == "" {
		return 0
	}

	return min(len(strings.Split(m.selectedDiff, "\n")), m.diffMaxLines()) + 3
}

func (m runModel) renderDiffBox(accentColor lipgloss.Color, width int) string {
	if !m.showDiff || m.selectedDiff == "" {
		return ""
	}

	lines := strings.Split(m.selectedDiff, "\n")
	truncated := false

	if maxLines := m.diffMaxLines(); len(lines) > maxLines {
		lines = lines[:maxLines-1]
		truncated = true
	}

	contentWidth := max(width-4, 10)

	body := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		body = append(body, renderDiffLine(line, contentWidth))
	}

	if truncated {
		body = append(body, "…")
	}

	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Render(truncateToWidth("Diff • "+m.selectedName, contentWidth))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Margin(0, 1, 0, 0).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinVertical(lipgloss.Left, body...)))
}

func renderDiffLine(line string, width int) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	switch {
	case strings.HasPrefix(line, "+++"):
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	case strings.HasPrefix(line, "---"):
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	case strings.HasPrefix(line, "@@"):
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	case strings.HasPrefix(line, "+"):
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case strings.HasPrefix(line, "-"):
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	case strings.TrimSpace(line) == "":
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	}

	return style.Render(truncateToWidth(line, width))
}

func (m runModel) handleWindowSize(msg tea.WindowSizeMsg) runModel {
	m.width = msg.Width
	m.height = msg.Height
	m.progressBar.Width = max(m.width-8, 20)

	return m
}

func (m runModel) handleTickMsg(_ tickMsg) (runModel, tea.Cmd) {
	if m.finished && m.resultsList.FilterState() != list.Filtering {
		m.animOffset++
		m.delegate.offset = m.animOffset
		m.resultsList.SetDelegate(m.delegate)
	}

	return m, tea.Tick(time.Millisecond*150, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
