package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kalambet/imgask/internal/config"
	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/selection"
	"github.com/kalambet/imgask/internal/suggest"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Ask questions about an image in a terminal UI",
	Long: `Open a terminal UI for asking questions about an image.

Keys:
  ctrl+o      load an image (file path or URL)
  ↑/↓         move through suggestions
  tab         accept the highlighted suggestion
  enter       accept the highlighted suggestion, or ask the question
  esc         hide suggestions
  ctrl+r      retry after an error
  ctrl+c      quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")

		cfg, err := config.Load()
		if err != nil {
			return withExitCode(2, err)
		}

		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		logFile, err := os.OpenFile(filepath.Join(cfg.Storage.DataDir, "imgask.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()
		setupLogging(logFile, cfg.Log.Level)

		changed := make(chan struct{}, 1)
		notify := func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}

		ctrl := suggest.NewController(newResolver(cfg),
			suggest.WithDebounce(cfg.Suggest.Debounce),
			suggest.WithOnChange(func(suggest.State) { notify() }),
		)
		defer ctrl.Close()
		pipe := newPipeline(cfg, imagequery.WithOnChange(func(imagequery.QueryResult) { notify() }))

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		m := newModel(ctx, ctrl, pipe, changed)
		if image != "" {
			m.loadImage(image)
		}

		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("running terminal UI: %w", err)
		}
		return nil
	},
}

func init() {
	interactiveCmd.Flags().String("image", "", "image file path or http(s) URL to start with")
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).MarginBottom(1)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true).Background(lipgloss.Color("238"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	loadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	answerStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("241")).Padding(0, 1)
)

type inputMode int

const (
	modeQuestion inputMode = iota
	modeImage
)

// changeMsg tells the model to re-read controller and pipeline state.
type changeMsg struct{}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

type model struct {
	ctx     context.Context
	ctrl    *suggest.Controller
	pipe    *imagequery.Pipeline
	changed <-chan struct{}

	mode      inputMode
	question  textinput.Model
	imagePath textinput.Model
	lastText  string
	notice    string
	width     int

	suggestions suggest.State
	result      imagequery.QueryResult
}

func newModel(ctx context.Context, ctrl *suggest.Controller, pipe *imagequery.Pipeline, changed <-chan struct{}) *model {
	q := textinput.New()
	q.Placeholder = "Ask a question about the image"
	q.Prompt = "? "
	q.CharLimit = imagequery.MaxQuestionLength
	q.Focus()

	p := textinput.New()
	p.Placeholder = "path/to/image.png or https://..."
	p.Prompt = "image: "

	return &model{
		ctx:       ctx,
		ctrl:      ctrl,
		pipe:      pipe,
		changed:   changed,
		question:  q,
		imagePath: p,
		width:     80,
		result:    pipe.Result(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changed))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case changeMsg:
		m.refresh()
		return m, waitForChange(m.changed)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.ctrl.Close()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		if m.mode == modeImage {
			cmd = m.updateImageMode(msg)
		} else {
			cmd = m.updateQuestionMode(msg)
		}
		m.refresh()
		return m, cmd
	}
	return m, nil
}

func (m *model) updateImageMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.loadImage(m.imagePath.Value())
		m.setMode(modeQuestion)
		return nil
	case tea.KeyEsc:
		m.setMode(modeQuestion)
		return nil
	}
	var cmd tea.Cmd
	m.imagePath, cmd = m.imagePath.Update(msg)
	return cmd
}

func (m *model) updateQuestionMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlO:
		m.ctrl.Dismiss()
		m.setMode(modeImage)
		return nil
	case tea.KeyUp:
		if m.suggestions.Visible {
			m.ctrl.Navigate(selection.Up)
		}
		return nil
	case tea.KeyDown:
		if m.suggestions.Visible {
			m.ctrl.Navigate(selection.Down)
		}
		return nil
	case tea.KeyTab:
		if m.suggestions.Visible {
			m.commit()
		}
		return nil
	case tea.KeyEnter:
		if m.suggestions.Visible && m.suggestions.SelectedIndex != selection.None {
			m.commit()
			return nil
		}
		return m.ask()
	case tea.KeyEsc:
		m.ctrl.Dismiss()
		return nil
	case tea.KeyCtrlR:
		if m.pipe.Retry() {
			return m.ask()
		}
		return nil
	}

	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	if v := m.question.Value(); v != m.lastText {
		m.lastText = v
		m.ctrl.OnTextChanged(v)
	}
	return cmd
}

// commit fills the input with the highlighted suggestion without
// triggering a new resolution for it.
func (m *model) commit() {
	v, ok := m.ctrl.Commit()
	if !ok {
		return
	}
	m.question.SetValue(v)
	m.question.CursorEnd()
	m.lastText = v
}

func (m *model) ask() tea.Cmd {
	m.ctrl.Dismiss()
	q := m.question.Value()
	ctx := m.ctx
	pipe := m.pipe
	return func() tea.Msg {
		pipe.Ask(ctx, q)
		return changeMsg{}
	}
}

func (m *model) loadImage(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	ref, err := imagequery.Parse(s)
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = ""
	m.pipe.SetImage(ref)
	m.imagePath.SetValue("")
	m.refresh()
}

func (m *model) setMode(mode inputMode) {
	m.mode = mode
	if mode == modeImage {
		m.question.Blur()
		m.imagePath.Focus()
		return
	}
	m.imagePath.Blur()
	m.question.Focus()
}

func (m *model) refresh() {
	m.suggestions = m.ctrl.State()
	m.result = m.pipe.Result()
}

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("imgask"))
	b.WriteString("\n")

	img := m.pipe.Image()
	switch {
	case img.IsZero():
		b.WriteString(dimStyle.Render("no image loaded, press ctrl+o"))
	case img.Location() != "":
		b.WriteString("image: " + img.Location())
	default:
		b.WriteString("image: (inline)")
	}
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n")

	if m.mode == modeImage {
		b.WriteString(m.imagePath.View() + "\n")
		b.WriteString(dimStyle.Render("enter to load, esc to cancel") + "\n")
		return b.String()
	}

	b.WriteString(m.question.View() + "\n")
	b.WriteString(m.suggestionView())
	b.WriteString("\n")
	b.WriteString(m.resultView())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select · tab accept · enter ask · esc hide · ctrl+o image · ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *model) suggestionView() string {
	s := m.suggestions
	if s.Loading {
		return loadingStyle.Render("  …") + "\n"
	}
	if !s.Visible || len(s.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range s.Items {
		if i == s.SelectedIndex {
			b.WriteString(selectedStyle.Render("› "+item) + "\n")
		} else {
			b.WriteString("  " + item + "\n")
		}
	}
	return b.String()
}

func (m *model) resultView() string {
	r := m.result
	switch r.Status {
	case imagequery.StatusLoading:
		return loadingStyle.Render("thinking…")
	case imagequery.StatusSuccess:
		w := m.width - 4
		if w < 20 {
			w = 20
		}
		return answerStyle.Width(w).Render(r.Answer)
	case imagequery.StatusError:
		msg := errorStyle.Render(r.ErrorMessage)
		if r.Retryable {
			msg += "\n" + dimStyle.Render("ctrl+r to retry")
		}
		return msg
	}
	return ""
}
