package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type doneMsg struct{ err error }

type spinnerModel struct {
	spinner spinner.Model
	title   string
	err     error
	done    bool
}

func (m spinnerModel) Init() tea.Cmd { return m.spinner.Tick }

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done, m.err = true, msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.title + "\n"
}

// RunWithSpinner runs fn while drawing a spinner titled title on out. When
// out is not a terminal fn runs without any drawing.
func RunWithSpinner(ctx context.Context, out io.Writer, styles Styles, title string, fn func(context.Context) error) error {
	if !IsTerminal(out) {
		return fn(ctx)
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Spinner))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(spinnerModel{spinner: sp, title: title},
		tea.WithOutput(out), tea.WithContext(ctx), tea.WithoutSignalHandler())

	errc := make(chan error, 1)
	go func() {
		err := fn(ctx)
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(spinnerModel); ok && m.done {
		return m.err
	}
	// Drawing stopped early on ctrl+c or a terminal error. The operation is
	// cancelled and its result still reported.
	cancel()
	if err := <-errc; err != nil {
		return err
	}
	return runErr
}
