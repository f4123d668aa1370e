package update

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/ui/components"
	"github.com/Rorical/RoriChat/ui/styles"
)

// Rows taken by the header, the bordered input and the status bar.
const chromeHeight = 1 + 3 + 1

// Widgets holds the bubbles components the view is built from.
type Widgets struct {
	Input      textinput.Model
	Viewport   viewport.Model
	Spinner    spinner.Model
	Markdown   *components.Markdown
	Transcript *components.Transcript
}

func NewWidgets() Widgets {
	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle()

	return Widgets{
		Input:      input,
		Viewport:   viewport.New(80, 20),
		Spinner:    sp,
		Markdown:   components.NewMarkdown(76),
		Transcript: components.NewTranscript(),
	}
}

func HandleUpdateWithEventBus(appModel *models.AppModel, w *Widgets, msg tea.Msg, eb *eventbus.EventBus) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, w, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, w, msg)
		return nil
	case spinner.TickMsg:
		return HandleSpinnerTick(appModel, w, msg)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, w, msg)
	}
	return nil
}
