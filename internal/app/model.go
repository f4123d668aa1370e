package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/dispatcher"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/update"
	"github.com/Rorical/RoriChat/ui/components"
)

type AppModel struct {
	appModel   models.AppModel
	widgets    update.Widgets
	dispatcher *dispatcher.EventDispatcher
	profile    string
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.dispatcher.ListenForUIEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, &m.widgets, msg, eventBus)

	// Keep listening after every core event
	if _, ok := msg.(update.CoreEventMsg); ok {
		return m, tea.Batch(cmd, m.dispatcher.ListenForUIEvents())
	}
	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder
	loading := m.appModel.Loading()

	b.WriteString(components.RenderHeader(m.profile, m.appModel.SessionActive, m.appModel.Width))
	b.WriteString("\n")
	b.WriteString(m.widgets.Viewport.View())
	b.WriteString("\n")
	b.WriteString(components.RenderInput(m.widgets.Input.View(), loading, m.appModel.Width))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel.Status, loading, m.widgets.Spinner.View(), m.appModel.Width))

	return b.String()
}
