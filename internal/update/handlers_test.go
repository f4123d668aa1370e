package update

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
)

func typeText(appModel *models.AppModel, w *Widgets, eb *eventbus.EventBus, text string) {
	HandleKeyMsgWithEventBus(appModel, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}, eb)
}

func enter(appModel *models.AppModel, w *Widgets, eb *eventbus.EventBus) {
	HandleKeyMsgWithEventBus(appModel, w, tea.KeyMsg{Type: tea.KeyEnter}, eb)
}

func TestEnter_SendsMessage(t *testing.T) {
	eb := eventbus.NewEventBus()
	appModel := &models.AppModel{ChatServiceReady: true}
	w := NewWidgets()

	typeText(appModel, &w, eb, "hello")
	enter(appModel, &w, eb)

	require.Len(t, eb.UIToCore(), 1)
	assert.Equal(t, eventbus.SendMessageEvent{Message: "hello"}, <-eb.UIToCore())
	assert.Empty(t, w.Input.Value())
}

func TestEnter_DisabledWhileLoading(t *testing.T) {
	eb := eventbus.NewEventBus()
	appModel := &models.AppModel{
		ChatServiceReady: true,
		Conversation:     models.ConversationState{Status: models.Loading},
	}
	w := NewWidgets()

	typeText(appModel, &w, eb, "again")
	enter(appModel, &w, eb)

	assert.Empty(t, eb.UIToCore())
	assert.Equal(t, "again", w.Input.Value())
}

func TestEnter_ResetCommand(t *testing.T) {
	eb := eventbus.NewEventBus()
	appModel := &models.AppModel{ChatServiceReady: true}
	w := NewWidgets()

	typeText(appModel, &w, eb, "/reset")
	enter(appModel, &w, eb)

	assert.Equal(t, eventbus.ResetSessionEvent{}, <-eb.UIToCore())
}

func TestEsc_CancelsOnlyWhileLoading(t *testing.T) {
	eb := eventbus.NewEventBus()
	appModel := &models.AppModel{}
	w := NewWidgets()

	HandleKeyMsgWithEventBus(appModel, &w, tea.KeyMsg{Type: tea.KeyEsc}, eb)
	assert.Empty(t, eb.UIToCore())

	appModel.Conversation.Status = models.Loading
	HandleKeyMsgWithEventBus(appModel, &w, tea.KeyMsg{Type: tea.KeyEsc}, eb)
	assert.Equal(t, eventbus.CancelEvent{}, <-eb.UIToCore())
}

func TestHandleCoreEvent_StateUpdate(t *testing.T) {
	appModel := &models.AppModel{}
	w := NewWidgets()

	cmd := HandleCoreEvent(appModel, &w, CoreEventMsg{Event: eventbus.StateUpdateEvent{
		State: models.ConversationState{
			Messages: []models.Message{{Content: "hi", Sender: models.User, Direction: models.Outgoing}},
			Status:   models.Loading,
		},
		SessionActive: true,
	}})

	assert.NotNil(t, cmd, "entering Loading starts the spinner")
	assert.True(t, appModel.Loading())
	assert.True(t, appModel.SessionActive)
	assert.Equal(t, "Agent is typing", appModel.Status)

	cmd = HandleCoreEvent(appModel, &w, CoreEventMsg{Event: eventbus.StateUpdateEvent{
		State: models.ConversationState{Status: models.Failed, LastError: "boom"},
	}})
	assert.Nil(t, cmd)
	assert.Equal(t, "Send failed", appModel.Status)

	HandleCoreEvent(appModel, &w, CoreEventMsg{Event: eventbus.NoticeEvent{Text: "note"}})
	assert.Equal(t, "note", appModel.Status)
}

func TestHandleWindowSizeMsg(t *testing.T) {
	appModel := &models.AppModel{}
	w := NewWidgets()

	HandleWindowSizeMsg(appModel, &w, tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Equal(t, 100, appModel.Width)
	assert.Equal(t, 100, w.Viewport.Width)
	assert.Equal(t, 40-chromeHeight, w.Viewport.Height)
}
