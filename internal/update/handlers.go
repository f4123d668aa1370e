package update

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
)

const resetCommand = "/reset"

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, w *Widgets, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch keyMsg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc":
		if appModel.Loading() {
			if err := eb.SendToCore(eventbus.CancelEvent{}); err != nil {
				appModel.Status = "Error cancelling: " + err.Error()
				return nil
			}
			appModel.Status = "Cancelling"
		}
		return nil
	case "enter":
		return handleSubmit(appModel, w, eb)
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		w.Viewport, cmd = w.Viewport.Update(keyMsg)
		return cmd
	}

	var cmd tea.Cmd
	w.Input, cmd = w.Input.Update(keyMsg)
	return cmd
}

func handleSubmit(appModel *models.AppModel, w *Widgets, eb *eventbus.EventBus) tea.Cmd {
	text := strings.TrimSpace(w.Input.Value())
	if text == "" {
		return nil
	}
	// Enter is disabled while a reply is pending; the input keeps its text.
	if appModel.Loading() {
		appModel.Status = "Agent is typing, press Esc to cancel"
		return nil
	}

	var event eventbus.UIEvent = eventbus.SendMessageEvent{Message: text}
	if text == resetCommand {
		event = eventbus.ResetSessionEvent{}
	} else if !appModel.ChatServiceReady {
		appModel.Status = "No endpoint configured, run 'rorichat profile edit'"
	}

	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error sending message: " + err.Error()
		return nil
	}

	w.Input.Reset()
	return nil
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, w *Widgets, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		wasLoading := appModel.Loading()
		appModel.Conversation = event.State
		appModel.SessionActive = event.SessionActive
		appModel.Status = statusText(event.State)
		RefreshViewport(appModel, w)

		if appModel.Loading() && !wasLoading {
			return w.Spinner.Tick
		}
	case eventbus.NoticeEvent:
		appModel.Status = event.Text
	}

	return nil
}

func statusText(state models.ConversationState) string {
	switch state.Status {
	case models.Loading:
		return "Agent is typing"
	case models.Failed:
		return "Send failed"
	}
	return "Ready"
}

// RefreshViewport re-renders the transcript and follows the newest message.
func RefreshViewport(appModel *models.AppModel, w *Widgets) {
	w.Viewport.SetContent(w.Transcript.Render(appModel.Conversation.Messages, w.Viewport.Width, w.Markdown))
	w.Viewport.GotoBottom()
}

func HandleWindowSizeMsg(appModel *models.AppModel, w *Widgets, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height

	w.Viewport.Width = sizeMsg.Width
	w.Viewport.Height = max(sizeMsg.Height-chromeHeight, 1)
	w.Input.Width = max(sizeMsg.Width-8, 10)
	w.Markdown.SetWidth(sizeMsg.Width - 8)
	RefreshViewport(appModel, w)
}

// HandleSpinnerTick keeps the spinner running only while Loading.
func HandleSpinnerTick(appModel *models.AppModel, w *Widgets, tick spinner.TickMsg) tea.Cmd {
	if !appModel.Loading() {
		return nil
	}
	var cmd tea.Cmd
	w.Spinner, cmd = w.Spinner.Update(tick)
	return cmd
}
