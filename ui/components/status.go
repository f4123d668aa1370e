package components

import (
	"fmt"

	"github.com/Rorical/RoriChat/ui/styles"
)

func RenderHeader(profile string, sessionActive bool, width int) string {
	session := "new session"
	if sessionActive {
		session = "session active"
	}
	return styles.HeaderStyle(width).Render(fmt.Sprintf("RoriChat · %s · %s", profile, session))
}

// RenderStatus prefixes the spinner frame while a reply is pending.
func RenderStatus(status string, loading bool, spinnerView string, width int) string {
	statusContent := status
	if loading {
		statusContent = spinnerView + " " + status
	}
	return styles.StatusStyle(width).Render(statusContent)
}

func RenderInput(inputView string, loading bool, width int) string {
	if loading {
		return styles.DisabledInputStyle(width).Render(inputView)
	}
	return styles.InputStyle(width).Render(inputView)
}
