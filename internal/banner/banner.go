package banner

import (
	"github.com/charmbracelet/lipgloss"

	"clickload/internal/tui/styles"
)

const ascii = `
   ________      __   __                    __
  / ____/ (_)___/ /__/ /   ____  ____ _____/ /
 / /   / / / __/ //_/ /   / __ \/ __ '/ __  / 
/ /___/ / / /_/ ,< / /___/ /_/ / /_/ / /_/ /  
\____/_/_/\__/_/|_/_____/\____/\__,_/\__,_/   `

// GetString returns the banner followed by the tagline.
func GetString() string {
	style := lipgloss.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n" +
		styles.Subtle.Render("  load testing for the HomeworkClick backend") + "\n"
}
