package screen

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the screen.
var (
	ColorRed    = lipgloss.Color("#FF5F5F")
	ColorGreen  = lipgloss.Color("#5FFF87")
	ColorYellow = lipgloss.Color("#FFD75F")
	ColorCyan   = lipgloss.Color("#5FD7FF")
	ColorGray   = lipgloss.Color("#6C6C6C")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Padding(0, 2)

	GuideIdleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Foreground(ColorGray).
			Align(lipgloss.Center, lipgloss.Center)

	GuideArmedStyle = GuideIdleStyle.
			BorderForeground(ColorGreen).
			Foreground(ColorGreen)

	ButtonStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorGray).
			Padding(0, 2)

	ButtonActiveStyle = ButtonStyle.
				BorderForeground(ColorCyan).
				Foreground(ColorCyan).
				Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)

// bannerStyleFor colours the banner by outcome kind.
func bannerStyleFor(kind string) lipgloss.Style {
	switch kind {
	case "accepted":
		return BannerStyle.Background(lipgloss.Color("#005F00"))
	case "error":
		return BannerStyle.Background(lipgloss.Color("#870000"))
	default:
		return BannerStyle.Background(lipgloss.Color("#3A3A3A"))
	}
}
