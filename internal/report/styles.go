package report

import "github.com/charmbracelet/lipgloss"

var (
	// PrimaryColor is the heading color.
	PrimaryColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks undefined metrics and weak models.
	WarningColor = lipgloss.Color("#FFE66D")
	// SubtleColor indicates less prominent text.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for the report title.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	// SectionStyle is used for section headings.
	SectionStyle = lipgloss.NewStyle().
			Bold(true)

	// WarningStyle formats undefined values and caveats.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)
)
