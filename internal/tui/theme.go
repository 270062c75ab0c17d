package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Core palette
	Green       = lipgloss.Color("#00FF41")
	BrightGreen = lipgloss.Color("#39FF14")
	MedGreen    = lipgloss.Color("#00C832")
	DarkGreen   = lipgloss.Color("#008F11")
	DimGreen    = lipgloss.Color("#003B00")
	Cyan        = lipgloss.Color("#00D4AA")
	Amber       = lipgloss.Color("#FFB000")
	Black       = lipgloss.Color("#0D0208")
	MidGray     = lipgloss.Color("#3a3a4e")
	LightGray   = lipgloss.Color("#aaaaaa")
	White       = lipgloss.Color("#e0e0e0")
	Red         = lipgloss.Color("#FF4136")

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(DarkGreen).
			Foreground(Black).
			Bold(true).
			Padding(0, 1)

	StatusProviderStyle = lipgloss.NewStyle().
				Background(Green).
				Foreground(Black).
				Bold(true).
				Padding(0, 1)

	// Tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(DarkGreen).
			Padding(0, 2)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(Black).
			Background(Green).
			Bold(true).
			Padding(0, 2)

	// Form fields
	LabelStyle = lipgloss.NewStyle().
			Foreground(MedGreen).
			Bold(true).
			Width(10)

	InputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(DarkGreen).
				Padding(0, 1)

	InputActiveStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Green).
				Padding(0, 1)

	// Palace listing
	PalaceNameStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(White)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(BrightGreen)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(DimGreen)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(BrightGreen)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DarkGreen)

	// Progress log while generating
	ProgressStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Italic(true)

	// Braille dots, shown while the collaborator works
	GeneratingSpinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 12,
	}
)

const Banner = `
  ██╗      ██████╗  ██████╗██╗
  ██║     ██╔═══██╗██╔════╝██║
  ██║     ██║   ██║██║     ██║
  ██║     ██║   ██║██║     ██║
  ███████╗╚██████╔╝╚██████╗██║
  ╚══════╝ ╚═════╝  ╚═════╝╚═╝
`
