package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/siherrmann/dealgraph/model"
)

// Terminal styles
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("99"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	URLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)
)

var entityStyles = map[model.EntityType]lipgloss.Style{
	model.EntityCompany:        lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	model.EntityPerson:         lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	model.EntityIndustry:       lipgloss.NewStyle().Foreground(lipgloss.Color("228")),
	model.EntityFinancialValue: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
}

// formatEntity renders "name (type)" coloured by entity type
func formatEntity(e *model.Entity) string {
	style, ok := entityStyles[e.Type]
	if !ok {
		style = lipgloss.NewStyle()
	}
	return style.Render(e.Name) + DimStyle.Render(" ("+string(e.Type)+")")
}
