// Package styles holds the markdown and terminal styles shared by the
// dexscope views.
package styles

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// NoColor reports whether output should be plain text.
func NoColor() bool {
	return os.Getenv("DEXSCOPE_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

// GetMarkdownRenderer returns a glamour renderer wrapping at width. With
// colors disabled it uses glamour's plain notty style.
func GetMarkdownRenderer(width int) *glamour.TermRenderer {
	style := glamour.WithStyles(GetMarkdownStyle())
	if NoColor() {
		style = glamour.WithStandardStyle(glamourstyles.NoTTYStyle)
	}
	r, _ := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	return r
}

// GetMarkdownStyle returns the summary document style.
func GetMarkdownStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: stringPtr(charmtone.Smoke.Hex()),
			},
			Margin: uintPtr(1),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       stringPtr(charmtone.Malibu.Hex()),
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix:          " ",
				Suffix:          " ",
				Color:           stringPtr(charmtone.Zest.Hex()),
				BackgroundColor: stringPtr(charmtone.Charple.Hex()),
				Bold:            boolPtr(true),
			},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "## "},
		},
		H3: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix: "### ",
				Color:  stringPtr(charmtone.Guac.Hex()),
			},
		},
		List: ansi.StyleList{LevelIndent: 2},
		Item: ansi.StylePrimitive{BlockPrefix: "• "},
		Emph: ansi.StylePrimitive{Italic: boolPtr(true)},
		Strong: ansi.StylePrimitive{
			Bold: boolPtr(true),
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: stringPtr(charmtone.Malibu.Hex()),
			},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{
					Color: stringPtr(charmtone.Squid.Hex()),
				},
				Margin: uintPtr(2),
			},
		},
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{},
			},
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
		HorizontalRule: ansi.StylePrimitive{
			Color:  stringPtr(charmtone.Charcoal.Hex()),
			Format: "\n--------\n",
		},
	}
}

// Terminal styles for the interactive browser.
var (
	Title     = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Charple.Hex())).MarginLeft(2)
	Selected  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cheeky.Hex()))
	Muted     = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
	Modifier  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Malibu.Hex()))
	TypeName  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex()))
	Member    = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Smoke.Hex())).Bold(true)
	ErrorText = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cherry.Hex()))
	MenuBar   = lipgloss.NewStyle().
			Background(lipgloss.Color(charmtone.Pepper.Hex())).
			Foreground(lipgloss.Color(charmtone.Smoke.Hex())).
			Padding(0, 1)
)
