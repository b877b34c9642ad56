package x_log

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

//
// ---------- Palette ----------

const (
	ColorTeal40    = "#3ddbd9"
	ColorBlue60    = "#4589ff"
	ColorBlue40    = "#78a9ff"
	ColorBlue70    = "#0043ce"
	ColorBlueBase  = "#0f62fe"
	ColorPurple40  = "#be95ff"
	ColorRed60     = "#da1e28"
	ColorRedStrong = "#ff0000"
	ColorOrange40  = "#ff832b"
	ColorGray60    = "#8d8d8d"
	ColorGray10    = "#f4f4f4"
	ColorGray90    = "#262626"
)

//
// ---------- Styles ----------

// Styles holds the console theme.
type Styles struct {
	Out             io.Writer                 // output target
	Timestamp       lipgloss.Style            // timestamps
	Message         lipgloss.Style            // the log message
	Badges          map[zerolog.Level]string  // level badge background
	Keys            map[string]lipgloss.Style // known field keys: run, pid, phase...
	DefaultKeyStyle lipgloss.Style            // any other key
}

// DefaultStylesByName returns a theme by name ("dark", "light").
func DefaultStylesByName(name string) *Styles {
	switch strings.ToLower(name) {
	case "light":
		return DefaultStylesLight()
	default:
		return DefaultStylesDark()
	}
}

//
// ---------- Console writer ----------

// badgeColor picks the badge background for a level name.
func (s *Styles) badgeColor(lvl string) string {
	level, err := zerolog.ParseLevel(lvl)
	if err == nil {
		if c, ok := s.Badges[level]; ok {
			return c
		}
	}
	return ColorGray60
}

// ConsoleWriterWithStyles builds a zerolog.ConsoleWriter for the theme.
// Levels render as three-letter badges (INF, WAR, ERR).
func ConsoleWriterWithStyles(styles *Styles) zerolog.ConsoleWriter {
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray60)).Render("=")

	return zerolog.ConsoleWriter{
		Out:        styles.Out,
		TimeFormat: "01-02 15:04:05",

		FormatLevel: func(i any) string {
			lvl := strings.ToLower(fmt.Sprint(i))
			label := strings.ToUpper(lvl)
			if len(label) > 3 {
				label = label[:3]
			}
			return lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(lipgloss.Color(styles.badgeColor(lvl))).
				Padding(0, 1).
				Render(label)
		},

		FormatTimestamp: func(i any) string {
			return styles.Timestamp.Render(fmt.Sprintf("[%s]", i))
		},

		FormatFieldName: func(i any) string {
			key := fmt.Sprint(i)
			style, ok := styles.Keys[key]
			if !ok {
				style = styles.DefaultKeyStyle
			}
			return style.Render(key) + sep
		},

		FormatMessage: func(i any) string {
			if i == nil {
				return ""
			}
			return styles.Message.Render(fmt.Sprint(i))
		},
	}
}

//
// ---------- Themes ----------

func themed(key, accent, message string) *Styles {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(key))
	return &Styles{
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray60)).
			Width(16),
		Message:         lipgloss.NewStyle().Foreground(lipgloss.Color(message)),
		DefaultKeyStyle: keyStyle,

		Badges: map[zerolog.Level]string{
			zerolog.DebugLevel: ColorTeal40,
			zerolog.InfoLevel:  accent,
			zerolog.WarnLevel:  ColorOrange40,
			zerolog.ErrorLevel: ColorRed60,
			zerolog.FatalLevel: ColorRedStrong,
			zerolog.PanicLevel: ColorRedStrong,
		},

		// Controller fields stand out from the rest.
		Keys: map[string]lipgloss.Style{
			"run":   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple40)),
			"pid":   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple40)),
			"phase": lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple40)),
			"err":   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed60)),
			"req":   keyStyle.Faint(true),
		},
	}
}

func DefaultStylesDark() *Styles {
	return themed(ColorBlue40, ColorBlue60, ColorGray10)
}

func DefaultStylesLight() *Styles {
	return themed(ColorBlueBase, ColorBlue70, ColorGray90)
}
