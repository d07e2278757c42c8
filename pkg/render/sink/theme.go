package sink

import "github.com/matzehuels/activitygraph/pkg/errors"

// Theme holds the non-lane colors of a rendering.
type Theme struct {
	Name       string
	Background string
	Text       string
	Muted      string
	Font       string
}

const defaultFont = `-apple-system, "Segoe UI", Helvetica, Arial, sans-serif`

var (
	DarkTheme  = Theme{Name: "dark", Background: "#0d1117", Text: "#e6edf3", Muted: "#7d8590", Font: defaultFont}
	LightTheme = Theme{Name: "light", Background: "#ffffff", Text: "#1f2328", Muted: "#656d76", Font: defaultFont}
)

// ParseTheme returns the theme with the given name. The empty name is dark.
func ParseTheme(name string) (Theme, error) {
	switch name {
	case "", DarkTheme.Name:
		return DarkTheme, nil
	case LightTheme.Name:
		return LightTheme, nil
	default:
		return Theme{}, errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (must be dark or light)", name)
	}
}
