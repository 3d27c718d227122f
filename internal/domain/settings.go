package domain

// Theme is the reader color theme.
type Theme string

// Supported themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
)

// Valid reports whether the theme is supported.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSepia:
		return true
	}
	return false
}

// ViewMode controls how pages are laid out.
type ViewMode string

// Supported view modes.
const (
	ViewScroll    ViewMode = "scroll"
	ViewPaginated ViewMode = "paginated"
)

// Valid reports whether the view mode is supported.
func (v ViewMode) Valid() bool {
	return v == ViewScroll || v == ViewPaginated
}

// FontFamilies lists the families the reader view can render.
var FontFamilies = []string{"serif", "sans-serif", "system-ui", "monospace"}

// ValidFontFamily reports whether the family is one the reader can render.
func ValidFontFamily(f string) bool {
	for _, allowed := range FontFamilies {
		if f == allowed {
			return true
		}
	}
	return false
}

// ReaderSettings holds the process-wide display preferences. A single record
// is persisted; the settings store clamps numeric fields into range before
// every write so an invalid record can never reach disk.
type ReaderSettings struct {
	FontSizePx           int      `json:"font_size_px" validate:"gte=12,lte=24"`
	FontFamily           string   `json:"font_family"`
	LineHeightMultiplier float64  `json:"line_height_multiplier" validate:"gte=1.0,lte=2.0"`
	Theme                Theme    `json:"theme"`
	ViewMode             ViewMode `json:"view_mode"`
	MarginsPx            int      `json:"margins_px" validate:"gte=0,lte=64"`
	MaxWidthPx           int      `json:"max_width_px" validate:"gte=400,lte=1200"`
}

// DefaultReaderSettings returns the out-of-the-box preferences.
func DefaultReaderSettings() ReaderSettings {
	return ReaderSettings{
		FontSizePx:           16,
		FontFamily:           "serif",
		LineHeightMultiplier: 1.5,
		Theme:                ThemeLight,
		ViewMode:             ViewPaginated,
		MarginsPx:            16,
		MaxWidthPx:           800,
	}
}

// Clamp forces numeric fields into their allowed ranges and falls back to
// defaults for unknown enum values.
func (s *ReaderSettings) Clamp() {
	s.FontSizePx = clampInt(s.FontSizePx, 12, 24)
	s.LineHeightMultiplier = clampFloat(s.LineHeightMultiplier, 1.0, 2.0)
	s.MarginsPx = clampInt(s.MarginsPx, 0, 64)
	s.MaxWidthPx = clampInt(s.MaxWidthPx, 400, 1200)
	if !s.Theme.Valid() {
		s.Theme = ThemeLight
	}
	if !s.ViewMode.Valid() {
		s.ViewMode = ViewPaginated
	}
	if !ValidFontFamily(s.FontFamily) {
		s.FontFamily = "serif"
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
