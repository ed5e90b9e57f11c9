package core

import (
	"strconv"
	"strings"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	MinFontSize     = 12
	MaxFontSize     = 24
	DefaultFontSize = 16
)

// Preferences are the per-browser display settings.
type Preferences struct {
	Theme    Theme
	FontSize int
}

func DefaultPreferences() Preferences {
	return Preferences{Theme: ThemeLight, FontSize: DefaultFontSize}
}

// ParseTheme maps anything other than "dark" to the light theme.
func ParseTheme(s string) Theme {
	if Theme(strings.TrimSpace(s)) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// ParseFontSize reads a stored pixel size; unreadable values fall back to the default.
func ParseFontSize(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "px")))
	if err != nil {
		return DefaultFontSize
	}
	return ClampFontSize(n)
}

func ClampFontSize(n int) int {
	if n < MinFontSize {
		return MinFontSize
	}
	if n > MaxFontSize {
		return MaxFontSize
	}
	return n
}

func (p Preferences) ToggleTheme() Preferences {
	if p.Theme == ThemeDark {
		p.Theme = ThemeLight
	} else {
		p.Theme = ThemeDark
	}
	return p
}

// AdjustFont moves the font size by delta pixels within [MinFontSize, MaxFontSize].
func (p Preferences) AdjustFont(delta int) Preferences {
	p.FontSize = ClampFontSize(ClampFontSize(p.FontSize) + delta)
	return p
}

func (p Preferences) IsDark() bool {
	return p.Theme == ThemeDark
}
