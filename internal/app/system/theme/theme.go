// Package theme turns the admin-edited ThemeConfig into CSS custom
// properties for the public site.
package theme

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dalemusser/stratasite/internal/domain/models"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a named, ready-made theme.
type Preset struct {
	Name   string             `yaml:"name" json:"name"`
	Label  string             `yaml:"label" json:"label"`
	Mode   string             `yaml:"mode" json:"mode"`
	Radius string             `yaml:"radius" json:"radius"`
	Fonts  models.ThemeFonts  `yaml:"fonts" json:"fonts"`
	Colors models.ThemeColors `yaml:"colors" json:"colors"`
}

// Config returns the preset as a ThemeConfig.
func (p Preset) Config() models.ThemeConfig {
	return models.ThemeConfig{
		Preset: p.Name,
		Colors: p.Colors,
		Fonts:  p.Fonts,
		Radius: p.Radius,
		Mode:   p.Mode,
	}
}

var (
	presets     []Preset
	presetsErr  error
	presetsOnce sync.Once
)

// Presets returns the built-in presets in file order.
func Presets() ([]Preset, error) {
	presetsOnce.Do(func() {
		var doc struct {
			Presets []Preset `yaml:"presets"`
		}
		if err := yaml.Unmarshal(presetsYAML, &doc); err != nil {
			presetsErr = fmt.Errorf("theme: parse presets: %w", err)
			return
		}
		for _, p := range doc.Presets {
			if errs := Validate(p.Config()); len(errs) > 0 {
				presetsErr = fmt.Errorf("theme: preset %q invalid: %v", p.Name, errs)
				return
			}
		}
		presets = doc.Presets
	})
	return presets, presetsErr
}

// PresetByName looks up a preset.
func PresetByName(name string) (Preset, bool) {
	list, err := Presets()
	if err != nil {
		return Preset{}, false
	}
	for _, p := range list {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Default returns the site default theme (the first preset).
func Default() models.ThemeConfig {
	list, err := Presets()
	if err != nil || len(list) == 0 {
		// The embedded file is covered by tests; this is only reachable
		// if it was edited into an invalid state.
		return models.ThemeConfig{Mode: models.ThemeModeLight, Radius: "8px"}
	}
	return Normalize(list[0].Config())
}

var (
	reHexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	reRadius   = regexp.MustCompile(`^(\d{1,2})(px)?$`)
	reQuoted   = regexp.MustCompile(`^(?:"[A-Za-z0-9 -]{1,60}"|'[A-Za-z0-9 -]{1,60}')$`)
	reBareName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 -]{0,59}$`)
)

// MaxRadius is the largest corner radius in pixels.
const MaxRadius = 48

// genericFonts are CSS generic families and system keywords.
var genericFonts = map[string]bool{
	"serif": true, "sans-serif": true, "monospace": true, "cursive": true,
	"fantasy": true, "system-ui": true, "ui-serif": true, "ui-sans-serif": true,
	"ui-monospace": true, "ui-rounded": true, "-apple-system": true,
}

// IsHexColor reports whether s is #rgb or #rrggbb.
func IsHexColor(s string) bool { return reHexColor.MatchString(s) }

// ValidFontStack reports whether s is a comma-separated list of generic
// families, quoted family names, or plain family names. Anything that
// could break out of a CSS declaration is rejected.
func ValidFontStack(s string) bool {
	if s == "" || len(s) > 200 {
		return false
	}
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		switch {
		case genericFonts[strings.ToLower(p)]:
		case reQuoted.MatchString(p):
		case reBareName.MatchString(p):
		default:
			return false
		}
	}
	return true
}

// ParseRadius returns the radius in pixels.
func ParseRadius(s string) (int, bool) {
	m := reRadius.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, _ := strconv.Atoi(m[1])
	if n > MaxRadius {
		return 0, false
	}
	return n, true
}

// Validate returns field errors keyed by JSON path, or nil.
func Validate(cfg models.ThemeConfig) map[string]string {
	errs := map[string]string{}
	for _, c := range colorFields(cfg.Colors) {
		if !IsHexColor(c.value) {
			errs["colors."+c.key] = "must be a hex color like #1e40af"
		}
	}
	if !ValidFontStack(cfg.Fonts.Heading) {
		errs["fonts.heading"] = "must be a font family list"
	}
	if !ValidFontStack(cfg.Fonts.Body) {
		errs["fonts.body"] = "must be a font family list"
	}
	if _, ok := ParseRadius(cfg.Radius); !ok {
		errs["radius"] = fmt.Sprintf("must be between 0 and %dpx", MaxRadius)
	}
	if cfg.Mode != models.ThemeModeLight && cfg.Mode != models.ThemeModeDark {
		errs["mode"] = "must be light or dark"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalize lowercases and expands colors to #rrggbb and writes the radius
// as "<n>px". Call after Validate.
func Normalize(cfg models.ThemeConfig) models.ThemeConfig {
	c := &cfg.Colors
	for _, p := range []*string{&c.Primary, &c.Secondary, &c.Accent, &c.Background, &c.Surface, &c.Text, &c.Muted, &c.Border} {
		*p = expandHex(*p)
	}
	if n, ok := ParseRadius(cfg.Radius); ok {
		cfg.Radius = strconv.Itoa(n) + "px"
	}
	cfg.Fonts.Heading = strings.TrimSpace(cfg.Fonts.Heading)
	cfg.Fonts.Body = strings.TrimSpace(cfg.Fonts.Body)
	return cfg
}

type colorField struct{ key, value string }

func colorFields(c models.ThemeColors) []colorField {
	return []colorField{
		{"primary", c.Primary},
		{"secondary", c.Secondary},
		{"accent", c.Accent},
		{"background", c.Background},
		{"surface", c.Surface},
		{"text", c.Text},
		{"muted", c.Muted},
		{"border", c.Border},
	}
}

// Var is a single CSS custom property.
type Var struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variables maps cfg to CSS custom properties in a stable order.
// Contrast colors are derived from each brand color's luminance.
func Variables(cfg models.ThemeConfig) []Var {
	cfg = Normalize(cfg)
	vars := make([]Var, 0, 16)
	for _, c := range colorFields(cfg.Colors) {
		vars = append(vars, Var{"--color-" + c.key, c.value})
	}
	for _, c := range colorFields(cfg.Colors)[:3] {
		vars = append(vars, Var{"--color-" + c.key + "-contrast", ContrastColor(c.value)})
	}
	if r, g, b, ok := parseHex(cfg.Colors.Primary); ok {
		vars = append(vars, Var{"--color-primary-rgb", fmt.Sprintf("%d, %d, %d", r, g, b)})
	}
	vars = append(vars,
		Var{"--font-heading", cfg.Fonts.Heading},
		Var{"--font-body", cfg.Fonts.Body},
		Var{"--radius", cfg.Radius},
	)
	return vars
}

// CSS renders cfg as a stylesheet. Dark themes also get a
// [data-theme="dark"] block so pages can scope the palette explicitly.
func CSS(cfg models.ThemeConfig) string {
	vars := Variables(cfg)
	scheme := models.ThemeModeLight
	if cfg.Mode == models.ThemeModeDark {
		scheme = models.ThemeModeDark
	}

	var b strings.Builder
	writeBlock(&b, ":root", vars, scheme)
	if scheme == models.ThemeModeDark {
		b.WriteString("\n")
		writeBlock(&b, `[data-theme="dark"]`, vars[:8], scheme)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, selector string, vars []Var, scheme string) {
	b.WriteString(selector)
	b.WriteString(" {\n")
	for _, v := range vars {
		b.WriteString("  ")
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Value)
		b.WriteString(";\n")
	}
	b.WriteString("  color-scheme: ")
	b.WriteString(scheme)
	b.WriteString(";\n}\n")
}

// ETag returns a strong entity tag for a rendered stylesheet.
func ETag(css string) string {
	sum := sha256.Sum256([]byte(css))
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// ContrastColor returns black or white, whichever reads better on hex.
func ContrastColor(hexColor string) string {
	r, g, b, ok := parseHex(hexColor)
	if !ok {
		return "#ffffff"
	}
	if relativeLuminance(r, g, b) > 0.179 {
		return "#000000"
	}
	return "#ffffff"
}

// relativeLuminance follows the WCAG 2 definition.
func relativeLuminance(r, g, b uint8) float64 {
	lin := func(c uint8) float64 {
		v := float64(c) / 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
}

func expandHex(s string) string {
	if !IsHexColor(s) {
		return s
	}
	s = strings.ToLower(s)
	if len(s) == 4 {
		return "#" + string([]byte{s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}

func parseHex(s string) (r, g, b uint8, ok bool) {
	s = expandHex(s)
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
