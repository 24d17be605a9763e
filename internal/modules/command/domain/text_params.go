package domain

import (
	"fmt"
	"strconv"
	"strings"

	"memestickers/internal/platform/config"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

type VAlign string

const (
	VAlignTop    VAlign = "top"
	VAlignMiddle VAlign = "middle"
	VAlignBottom VAlign = "bottom"
)

// Offset is a coordinate given either absolutely ("120") or relative to the
// renderer's default ("^+50", "^-20").
type Offset struct {
	Set      bool
	Relative bool
	Value    int
}

func ParseOffset(s string) (Offset, error) {
	raw := strings.TrimSpace(s)
	if strings.HasPrefix(raw, "^") {
		v, err := strconv.Atoi(strings.TrimPrefix(raw, "^"))
		if err != nil {
			return Offset{}, fmt.Errorf("invalid relative offset %q", s)
		}
		return Offset{Set: true, Relative: true, Value: v}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return Offset{}, fmt.Errorf("invalid offset %q", s)
	}
	return Offset{Set: true, Value: v}, nil
}

// Resolve applies o to base. An unset offset keeps base.
func (o Offset) Resolve(base int) int {
	switch {
	case !o.Set:
		return base
	case o.Relative:
		return base + o.Value
	default:
		return o.Value
	}
}

func (o Offset) String() string {
	switch {
	case !o.Set:
		return ""
	case o.Relative:
		return fmt.Sprintf("^%+d", o.Value)
	default:
		return strconv.Itoa(o.Value)
	}
}

// TextParams are the drawing options of the generate command. Zero values
// leave the renderer's defaults in place.
type TextParams struct {
	X           Offset
	Y           Offset
	Color       string
	StrokeColor string
	StrokeWidth int
	Align       Align
	VAlign      VAlign
	Size        int
	Debug       bool
}

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#FFFFFF",
	"red":    "#FF0000",
	"green":  "#00FF00",
	"blue":   "#0000FF",
	"yellow": "#FFFF00",
	"orange": "#FF6600",
	"purple": "#800080",
	"pink":   "#FFC0CB",
	"gray":   "#808080",
	"grey":   "#808080",
}

// NormalizeColor accepts a colour name or a hex value and returns hex.
func NormalizeColor(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[key]; ok {
		return hex, nil
	}
	if !strings.HasPrefix(key, "#") {
		key = "#" + key
	}
	if _, err := config.ParseColor(key); err != nil {
		return "", err
	}
	return strings.ToUpper(key), nil
}

// ParseGenerateArgs separates positional words from drawing options.
// Options may appear anywhere after the command name; "--" ends them.
func ParseGenerateArgs(tokens []string) ([]string, TextParams, error) {
	var (
		positional []string
		params     TextParams
	)
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if token == "--" {
			positional = append(positional, tokens[i+1:]...)
			break
		}
		name, inline, hasInline := strings.Cut(token, "=")
		if !strings.HasPrefix(token, "-") || len(token) == 1 || isNumber(token) {
			positional = append(positional, token)
			continue
		}
		if name == "--debug" {
			params.Debug = true
			continue
		}
		value := inline
		if !hasInline {
			if i+1 >= len(tokens) {
				return nil, TextParams{}, fmt.Errorf("%w: %s", ErrMissingValue, name)
			}
			i++
			value = tokens[i]
		}
		if err := params.set(name, value); err != nil {
			return nil, TextParams{}, err
		}
	}
	return positional, params, nil
}

func (p *TextParams) set(name, value string) error {
	var err error
	switch name {
	case "-x":
		p.X, err = ParseOffset(value)
	case "-y":
		p.Y, err = ParseOffset(value)
	case "-c", "--color":
		p.Color, err = NormalizeColor(value)
	case "--stroke-color":
		p.StrokeColor, err = NormalizeColor(value)
	case "--stroke-width":
		p.StrokeWidth, err = strconv.Atoi(value)
		if err == nil && p.StrokeWidth < 0 {
			err = fmt.Errorf("stroke width must be >= 0")
		}
	case "-a", "--align":
		switch Align(strings.ToLower(value)) {
		case AlignLeft, AlignCenter, AlignRight:
			p.Align = Align(strings.ToLower(value))
		default:
			err = fmt.Errorf("align must be left, center or right")
		}
	case "-v", "--valign":
		switch VAlign(strings.ToLower(value)) {
		case VAlignTop, VAlignMiddle, VAlignBottom:
			p.VAlign = VAlign(strings.ToLower(value))
		default:
			err = fmt.Errorf("valign must be top, middle or bottom")
		}
	case "-s", "--size":
		p.Size, err = strconv.Atoi(value)
		if err == nil && p.Size <= 0 {
			err = fmt.Errorf("size must be positive")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Args renders p back into option tokens.
func (p TextParams) Args() []string {
	var out []string
	if p.X.Set {
		out = append(out, "-x", p.X.String())
	}
	if p.Y.Set {
		out = append(out, "-y", p.Y.String())
	}
	if p.Color != "" {
		out = append(out, "-c", p.Color)
	}
	if p.StrokeColor != "" {
		out = append(out, "--stroke-color", p.StrokeColor)
	}
	if p.StrokeWidth > 0 {
		out = append(out, "--stroke-width", strconv.Itoa(p.StrokeWidth))
	}
	if p.Align != "" {
		out = append(out, "-a", string(p.Align))
	}
	if p.VAlign != "" {
		out = append(out, "-v", string(p.VAlign))
	}
	if p.Size > 0 {
		out = append(out, "-s", strconv.Itoa(p.Size))
	}
	if p.Debug {
		out = append(out, "--debug")
	}
	return out
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
