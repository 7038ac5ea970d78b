// Package chart renders the small inline SVG charts of the reports page.
package chart

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("chart: no points")

// Point is one labelled value on the x axis.
type Point struct {
	Label string
	Value float64
}

// LineOpts customises Line.
type LineOpts struct {
	Title       string
	Description string
	Width       int
	Height      int
	Stroke      string
	Fill        string
	ShowDots    bool
}

type frame struct {
	width, height int
	pad           float64
	plotW, plotH  float64
	min, max      float64
}

func newFrame(width, height int, values []float64) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	f := frame{width: width, height: height, pad: DefaultPadding}
	f.plotW = float64(width) - 2*f.pad
	f.plotH = float64(height) - 2*f.pad
	if f.plotW <= 0 || f.plotH <= 0 {
		return frame{}, errors.New("chart: viewport too small")
	}
	f.min, f.max = 0, 0
	for _, v := range values {
		f.min = math.Min(f.min, v)
		f.max = math.Max(f.max, v)
	}
	if f.max-f.min < 1e-9 {
		f.max = f.min + 1
	}
	return f, nil
}

func (f frame) x(i, n int) float64 {
	if n <= 1 {
		return f.pad + f.plotW/2
	}
	return f.pad + float64(i)*f.plotW/float64(n-1)
}

func (f frame) y(v float64) float64 {
	return f.pad + f.plotH - (v-f.min)*f.plotH/(f.max-f.min)
}

func (f frame) baseline() float64 {
	return f.pad + f.plotH
}

// Line renders points as an accessible SVG line chart with a shaded area
// and a y axis in currency-style ticks.
func Line(points []Point, opts LineOpts) (template.HTML, error) {
	if len(points) == 0 {
		return "", ErrNoPoints
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	f, err := newFrame(opts.Width, opts.Height, values)
	if err != nil {
		return "", err
	}
	stroke := orDefault(opts.Stroke, "#2563eb")
	fill := orDefault(opts.Fill, "rgba(37,99,235,0.12)")
	title := orDefault(opts.Title, "Revenue")
	id := slug(title)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s-title %s-desc">`, f.width, f.height, id, id)
	fmt.Fprintf(&b, `<title id="%s-title">%s</title>`, id, template.HTMLEscapeString(title))
	fmt.Fprintf(&b, `<desc id="%s-desc">%s</desc>`, id, template.HTMLEscapeString(orDefault(opts.Description, "Monthly revenue")))

	for i := 0; i <= DefaultTicks; i++ {
		v := f.min + (f.max-f.min)*float64(i)/DefaultTicks
		y := f.y(v)
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#cbd5e1" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.pad, y, f.pad+f.plotW, y)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="#475569" font-size="10" text-anchor="end">%s</text>`, f.pad-6, y+4, Tick(v))
	}

	var path strings.Builder
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, f.x(i, len(points)), f.y(p.Value))
	}
	line := strings.TrimSpace(path.String())
	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`,
		line, f.x(len(points)-1, len(points)), f.baseline(), f.x(0, len(points)), f.baseline(), fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, line, stroke)

	for i, p := range points {
		x := f.x(i, len(points))
		if opts.ShowDots {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s</title></circle>`, x, f.y(p.Value), stroke, template.HTMLEscapeString(p.Label+": "+Tick(p.Value)))
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="#475569" font-size="10" text-anchor="middle">%s</text>`, x, f.baseline()+14, template.HTMLEscapeString(p.Label))
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// Tick abbreviates an axis value: 1500 -> 1.5k, 2000000 -> 2.0M.
func Tick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func slug(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSpace(s)))
	out = strings.Trim(out, "-")
	if out == "" {
		return "chart"
	}
	return out
}
