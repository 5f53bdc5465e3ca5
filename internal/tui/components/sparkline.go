package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one-row chart of the last Width samples, scaled to the
// largest visible sample.
type Sparkline struct {
	Label string
	Unit  string
	Width int
	Style lipgloss.Style

	data []float64
}

func NewSparkline(width int, label, unit string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Label: label,
		Unit:  unit,
		Width: width,
		Style: style,
		data:  make([]float64, 0, width),
	}
}

func (s *Sparkline) Add(v float64) {
	s.data = append(s.data, max(v, 0))
	if s.Width > 0 && len(s.data) > s.Width {
		s.data = s.data[len(s.data)-s.Width:]
	}
}

// Last returns the most recent sample.
func (s Sparkline) Last() float64 {
	if len(s.data) == 0 {
		return 0
	}
	return s.data[len(s.data)-1]
}

func (s Sparkline) peak() float64 {
	var p float64
	for _, v := range s.data {
		p = max(p, v)
	}
	return p
}

// Graph renders the bars only, padded to Width.
func (s Sparkline) Graph() string {
	peak := s.peak()
	data := s.data
	if s.Width > 0 && len(data) > s.Width {
		data = data[len(data)-s.Width:]
	}

	var b strings.Builder
	for _, v := range data {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(levels)-1))
		}
		b.WriteRune(levels[min(idx, len(levels)-1)])
	}
	if pad := s.Width - len(data); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	return b.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}
	header := fmt.Sprintf("%s  %.1f %s (peak %.1f)", s.Label, s.Last(), s.Unit, s.peak())
	return s.Style.Render(header) + "\n" + s.Style.Render(s.Graph())
}
