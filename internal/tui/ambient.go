package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"todo-calendar/internal/ambient"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Терминальная клетка считается прямоугольником cellW x cellH пикселей,
// чтобы плотность частиц была как на обычном экране.
const (
	cellW     = 8
	cellH     = 16
	frameRate = 30 * time.Millisecond
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

var (
	alphaGlyphs    = []rune{'.', '.', '·', '•', '*'}
	mountainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2b2d42"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8d99ae")).Faint(true)
)

type cell struct {
	glyph rune
	level int
	tint  float64
}

var alphaLevels = len(alphaGlyphs)

// particleColor: красный канал ослаблен на tint (0 белый, 1 бирюзовый),
// яркость растёт с уровнем прозрачности.
func particleColor(level int, tint float64) lipgloss.Color {
	k := float64(level+1) / float64(alphaLevels)
	red := (255 - tint*255/2) * k
	gb := 255 * k
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", int(red), int(gb), int(gb)))
}

func particleStyle(c cell) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(particleColor(c.level, c.tint))
	if c.level == alphaLevels-1 {
		style = style.Bold(true)
	}
	return style
}

// AmbientModel - bubbletea-модель фоновой анимации.
type AmbientModel struct {
	field    *ambient.Field
	parallax *ambient.Parallax
	cols     int
	rows     int
	now      func() time.Time
}

func NewAmbientModel(now func() time.Time) AmbientModel {
	if now == nil {
		now = time.Now
	}
	return AmbientModel{
		field:    ambient.NewField(0, 0, nil, now()),
		parallax: ambient.NewParallax(),
		now:      now,
	}
}

func (m AmbientModel) Init() tea.Cmd {
	return tick()
}

func (m AmbientModel) pixelSize() (int, int) {
	return m.cols * cellW, m.rows * cellH
}

func (m AmbientModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		w, h := m.pixelSize()
		m.field.Resize(w, h, m.now())
	case tea.MouseMsg:
		w, h := m.pixelSize()
		m.parallax.Move(float64(msg.X*cellW+cellW/2), float64(msg.Y*cellH+cellH/2), w, h)
	case tickMsg:
		m.field.Step(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

// ridge - высота силуэта гор в строках для колонки x.
func ridge(x float64, rows int) int {
	h := 0.22 + 0.08*math.Sin(x/9) + 0.05*math.Sin(x/3.7+1.3) + 0.03*math.Sin(x/1.9)
	return int(h * float64(rows))
}

func (m AmbientModel) View() string {
	if m.cols <= 0 || m.rows <= 1 {
		return ""
	}
	rows := m.rows - 1
	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, m.cols)
		for x := range grid[y] {
			grid[y][x] = cell{glyph: ' ', level: -1}
		}
	}

	plot := func(px, py, alpha, tint float64) {
		x, y := int(px)/cellW, int(py)/cellH
		if x < 0 || y < 0 || x >= m.cols || y >= rows || alpha <= 0 {
			return
		}
		level := int(math.Min(alpha, 0.999) * float64(alphaLevels))
		if level > grid[y][x].level {
			grid[y][x] = cell{glyph: alphaGlyphs[level], level: level, tint: tint}
		}
	}

	for _, p := range m.field.Particles() {
		for i, pt := range p.Trail {
			plot(pt.X, pt.Y, p.TrailAlpha(i), p.Tint)
		}
		plot(p.Pos.X, p.Pos.Y, p.Opacity, p.Tint)
	}

	// передний план перекрывает частицы
	shiftX := m.parallax.OffsetX / cellW
	shiftY := int(math.Round(m.parallax.OffsetY / cellH))
	for x := 0; x < m.cols; x++ {
		top := rows - int(float64(ridge(float64(x)/m.parallax.Zoom-shiftX, rows))*m.parallax.Zoom) + shiftY
		for y := max(top, 0); y < rows; y++ {
			grid[y][x] = cell{glyph: '▓', level: alphaLevels}
		}
	}

	var b strings.Builder
	for y := range grid {
		for _, c := range grid[y] {
			switch {
			case c.level == alphaLevels:
				b.WriteString(mountainStyle.Render(string(c.glyph)))
			case c.level >= 0:
				b.WriteString(particleStyle(c).Render(string(c.glyph)))
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString(statusBarStyle.Render("particles: " + strconv.Itoa(m.field.Len()) + "  q: quit"))
	return b.String()
}

// RunAmbient запускает анимацию во весь терминал.
func RunAmbient() error {
	p := tea.NewProgram(NewAmbientModel(nil), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}
