// Package ambient моделирует декоративный фон: падающие частицы с гаснущим
// следом и передний план с параллаксом за указателем. Рисования здесь нет,
// рендеры читают отсюда позиции и прозрачность.
package ambient

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	// одна частица на столько квадратных пикселей
	ParticleArea = 5000
	TrailLength  = 20
	OpacityStep  = 0.002
	DefaultAngle = math.Pi / 4
)

// ParticleCount растёт вместе с площадью холста.
func ParticleCount(width, height int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	return width * height / ParticleArea
}

type Point struct {
	X, Y float64
}

type Particle struct {
	Pos     Point
	Speed   float64
	Opacity float64
	Trail   []Point
	// Tint - сдвиг красного канала, 0..1: 0 белый, 1 бирюзовый
	Tint float64

	fading     bool
	fadeStart  time.Time
	interval   time.Duration
	lastUpdate time.Time
}

// TrailAlpha - прозрачность i-й точки следа: старые точки бледнее.
func (p *Particle) TrailAlpha(i int) float64 {
	if len(p.Trail) == 0 {
		return 0
	}
	return float64(i) / float64(len(p.Trail)) * p.Opacity * 0.5
}

type Field struct {
	Width  int
	Height int
	Angle  float64

	rng       *rand.Rand
	particles []*Particle
}

func NewField(width, height int, rng *rand.Rand, now time.Time) *Field {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x5eed))
	}
	f := &Field{Angle: DefaultAngle, rng: rng}
	f.Resize(width, height, now)
	return f
}

// Resize меняет размер холста и заново создаёт всю популяцию.
func (f *Field) Resize(width, height int, now time.Time) {
	f.Width, f.Height = width, height

	n := ParticleCount(width, height)
	f.particles = make([]*Particle, n)
	for i := range f.particles {
		p := &Particle{
			interval:   time.Duration((5 + f.rng.Float64()*10) * float64(time.Millisecond)),
			lastUpdate: now,
		}
		f.reset(p, now)
		f.particles[i] = p
	}
}

func (f *Field) reset(p *Particle, now time.Time) {
	p.Pos = Point{
		X: f.rng.Float64() * float64(f.Width),
		Y: f.rng.Float64() * float64(f.Height),
	}
	p.Speed = f.rng.Float64()/0.5 + 0.5
	p.Opacity = 1
	p.Tint = f.rng.Float64()
	p.fading = false
	p.fadeStart = now.Add(time.Duration((100 + f.rng.Float64()*600) * float64(time.Millisecond)))
	p.Trail = p.Trail[:0]
}

func (f *Field) Len() int {
	return len(f.particles)
}

// Particles отдаёт частицы только для чтения.
func (f *Field) Particles() []*Particle {
	return f.particles
}

// Step продвигает частицы, чей интервал обновления истёк к моменту now.
// Ушедшие за нижний край и погасшие частицы появляются заново.
func (f *Field) Step(now time.Time) {
	dx := math.Cos(f.Angle)
	dy := math.Sin(f.Angle)

	for _, p := range f.particles {
		if now.Sub(p.lastUpdate) < p.interval {
			continue
		}
		p.lastUpdate = now

		p.Pos.X += dx * p.Speed
		p.Pos.Y += dy * p.Speed

		if p.Pos.Y > float64(f.Height) {
			f.reset(p, now)
		}

		if !p.fading && now.After(p.fadeStart) {
			p.fading = true
		}
		if p.fading {
			p.Opacity -= OpacityStep
			if p.Opacity <= 0 {
				f.reset(p, now)
			}
		}

		p.Trail = append(p.Trail, p.Pos)
		if len(p.Trail) > TrailLength {
			p.Trail = p.Trail[1:]
		}
	}
}
