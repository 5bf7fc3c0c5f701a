package ambient

import "math"

const (
	DefaultFriction = 0.85
	zoomSmoothing   = 0.005
	zoomRange       = 0.05
	offsetDivisor   = 70
	velocityGain    = 0.01
	foregroundScale = 0.8
)

// Parallax сглаживает смещение и масштаб переднего плана вслед за указателем.
type Parallax struct {
	Zoom     float64
	OffsetX  float64
	OffsetY  float64
	VelX     float64
	VelY     float64
	Friction float64
}

func NewParallax() *Parallax {
	return &Parallax{Zoom: 1, Friction: DefaultFriction}
}

// Target - смещение, к которому тянется передний план при текущем масштабе.
func (p *Parallax) Target(px, py float64, width, height int) (float64, float64) {
	cx := float64(width) / 2
	cy := float64(height) / 2
	return -((px - cx) / offsetDivisor) * p.Zoom, -((py - cy) / offsetDivisor) * p.Zoom
}

// Move обрабатывает одно движение указателя.
func (p *Parallax) Move(px, py float64, width, height int) {
	cx := float64(width) / 2
	cy := float64(height) / 2
	dx := px - cx
	dy := py - cy

	maxDistance := math.Hypot(cx, cy)
	zoomFactor := 1.0
	if maxDistance > 0 {
		zoomFactor = math.Min(1, math.Hypot(dx, dy)/maxDistance)
	}
	targetZoom := 1 + zoomFactor*zoomRange
	p.Zoom += (targetZoom - p.Zoom) * zoomSmoothing

	tx, ty := p.Target(px, py, width, height)

	p.VelX += (tx - p.OffsetX) * velocityGain
	p.VelY += (ty - p.OffsetY) * velocityGain
	p.VelX *= p.Friction
	p.VelY *= p.Friction

	p.OffsetX += p.VelX
	p.OffsetY += p.VelY
}

type Rect struct {
	X, Y, W, H float64
}

// Foreground - где рисовать картинку переднего плана размером imgW x imgH.
func (p *Parallax) Foreground(imgW, imgH float64, width, height int) Rect {
	w := imgW * p.Zoom * foregroundScale
	h := imgH * p.Zoom * foregroundScale
	return Rect{
		X: float64(width)/2 - w/2 + p.OffsetX,
		Y: float64(height)/2 - h/2 + p.OffsetY,
		W: w,
		H: h,
	}
}
