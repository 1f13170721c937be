package mapview

import "github.com/gogpu/gg"

const (
	MinZoom = 0.5
	MaxZoom = 8.0

	zoomInStep  = 1.1
	zoomOutStep = 0.9
)

// Quad is the letterboxed rectangle the image occupies in the canvas
// before pan and zoom.
type Quad struct {
	X, Y, W, H float64
}

// Letterbox fits an imgW x imgH image into the canvas, centered, keeping
// its aspect ratio.
func Letterbox(canvasW, canvasH, imgW, imgH float64) Quad {
	if imgW <= 0 {
		imgW = 1
	}
	if imgH <= 0 {
		imgH = 1
	}
	imgAspect := imgW / imgH
	var q Quad
	if canvasH > 0 && canvasW/canvasH > imgAspect {
		q.H = canvasH
		q.W = canvasH * imgAspect
	} else {
		q.W = canvasW
		q.H = canvasW / imgAspect
	}
	q.X = (canvasW - q.W) / 2
	q.Y = (canvasH - q.H) / 2
	return q
}

// ViewTransform is the pan (device pixels) and zoom applied on top of the
// letterbox. Zoom scales about the canvas origin, then pan is added.
type ViewTransform struct {
	PanX, PanY float64
	Zoom       float64
}

func NewViewTransform() ViewTransform {
	return ViewTransform{Zoom: 1}
}

// Matrix maps letterboxed canvas points to screen points.
func (v ViewTransform) Matrix() gg.Matrix {
	return gg.Translate(v.PanX, v.PanY).Multiply(gg.Scale(v.Zoom, v.Zoom))
}

// ImageToScreen maps texel coordinates of an imgW x imgH image to screen
// coordinates of a canvasW x canvasH canvas.
func (v ViewTransform) ImageToScreen(canvasW, canvasH, imgW, imgH float64) gg.Matrix {
	q := Letterbox(canvasW, canvasH, imgW, imgH)
	quad := gg.Translate(q.X, q.Y).Multiply(gg.Scale(q.W/imgW, q.H/imgH))
	return v.Matrix().Multiply(quad)
}

// ScreenToImage is the inverse of ImageToScreen.
func (v ViewTransform) ScreenToImage(canvasW, canvasH, imgW, imgH float64) gg.Matrix {
	return v.ImageToScreen(canvasW, canvasH, imgW, imgH).Invert()
}

// ZoomAt steps the zoom toward (deltaY < 0) or away from (deltaY > 0)
// the cursor, keeping the point under the cursor fixed.
func (v *ViewTransform) ZoomAt(x, y, deltaY float64) {
	step := zoomInStep
	if deltaY > 0 {
		step = zoomOutStep
	}
	zoom := v.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	next := clampFloat(zoom*step, MinZoom, MaxZoom)
	ratio := next / zoom
	v.PanX = x - (x-v.PanX)*ratio
	v.PanY = y - (y-v.PanY)*ratio
	v.Zoom = next
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
