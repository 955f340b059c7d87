package human

import (
	"math"
	"math/rand/v2"
)

// Point 屏幕坐标
type Point struct {
	X float64
	Y float64
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

const (
	minSteps = 20
	maxSteps = 40
)

// BezierPath 生成从 start 到 end 的鼠标轨迹
// controls == 2 时为三次贝塞尔曲线，控制点落在起止点围成的矩形内；其它值退化为直线插值
func BezierPath(start, end Point, controls int, rng *rand.Rand) []Point {
	steps := minSteps + rng.IntN(maxSteps-minSteps+1)

	var c1, c2 Point
	if controls == 2 {
		c1 = randomInBox(start, end, rng)
		c2 = randomInBox(start, end, rng)
	}

	points := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		if controls != 2 {
			points = append(points, Point{
				X: start.X + (end.X-start.X)*t,
				Y: start.Y + (end.Y-start.Y)*t,
			})
			continue
		}
		u := 1 - t
		points = append(points, Point{
			X: u*u*u*start.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*end.X,
			Y: u*u*u*start.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*end.Y,
		})
	}
	// 浮点误差下保证首尾精确
	points[0] = start
	points[len(points)-1] = end
	return points
}

func randomInBox(a, b Point, rng *rand.Rand) Point {
	return Point{
		X: uniform(rng, math.Min(a.X, b.X), math.Max(a.X, b.X)),
		Y: uniform(rng, math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
