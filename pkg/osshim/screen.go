package osshim

import "hackvm.dev/n2t/pkg/word"

// Screen tracks the one piece of draw state the Jack Screen library keeps between
// calls: the current pen color (true = black).
type Screen struct {
	Color bool
}

func (s *Screen) clear(ram *word.RAM) (word.Word, error) {
	for i := word.SCREEN; i < word.KBD; i++ {
		ram[i] = 0
	}
	return 0, nil
}

func (s *Screen) setColor(a argList) (word.Word, error) {
	s.Color = a.get(0) != 0
	return 0, nil
}

func (s *Screen) drawPixel(ram *word.RAM, a argList) (word.Word, error) {
	x, y := int(a.get(0)), int(a.get(1))
	ram.SetPixel(x, y, s.Color)
	return 0, nil
}

func abs(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}

func signum(x int16) int16 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// drawLine renders x1,y1 to x2,y2 with Bresenham's algorithm, exactly as the reference
// OS shim does it (including its early-exit quirks on axis-aligned lines).
func (s *Screen) drawLine(ram *word.RAM, a argList) (word.Word, error) {
	x1, y1 := int16(a.get(0)), int16(a.get(1))
	x2, y2 := int16(a.get(2)), int16(a.get(3))

	dx := abs(x2 - x1)
	sx := signum(x2 - x1)
	dy := -abs(y2 - y1)
	sy := signum(y2 - y1)
	errAcc := dx + dy

	x, y := x1, y1
	for {
		ram.SetPixel(int(x), int(y), s.Color)
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			if x2 == x1 {
				break
			}
			errAcc += dy
			x += sx
		}
		if e2 <= dx {
			if y2 == y1 {
				break
			}
			errAcc += dx
			y += sy
		}
	}
	return 0, nil
}

func (s *Screen) drawRectangle(ram *word.RAM, a argList) (word.Word, error) {
	x1, y1 := int(a.get(0)), int(a.get(1))
	x2, y2 := int(a.get(2)), int(a.get(3))

	for y := y1; y < y2; y++ {
		for x := x1; x <= x2; x++ {
			ram.SetPixel(x, y, s.Color)
		}
	}
	return 0, nil
}

func (s *Screen) drawCircle(ram *word.RAM, a argList) (word.Word, error) {
	centerX, centerY := int(a.get(0)), int(a.get(1))
	radius := int(a.get(2))
	r2 := radius * radius

	for y := centerY - radius; y <= centerY+radius; y++ {
		dy2 := (y - centerY) * (y - centerY)
		remainder := r2 - dy2
		if remainder < 0 {
			remainder = -remainder
		}
		xDist := isqrt(remainder)
		for x := centerX - xDist; x <= centerX+xDist; x++ {
			ram.SetPixel(x, y, s.Color)
		}
	}
	return 0, nil
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	for {
		next := (x + n/x) / 2
		if next >= x {
			return x
		}
		x = next
	}
}
