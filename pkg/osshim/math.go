package osshim

import (
	"fmt"
	"math"

	"hackvm.dev/n2t/pkg/word"
)

func mathMultiply(a argList) (word.Word, error) { return a.get(0) * a.get(1), nil }

func mathDivide(a argList) (word.Word, error) {
	y := a.get(1)
	if y == 0 {
		return 0, fmt.Errorf("Math.divide: division by zero")
	}
	return a.get(0) / y, nil
}

func mathMin(a argList) word.Word {
	x, y := a.get(0), a.get(1)
	if x < y {
		return x
	}
	return y
}

func mathMax(a argList) word.Word {
	x, y := a.get(0), a.get(1)
	if x > y {
		return x
	}
	return y
}

func mathSqrt(a argList) (word.Word, error) {
	x := a.get(0)
	if x < 0 {
		return 0, fmt.Errorf("Math.sqrt: negative argument %d", x)
	}
	return word.Word(math.Floor(math.Sqrt(float64(x)))), nil
}

func mathAbs(a argList) word.Word {
	x := a.get(0)
	if x < 0 {
		return -x
	}
	return x
}
