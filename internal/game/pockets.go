package game

import "math"

const (
	NUM_POCKETS  = 37
	POCKET_ANGLE = 360.0 / NUM_POCKETS
)

// Pockets lists the European wheel clockwise starting at zero.
var Pockets = [NUM_POCKETS]int{
	0,
	32, 15, 19, 4, 21, 2, 25, 17, 34, 6,
	27, 13, 36, 11, 30, 8, 23, 10, 5,
	24, 16, 33, 1, 20, 14, 31, 9, 22,
	18, 29, 7, 28, 12, 35, 3, 26,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true,
	12: true, 14: true, 16: true, 18: true, 19: true,
	21: true, 23: true, 25: true, 27: true, 30: true,
	32: true, 34: true, 36: true,
}

type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

// ColorOf returns the pocket color for a number in 0..36.
func ColorOf(number int) Color {
	switch {
	case number == 0:
		return ColorGreen
	case redNumbers[number]:
		return ColorRed
	default:
		return ColorBlack
	}
}

// PocketAt resolves an angle measured relative to the wheel into a pocket.
func PocketAt(relativeAngle float64) (index, number int) {
	rel := normalizeAngle(relativeAngle)
	index = int(math.Floor(rel/POCKET_ANGLE)) % NUM_POCKETS
	return index, Pockets[index]
}

// PocketIndexOf returns the wheel position of a number, or -1.
func PocketIndexOf(number int) int {
	for i, n := range Pockets {
		if n == number {
			return i
		}
	}
	return -1
}

// PocketCenter is the relative angle of the middle of a pocket.
func PocketCenter(index int) float64 {
	return (float64(index) + 0.5) * POCKET_ANGLE
}
