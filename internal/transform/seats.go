package transform

// seatCapacity is the number of occupiable seats per boat class. Coxed
// classes carry one seat beyond their rowers.
var seatCapacity = map[string]int{
	"1x": 1,
	"2x": 2,
	"2-": 2,
	"2+": 3,
	"4x": 4,
	"4-": 4,
	"4+": 5,
	"8+": 9,
	"8x": 8,
}

// SeatCapacity returns the seats of a boat class.
func SeatCapacity(class string) (int, bool) {
	n, ok := seatCapacity[class]
	return n, ok
}
