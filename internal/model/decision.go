package model

// Decision is the discrete position target produced once per cycle.
type Decision string

const (
	Short Decision = "SHORT"
	Flat  Decision = "FLAT"
	Long  Decision = "LONG"
)

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	return d == Short || d == Flat || d == Long
}
