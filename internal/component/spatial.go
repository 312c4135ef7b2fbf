package component

// Position is a world-space location.
type Position struct {
	X, Y, Z float64
}

// Velocity is the per-tick displacement applied by the movement system.
// It is added without scaling so no fused multiply-add can creep in.
type Velocity struct {
	X, Y, Z float64
}

// Steered marks entities whose velocity a steering script adjusts each tick.
// Strength scales the script's output.
type Steered struct {
	Strength float64
}
