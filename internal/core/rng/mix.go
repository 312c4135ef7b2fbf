package rng

// Mix64 is the SplitMix64 finalizer: two multiply-xorshift rounds that
// spread every input bit across the output.
func Mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Combine folds b into a. It is not commutative, so argument order is part
// of the derivation.
func Combine(a, b uint64) uint64 {
	return Mix64(a ^ (b + 0x9e3779b97f4a7c15 + (a << 6) + (a >> 2)))
}
