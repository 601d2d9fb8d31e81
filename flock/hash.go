package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CellID identifies a grid cell for one tick.
type CellID uint64

// Coord is a quantized grid coordinate.
type Coord struct {
	X, Y, Z int32
}

// Hasher maps positions to cell ids for a fixed cell radius.
type Hasher struct {
	radius float64
}

// NewHasher creates a hasher. The radius must be positive.
func NewHasher(cellRadius float64) (Hasher, error) {
	if !(cellRadius > 0) || math.IsInf(cellRadius, 0) {
		return Hasher{}, &ConfigurationError{Field: "cell_radius", Reason: "must be positive and finite"}
	}
	return Hasher{radius: cellRadius}, nil
}

// Radius returns the cell radius.
func (h Hasher) Radius() float64 {
	return h.radius
}

// Quantize returns floor(p / radius) per axis. Coordinates beyond the int32
// range saturate, so everything that far out shares the edge cells. NaN maps
// to math.MinInt32.
func (h Hasher) Quantize(p r3.Vec) Coord {
	return Coord{
		X: quantize(p.X / h.radius),
		Y: quantize(p.Y / h.radius),
		Z: quantize(p.Z / h.radius),
	}
}

func quantize(v float64) int32 {
	f := math.Floor(v)
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f > math.MinInt32:
		return int32(f)
	default: // also NaN
		return math.MinInt32
	}
}

// Hash returns the cell id of p.
func (h Hasher) Hash(p r3.Vec) CellID {
	return HashCoord(h.Quantize(p))
}

// Multipliers are large odd constants (xxhash primes).
const (
	primeX = 0x9E3779B185EBCA87
	primeY = 0xC2B2AE3D27D4EB4F
	primeZ = 0x165667B19E3779F9
)

// HashCoord combines a quantized coordinate into one id.
func HashCoord(c Coord) CellID {
	h := uint64(uint32(c.X))*primeX ^ uint64(uint32(c.Y))*primeY ^ uint64(uint32(c.Z))*primeZ
	return CellID(mix64(h))
}

// mix64 is the murmur3 64-bit finalizer.
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
