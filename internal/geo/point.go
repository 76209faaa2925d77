// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package geo provides the small amount of vector math the engine needs.
//
// All proximity checks in the engine compare squared distances against
// squared radii, so nothing here ever takes a square root.
package geo

// Point3 is a position in world space, in meters.
type Point3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// DistSq returns the squared Euclidean distance between two points.
func DistSq(a, b Point3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// Within reports whether a and b lie within radius meters of each other.
// A negative radius never matches.
func Within(a, b Point3, radius float64) bool {
	if radius < 0 {
		return false
	}
	return DistSq(a, b) <= radius*radius
}
