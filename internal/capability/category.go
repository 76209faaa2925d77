// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package capability tracks per-entity, per-category unlock state.
//
// Every (entity, category) pair owns a single timestamp: zero means locked,
// anything greater is the engine time at which the capability was granted.
// Categories are orthogonal; granting one never implies another.
package capability

import "fmt"

// EntityID is the stable identifier of a controllable entity.
type EntityID string

// Category is one of the independent unlock dimensions.
type Category int

// Category constants define the fixed set of unlock dimensions.
const (
	CategoryBasic  Category = iota // basic
	CategoryCamera                 // camera
	CategoryTurret                 // turret
	CategoryAgent                  // agent
)

var categoryStrings = [...]string{
	"basic",
	"camera",
	"turret",
	"agent",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{CategoryBasic, CategoryCamera, CategoryTurret, CategoryAgent}
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryStrings) {
		return categoryStrings[c]
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// ParseCategory converts a serialized category name back to its Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryStrings {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown capability category %q", s)
}
