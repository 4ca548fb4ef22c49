// Package masterdata manages units of measure and item categories.
package masterdata

import "time"

// Unit represents a unit of measure.
type Unit struct {
	ID           int64
	Name         string
	Abbreviation string
	Description  string
	CreatedAt    time.Time
}

// Label renders the unit the way forms display it.
func (u Unit) Label() string {
	if u.Abbreviation != "" {
		return u.Name + " (" + u.Abbreviation + ")"
	}
	return u.Name
}

// Category represents an item category.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}
