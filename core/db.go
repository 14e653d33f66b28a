package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func Asc(field string) DBOrdering  { return DBOrdering{Field: field, Ascending: true} }
func Desc(field string) DBOrdering { return DBOrdering{Field: field} }

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering reads a comma separated list of fields, a leading "-" meaning descending.
func ParseOrdering(s string) []DBOrdering {
	var ords []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}
