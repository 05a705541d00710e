package domain

import "github.com/paulmach/orb"

// Shelter is one record of the CAI shelter directory.
type Shelter struct {
	ID        int64
	IDCAI     int64
	Title     string
	Point     orb.Point
	UpdatedAt string
	Fields    []ShelterField
	Media     []ShelterMedia
}

type ShelterField struct {
	Name  string
	Value string
}

type ShelterMedia struct {
	ID          int64
	Name        string
	FileName    string
	OriginalURL string
	PreviewURL  string
}

// Field returns the first value stored under name, "" when absent.
func (s Shelter) Field(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}
