package domain

import (
	"strings"
	"time"
)

// Known cabin types. Type is free text, these are the ones the UI filters on.
const (
	TypeUnattendedHut = "unattended hut"
	TypeShelter       = "shelter"
	TypeMannedHut     = "manned hut"
)

var CabinTypes = []string{TypeUnattendedHut, TypeShelter, TypeMannedHut}

type Cabin struct {
	ID              int64        `json:"id"`
	LocalID         string       `json:"local_id"`
	Name            string       `json:"name"`
	Country         *string      `json:"country"`
	Region          *string      `json:"region"`
	Municipality    *string      `json:"municipality"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	Altitude        *int         `json:"altitude"`
	Capacity        *int         `json:"capacity"`
	Amenities       []string     `json:"amenities"`
	IsFree          bool         `json:"isFree"`
	RequiresBooking bool         `json:"requiresBooking"`
	Type            *string      `json:"type"`
	Email           *string      `json:"email"`
	Phone           *string      `json:"phone"`
	Website         *string      `json:"website"`
	Facebook        *string      `json:"facebook"`
	Instagram       *string      `json:"instagram"`
	Description     *string      `json:"description"`
	LastUpdated     time.Time    `json:"lastUpdated"`
	Images          []CabinImage `json:"images"`
}

type CabinImage struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	FileName    string  `json:"fileName" validate:"required"`
	MimeType    string  `json:"mimeType"`
	OriginalURL string  `json:"originalUrl"`
	PreviewURL  *string `json:"previewUrl,omitempty"`
}

// HasAmenity reports whether tag is among the cabin's amenities (case-insensitive).
func (c Cabin) HasAmenity(tag string) bool {
	for _, a := range c.Amenities {
		if strings.EqualFold(a, tag) {
			return true
		}
	}
	return false
}

// CabinDraft is a create-or-merge candidate. Nil means "not supplied".
type CabinDraft struct {
	LocalID         *string      `json:"local_id"`
	Name            *string      `json:"name" validate:"required,min=1"`
	Country         *string      `json:"country"`
	Region          *string      `json:"region"`
	Municipality    *string      `json:"municipality"`
	Latitude        *float64     `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude       *float64     `json:"longitude" validate:"required,min=-180,max=180"`
	Altitude        *int         `json:"altitude"`
	Capacity        *int         `json:"capacity" validate:"omitempty,min=0"`
	Amenities       []string     `json:"amenities"`
	IsFree          *bool        `json:"isFree"`
	RequiresBooking *bool        `json:"requiresBooking"`
	Type            *string      `json:"type"`
	Email           *string      `json:"email"`
	Phone           *string      `json:"phone"`
	Website         *string      `json:"website"`
	Facebook        *string      `json:"facebook"`
	Instagram       *string      `json:"instagram"`
	Description     *string      `json:"description"`
	Images          []CabinImage `json:"images" validate:"unique=FileName,dive"`
}

// NeedsGeo is true when any location field enrichment can fill is missing.
func (d CabinDraft) NeedsGeo() bool {
	return d.Country == nil || d.Region == nil || d.Municipality == nil || d.Altitude == nil
}

// CabinPatch is a partial update. Unset fields keep the stored value,
// explicit nulls clear it.
type CabinPatch struct {
	LocalID         Field[string]       `json:"local_id"`
	Name            Field[string]       `json:"name"`
	Country         Field[string]       `json:"country"`
	Region          Field[string]       `json:"region"`
	Municipality    Field[string]       `json:"municipality"`
	Latitude        Field[float64]      `json:"latitude"`
	Longitude       Field[float64]      `json:"longitude"`
	Altitude        Field[int]          `json:"altitude"`
	Capacity        Field[int]          `json:"capacity"`
	Amenities       Field[[]string]     `json:"amenities"`
	IsFree          Field[bool]         `json:"isFree"`
	RequiresBooking Field[bool]         `json:"requiresBooking"`
	Type            Field[string]       `json:"type"`
	Email           Field[string]       `json:"email"`
	Phone           Field[string]       `json:"phone"`
	Website         Field[string]       `json:"website"`
	Facebook        Field[string]       `json:"facebook"`
	Instagram       Field[string]       `json:"instagram"`
	Description     Field[string]       `json:"description"`
	Images          Field[[]CabinImage] `json:"images"`
}

// GeoInfo is what reverse geocoding plus elevation lookup resolve for a point.
type GeoInfo struct {
	Country      *string
	Region       *string
	Municipality *string
	Altitude     *int
}
