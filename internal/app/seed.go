package app

import (
	"time"

	"free_cabins/internal/domain"
)

// seedCabin is served when the store is empty or unreadable so the map
// always has something to show.
func seedCabin() domain.Cabin {
	return domain.Cabin{
		LocalID:         "cai-001",
		Name:            "Rifugio Bivacco Città di Clusone",
		Country:         strPtr("Italy"),
		Region:          strPtr("Lombardy"),
		Municipality:    strPtr("Clusone"),
		Latitude:        46.1142,
		Longitude:       10.0779,
		Altitude:        intPtr(1820),
		Capacity:        intPtr(9),
		Amenities:       []string{"water", "fireplace", "toilet"},
		IsFree:          true,
		RequiresBooking: false,
		Type:            strPtr("bivouac"),
		Email:           strPtr("info@clusonehut.it"),
		Phone:           strPtr("+39 016351530"),
		Website:         strPtr("https://www.rifugidelcai.it/rifugio-bivacco-citta-di-clusone/"),
		Facebook:        strPtr("https://facebook.com/clusonehut"),
		Instagram:       strPtr("https://instagram.com/clusonehut"),
		Description:     strPtr("A mountain bivouac in the Italian Alps"),
		LastUpdated:     time.Date(2023, 5, 15, 10, 30, 0, 0, time.UTC),
		Images: []domain.CabinImage{{
			Name:        "Exterior View",
			FileName:    "exterior.jpg",
			MimeType:    "image/jpeg",
			OriginalURL: "https://example.com/images/exterior.jpg",
			PreviewURL:  strPtr("https://example.com/images/exterior-thumb.jpg"),
		}},
	}
}

func seedDraft() domain.CabinDraft {
	c := seedCabin()
	return domain.CabinDraft{
		LocalID:         &c.LocalID,
		Name:            &c.Name,
		Country:         c.Country,
		Region:          c.Region,
		Municipality:    c.Municipality,
		Latitude:        &c.Latitude,
		Longitude:       &c.Longitude,
		Altitude:        c.Altitude,
		Capacity:        c.Capacity,
		Amenities:       c.Amenities,
		IsFree:          &c.IsFree,
		RequiresBooking: &c.RequiresBooking,
		Type:            c.Type,
		Email:           c.Email,
		Phone:           c.Phone,
		Website:         c.Website,
		Facebook:        c.Facebook,
		Instagram:       c.Instagram,
		Description:     c.Description,
		Images:          c.Images,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
