package app

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"free_cabins/internal/domain"
)

/********** create-or-merge **********/

// mergeDraft builds the record to persist. Precedence per field:
// candidate > enrichment > matched row > default.
func mergeDraft(d domain.CabinDraft, geo domain.GeoInfo, existing *domain.Cabin, now time.Time) domain.Cabin {
	var prev domain.Cabin
	if existing != nil {
		prev = *existing
	}

	c := domain.Cabin{
		ID:              prev.ID,
		LocalID:         firstStr(d.LocalID, strPtrOrNil(prev.LocalID)),
		Name:            *d.Name,
		Country:         pick(d.Country, geo.Country, prev.Country),
		Region:          pick(d.Region, geo.Region, prev.Region),
		Municipality:    pick(d.Municipality, geo.Municipality, prev.Municipality),
		Latitude:        *d.Latitude,
		Longitude:       *d.Longitude,
		Altitude:        pick(d.Altitude, geo.Altitude, prev.Altitude),
		Capacity:        pick(d.Capacity, prev.Capacity),
		Amenities:       d.Amenities,
		IsFree:          pickBool(d.IsFree, prev.IsFree),
		RequiresBooking: pickBool(d.RequiresBooking, prev.RequiresBooking),
		Type:            pick(d.Type, prev.Type),
		Email:           pick(d.Email, prev.Email),
		Phone:           pick(d.Phone, prev.Phone),
		Website:         pick(d.Website, prev.Website),
		Facebook:        pick(d.Facebook, prev.Facebook),
		Instagram:       pick(d.Instagram, prev.Instagram),
		Description:     pick(d.Description, prev.Description),
		LastUpdated:     now,
		Images:          d.Images,
	}
	if c.Altitude == nil {
		c.Altitude = intPtr(0)
	}
	if c.Amenities == nil {
		c.Amenities = prev.Amenities
	}
	if c.Amenities == nil {
		c.Amenities = []string{}
	}
	return c
}

func pick[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			cp := *v
			return &cp
		}
	}
	return nil
}

func pickBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func firstStr(vals ...*string) string {
	if p := pick(vals...); p != nil {
		return *p
	}
	return ""
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

/********** partial update **********/

// applyPatch shallow-merges p onto c. Unset fields are left alone.
func applyPatch(c *domain.Cabin, p domain.CabinPatch) {
	if p.LocalID.Set && p.LocalID.Valid && p.LocalID.Value != "" {
		c.LocalID = p.LocalID.Value
	}
	if p.Name.Valid {
		c.Name = p.Name.Value
	}
	if p.Latitude.Valid {
		c.Latitude = p.Latitude.Value
	}
	if p.Longitude.Valid {
		c.Longitude = p.Longitude.Value
	}
	p.Country.Apply(&c.Country)
	p.Region.Apply(&c.Region)
	p.Municipality.Apply(&c.Municipality)
	p.Altitude.Apply(&c.Altitude)
	p.Capacity.Apply(&c.Capacity)
	p.Type.Apply(&c.Type)
	p.Email.Apply(&c.Email)
	p.Phone.Apply(&c.Phone)
	p.Website.Apply(&c.Website)
	p.Facebook.Apply(&c.Facebook)
	p.Instagram.Apply(&c.Instagram)
	p.Description.Apply(&c.Description)
	if p.Amenities.Set {
		c.Amenities = []string{}
		if p.Amenities.Valid && p.Amenities.Value != nil {
			c.Amenities = p.Amenities.Value
		}
	}
	if p.IsFree.Set {
		c.IsFree = p.IsFree.Valid && p.IsFree.Value
	}
	if p.RequiresBooking.Set {
		c.RequiresBooking = p.RequiresBooking.Valid && p.RequiresBooking.Value
	}
	if p.Images.Set {
		c.Images = nil
		if p.Images.Valid {
			c.Images = p.Images.Value
		}
	}
}

func validatePatch(p domain.CabinPatch) error {
	if p.Name.Set && (!p.Name.Valid || strings.TrimSpace(p.Name.Value) == "") {
		return &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Latitude.Set {
		if !p.Latitude.Valid {
			return &domain.ValidationError{Field: "latitude", Reason: "is required"}
		}
		if err := checkCoord("latitude", p.Latitude.Value, 90); err != nil {
			return err
		}
	}
	if p.Longitude.Set {
		if !p.Longitude.Valid {
			return &domain.ValidationError{Field: "longitude", Reason: "is required"}
		}
		if err := checkCoord("longitude", p.Longitude.Value, 180); err != nil {
			return err
		}
	}
	if p.LocalID.Set && !p.LocalID.Valid {
		return &domain.ValidationError{Field: "local_id", Reason: "cannot be cleared"}
	}
	if p.Images.Valid {
		if err := checkImages(p.Images.Value); err != nil {
			return err
		}
	}
	return nil
}

/********** CAI directory records **********/

const caiLocalIDPrefix = "cai-"

var caiTypes = map[string]string{
	"Bivacco":             domain.TypeShelter,
	"Punto d'appoggio":    domain.TypeShelter,
	"Rifugio custodito":   domain.TypeMannedHut,
	"Rifugio incustodito": domain.TypeUnattendedHut,
	"Capanna sociale":     domain.TypeUnattendedHut,
}

// mapCAIType translates the directory's free-text type; unknown values give nil.
func mapCAIType(raw string) *string {
	if t, ok := caiTypes[raw]; ok {
		return &t
	}
	return nil
}

func mapShelter(s domain.Shelter, now time.Time) domain.Cabin {
	typ := mapCAIType(s.Field("type"))
	isShelter := typ != nil && *typ == domain.TypeShelter

	amenities := []string{}
	if s.Field("acqua_in_rifugio_service") == "1" {
		amenities = append(amenities, "water")
	}
	if s.Field("elettricita_service") == "1" {
		amenities = append(amenities, "electricity")
	}

	name := s.Field("alias")
	if name == "" {
		name = s.Title
	}

	website := s.Field("webSite_management_property")
	if website == "" {
		website = s.Field("webAddress_contact")
	}

	c := domain.Cabin{
		LocalID:         caiLocalIDPrefix + strconv.FormatInt(s.IDCAI, 10),
		Name:            titleCase(name),
		Country:         strPtr("Italy"),
		Region:          strPtrOrNil(s.Field("region_geo")),
		Municipality:    strPtrOrNil(s.Field("municipality_geo")),
		Latitude:        s.Point.Lat(),
		Longitude:       s.Point.Lon(),
		Altitude:        intPtr(fieldInt(s.Field("altitude_geo"), 0)),
		Capacity:        intPtr(fieldInt(s.Field("posti_totali_service"), 1)),
		Amenities:       amenities,
		IsFree:          typ != nil && strings.Contains(strings.ToLower(*typ), "shelter"),
		RequiresBooking: !isShelter,
		Type:            typ,
		Email:           strPtrOrNil(s.Field("emailAddress")),
		Phone:           strPtrOrNil(s.Field("fixedPhone_property")),
		Website:         strPtrOrNil(website),
		Facebook:        strPtrOrNil(s.Field("facebook_contact")),
		Instagram:       strPtrOrNil(s.Field("instagram_contact")),
		Description:     strPtrOrNil(s.Field("description_geo")),
		LastUpdated:     now,
	}
	for _, m := range s.Media {
		if m.FileName == "" {
			continue
		}
		c.Images = append(c.Images, domain.CabinImage{
			Name:        m.Name,
			FileName:    m.FileName,
			OriginalURL: m.OriginalURL,
			PreviewURL:  strPtrOrNil(m.PreviewURL),
		})
	}
	return c
}

// fieldInt parses a numeric directory field, rounding decimals. Blank or
// unparsable values yield def.
func fieldInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(math.Round(f))
}

// titleCase lower-cases s and upper-cases the first letter of every word.
// Any rune that is not a letter or digit separates words.
func titleCase(s string) string {
	rs := []rune(strings.ToLower(s))
	inWord := false
	for i, r := range rs {
		wordRune := unicode.IsLetter(r) || unicode.IsDigit(r)
		if wordRune && !inWord {
			rs[i] = unicode.ToUpper(r)
		}
		inWord = wordRune
	}
	return string(rs)
}
