package app

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"free_cabins/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateDraft checks the structurally required fields of a candidate and
// reports the first violation as a *domain.ValidationError.
func validateDraft(d domain.CabinDraft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return &domain.ValidationError{Field: fieldPath(fe), Reason: reason(fe)}
	}
	return &domain.ValidationError{Field: "", Reason: err.Error()}
}

// fieldPath drops the struct name prefix: "CabinDraft.images[0].fileName" -> "images[0].fileName".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "unique":
		return "must not repeat " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// normalizeDraft treats blank strings as not supplied.
func normalizeDraft(d domain.CabinDraft) domain.CabinDraft {
	for _, p := range []**string{
		&d.LocalID, &d.Name, &d.Country, &d.Region, &d.Municipality, &d.Type,
		&d.Email, &d.Phone, &d.Website, &d.Facebook, &d.Instagram, &d.Description,
	} {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
		}
	}
	return d
}

// checkImages rejects replacement image sets that reuse a file name; the store
// keys images by (cabin, file name).
func checkImages(imgs []domain.CabinImage) error {
	for i, img := range imgs {
		if strings.TrimSpace(img.FileName) == "" {
			return &domain.ValidationError{Field: "images[" + strconv.Itoa(i) + "].fileName", Reason: "is required"}
		}
	}
	if err := validate.Var(imgs, "unique=FileName"); err != nil {
		return &domain.ValidationError{Field: "images", Reason: "must not repeat FileName"}
	}
	return nil
}

func checkCoord(field string, v, limit float64) error {
	if v < -limit || v > limit {
		return &domain.ValidationError{Field: field, Reason: "out of range"}
	}
	return nil
}
