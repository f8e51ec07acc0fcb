package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/killallgit/route-planner-api/internal/services/planner"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the lonlat and vehiclecategory tags to gin's
// validator engine. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("lonlat", validateLonLat); err != nil {
			registerErr = fmt.Errorf("registering lonlat: %w", err)
			return
		}
		if err := v.RegisterValidation("vehiclecategory", validateCategory); err != nil {
			registerErr = fmt.Errorf("registering vehiclecategory: %w", err)
		}
	})
	return registerErr
}

// jsonFieldName reports fields by their JSON name in validation errors
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// validateLonLat accepts a two element [lon, lat] slice within WGS84 bounds
func validateLonLat(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
		return false
	}
	if field.Len() != 2 {
		return false
	}
	lon, lat := field.Index(0).Float(), field.Index(1).Float()
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func validateCategory(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return planner.ValidCategory(int(fl.Field().Int()))
	default:
		return false
	}
}

// FieldError is one failed field in a request body
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// MissingFields reports whether err is a validation failure caused only by
// absent required fields, and lists every failed field
func MissingFields(err error) (bool, []FieldError) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false, nil
	}

	onlyRequired := true
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		if fe.Tag() != "required" {
			onlyRequired = false
		}
	}
	return onlyRequired, fields
}
