package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(yamlName)
	if err := validate.RegisterValidation("filemode", func(fl validator.FieldLevel) bool {
		_, err := parseFileMode(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// yamlName reports fields by their YAML key so errors match the file.
func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Validate checks struct tags and the cross-section rules, returning every
// problem found joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fieldError(e))
		}
	}

	if c.Archive.Backend == "s3" {
		if c.Archive.S3.Bucket == "" {
			errs = append(errs, errors.New("archive.s3.bucket: field is required for the s3 backend"))
		}
		if c.Archive.S3.Region == "" && c.Archive.S3.Endpoint == "" {
			errs = append(errs, errors.New("archive.s3.region: region or endpoint is required for the s3 backend"))
		}
	}

	return errors.Join(errs...)
}

func fieldError(e validator.FieldError) error {
	// Namespace is "Config.log.path"; drop the root type name.
	_, field, _ := strings.Cut(e.Namespace(), ".")
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "required_if", "required_with":
		return fmt.Errorf("%s: field is required (%s=%s)", field, e.Tag(), param)
	case "oneof":
		return fmt.Errorf("%s: %q must be one of [%s]", field, e.Value(), param)
	case "min":
		return fmt.Errorf("%s: must be at least %s", field, param)
	case "max":
		return fmt.Errorf("%s: must not exceed %s", field, param)
	case "filemode":
		return fmt.Errorf("%s: %q is not an octal permission such as 0644", field, e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
