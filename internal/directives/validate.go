package directives

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"closetpicks/internal/services"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks every directive in t. Field errors are reported with their
// table path, for example guest_merges[3].secondary.
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	if err := getValidator().Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return services.Wrap(services.ErrValidation, "directives", "validate", strings.Join(msgs, "; "), nil)
		}
		return services.Wrap(services.ErrValidation, "directives", "validate", "invalid directive table", err)
	}
	return t.validateUnique()
}

func describeFieldError(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "Table.")
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", path, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", path, fe.Param())
	case "nefield":
		return path + " must differ from primary"
	case "url":
		return path + " must be a URL"
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s failed %s=%s", path, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", path, fe.Tag())
	}
}

// validateUnique rejects tables that name the same secondary or spine twice,
// since the result would depend on application order.
func (t *Table) validateUnique() error {
	secondaries := make(map[string]int, len(t.GuestMerges))
	for i, m := range t.GuestMerges {
		if prev, ok := secondaries[m.Secondary]; ok {
			return services.Wrap(services.ErrValidation, "directives", "validate",
				fmt.Sprintf("guest_merges[%d].secondary %q already merged by guest_merges[%d]", i, m.Secondary, prev), nil)
		}
		secondaries[m.Secondary] = i
	}
	spines := make(map[int]int, len(t.SpineCorrections))
	for i, c := range t.SpineCorrections {
		if prev, ok := spines[c.Spine]; ok {
			return services.Wrap(services.ErrValidation, "directives", "validate",
				fmt.Sprintf("spine_corrections[%d].spine %d already corrected by spine_corrections[%d]", i, c.Spine, prev), nil)
		}
		spines[c.Spine] = i
	}
	return nil
}
