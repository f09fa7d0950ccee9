package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
)

// New returns a configured validator with the M-Pesa phone rule registered.
// Field errors are reported under their json names.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("mpesa_phone", validatePhone); err != nil {
		panic("validation: register mpesa_phone: " + err.Error())
	}

	return v
}

// validatePhone accepts anything NormalizePhone can turn into a 2547/2541 number.
func validatePhone(fl validatorv10.FieldLevel) bool {
	_, err := mpesa.NormalizePhone(fl.Field().String())
	return err == nil
}
