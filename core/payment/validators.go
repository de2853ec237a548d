package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mahimaacademy/academy/core"
)

var (
	utrTag  = "utr"
	utrText = errTransactionRefForm.Error()
)

// InitValidators registers the payment validators; core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(utrTag, utrValidation)
	core.RegisterCustomTranslation(validate, translator, utrTag, utrText)
}

func utrValidation(fl validator.FieldLevel) bool {
	return ValidTransactionRef(fl.Field().String())
}
