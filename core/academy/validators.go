package academy

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "invalid weekday"

	outcomeTag  = "outcome"
	outcomeText = "invalid outcome"
)

// RegisterValidators registers this package's custom validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(outcomeTag, outcomeValidation)
	core.RegisterCustomTranslation(validate, translator, outcomeTag, outcomeText)
}

func weekdayValidation(fl validator.FieldLevel) bool {
	return Weekday(fl.Field().String()).Valid()
}

func outcomeValidation(fl validator.FieldLevel) bool {
	return Outcome(fl.Field().String()).Valid()
}
