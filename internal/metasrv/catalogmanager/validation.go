package catalogmanager

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/streamhouse/streamhouse/internal/common/apperrors"
)

var validate *validator.Validate

// SQL-style identifier: letter or underscore first, then letters, digits,
// underscores or dollar signs.
const objectNameRegex = `^[A-Za-z_][A-Za-z0-9_$]*$`
const objectNameMaxLength = 128

var objectNameRe = regexp.MustCompile(objectNameRegex)

// objectNameValidator checks a catalog object name against the identifier
// convention.
func objectNameValidator(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if len(name) == 0 || len(name) > objectNameMaxLength {
		return false
	}
	return objectNameRe.MatchString(name)
}

func init() {
	validate = validator.New()
	validate.RegisterValidation("objectName", objectNameValidator)
}

// validateSpec runs struct validation on a request spec and folds the
// validator errors into one ErrInvalidArgument.
func validateSpec(spec any) apperrors.Error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		appErr := ErrInvalidArgument
		for _, ve := range verrs {
			switch ve.Tag() {
			case "required":
				appErr = appErr.Err(apperrors.New("missing required field: " + ve.StructNamespace()))
			case "objectName":
				appErr = appErr.Err(apperrors.New("invalid object name: " + ve.StructNamespace()))
			default:
				appErr = appErr.Err(apperrors.New("invalid field: " + ve.StructNamespace()))
			}
		}
		return appErr
	}
	return ErrInvalidArgument.Err(err)
}
