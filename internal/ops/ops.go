package ops

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/formulary/internal/errors"
)

// Response messages shared by the HTTP and MCP surfaces.
const (
	MsgContentSaved   = "Content saved successfully."
	MsgFormulaSaved   = "Formula saved successfully."
	MsgFormulaUpdated = "Formula updated successfully."
	MsgProblemSaved   = "Problem saved successfully."
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput checks `validate` tags and turns failures into a VALIDATION
// error listing the offending fields in declaration order.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewInternal(err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return errors.NewValidation(fields)
}
