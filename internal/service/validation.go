package service

import (
	"errors"
	"strings"

	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct 將 validator 的錯誤轉成 ErrValidation
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.ErrValidation, err, "invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" "+fe.Tag())
	}
	return apperr.New(apperr.ErrValidation, "invalid request: %s", strings.Join(fields, ", "))
}
