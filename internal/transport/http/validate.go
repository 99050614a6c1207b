package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "sectorflow/internal/errors"
	"sectorflow/internal/leaderflow"
	"sectorflow/internal/marketdata"
)

// decodeAndValidate reads a JSON body into v and checks its validate tags.
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apierrors.InvalidRequest(err)
	}
	if err := leaderflow.Validator().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apierrors.InvalidRequest(err)
		}
		fields := make([]apierrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apierrors.FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
			})
		}
		return apierrors.ValidationFailed(fields)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "numeric":
		return "must be numeric"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// checkPeriods rejects a reversed or malformed period range.
func checkPeriods(start, end string) error {
	if _, err := marketdata.ParsePeriodRange(start, end); err != nil {
		return apierrors.ValidationFailed([]apierrors.FieldError{{Field: "start", Message: err.Error()}})
	}
	return nil
}
