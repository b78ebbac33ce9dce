package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func dataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func successResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusOK, data)
}

func badRequestResponse(c echo.Context, data interface{}) error {
	return dataResponse(c, http.StatusBadRequest, data)
}

func errorResponse(c echo.Context, status int, err error) error {
	return dataResponse(c, status, map[string]string{"error": err.Error()})
}

var validate = validator.New()

// readAndValidate binds path and query parameters into req, fills defaults
// and validates it. It returns nil when req is usable.
func readAndValidate(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fmt.Sprintf("%s failed on %s %s", fe.Field(), fe.Tag(), fe.Param()),
			})
		}
		return out
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}
