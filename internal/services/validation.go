package services

import (
	"fmt"
	"reflect"
	"strings"

	"digizone/internal/apperrors"
	"digizone/internal/payment"

	"github.com/go-playground/validator/v10"
)

// MaxCheckoutLines bounds the number of lines in one checkout; each line
// becomes one provider metadata entry.
const MaxCheckoutLines = payment.MaxLines

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID  string `json:"productId" validate:"required"`
	SKUID      string `json:"skuId" validate:"required_without=SKUPriceID"`
	SKUPriceID string `json:"skuPriceId"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
}

// CheckoutRequest is the body of a checkout call.
type CheckoutRequest struct {
	CheckoutDetails []CheckoutItem `json:"checkoutDetails" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCheckoutRequest checks the whole request before anything else
// happens and reports every violated constraint in one InvalidRequest error.
func ValidateCheckoutRequest(req CheckoutRequest, maxQuantity int) error {
	var violations []string

	if err := validate.Struct(req); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperrors.InvalidRequest("invalid checkout request", err.Error())
		}
		for _, e := range validationErrors {
			violations = append(violations, describe(e))
		}
	}

	if len(req.CheckoutDetails) > MaxCheckoutLines {
		violations = append(violations, fmt.Sprintf("checkoutDetails must contain at most %d lines", MaxCheckoutLines))
	}
	for i, item := range req.CheckoutDetails {
		if maxQuantity > 0 && item.Quantity > maxQuantity {
			violations = append(violations, fmt.Sprintf("checkoutDetails[%d].quantity must be at most %d", i, maxQuantity))
		}
	}

	if len(violations) > 0 {
		return apperrors.InvalidRequest("invalid checkout request", violations...)
	}
	return nil
}

func describe(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must not be empty", field)
		}
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s or skuPriceId is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s line", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", field, e.Tag())
	}
}
