package router

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jacentio/lakitu/store"
)

// valueBody is the JSON body of create and update.
type valueBody struct {
	Value *string `json:"value" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func bodyValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// decodeValue extracts and checks the value field of a create or update body.
func decodeValue(raw string) (string, error) {
	var body valueBody
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return "", &store.ValidationError{Field: "body", Message: msgInvalidBody}
	}
	if err := bodyValidator().Struct(body); err != nil {
		return "", &store.ValidationError{Field: "body", Message: msgInvalidBody}
	}
	if err := store.ValidateValue(*body.Value); err != nil {
		return "", err
	}
	return *body.Value, nil
}
