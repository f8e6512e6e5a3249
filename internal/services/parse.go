package services

import (
	"encoding/json"
	"fmt"

	"financial-movement/internal/models"

	"github.com/go-playground/validator"
)

// ParseError reports an inbound payload that is not a usable command.
type ParseError struct {
	Payload []byte
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", models.ErrMalformedPayload, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{models.ErrMalformedPayload, e.Err}
}

// parseCommand decodes payload and checks the named fields, or every field
// when none are named. The decoded command is returned even on validation
// failure so its id can still be reported.
func parseCommand(validate *validator.Validate, payload []byte, fields ...string) (models.TransactionCommand, error) {
	var cmd models.TransactionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, &ParseError{Payload: payload, Err: err}
	}

	var err error
	if len(fields) == 0 {
		err = validate.Struct(cmd)
	} else {
		err = validate.StructPartial(cmd, fields...)
	}
	if err != nil {
		return cmd, &ParseError{Payload: payload, Err: err}
	}

	return cmd, nil
}
