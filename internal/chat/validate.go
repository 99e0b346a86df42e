package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"chatroom-service/internal/apperr"
)

var validate = validator.New()

type bodyInput struct {
	Body string `validate:"required,max=4000"`
}

type nameInput struct {
	Name string `validate:"required,max=100"`
}

type reactionInput struct {
	Value string `validate:"required,max=32"`
}

type membersInput struct {
	MemberIDs []int `validate:"required,min=1,dive,gt=0"`
}

func check(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func cleanBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	return body, check(bodyInput{Body: body})
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	return name, check(nameInput{Name: name})
}

func cleanReaction(value string) (string, error) {
	value = strings.TrimSpace(value)
	return value, check(reactionInput{Value: value})
}

// retryRead runs a pure read and retries it once when the store was unavailable.
func retryRead[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil && apperr.Retryable(err) && ctx.Err() == nil {
		return fn()
	}
	return v, err
}
