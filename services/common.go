package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"poopyPalsAPI/internal/notification"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrValidation wraps every request validation failure.
var ErrValidation = errors.New("invalid request")

var validate = validator.New()

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Notifier creates a notification from a template for one user.
type Notifier interface {
	CreateFromTemplate(ctx context.Context, userID uuid.UUID, templateID string, data map[string]any, scheduledFor *time.Time) (*notification.Notification, error)
}

type clock func() time.Time

type randSource func() rand.Source

func clockSeeded(now clock) randSource {
	return func() rand.Source {
		return rand.NewSource(now().UnixNano())
	}
}
