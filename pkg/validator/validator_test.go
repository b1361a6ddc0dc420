package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type eventForm struct {
	Title    string    `validate:"required,max=10"`
	Date     time.Time `validate:"required,future"`
	Capacity int       `validate:"required,positive"`
}

func TestValidateFutureDate(t *testing.T) {
	form := eventForm{Title: "Show", Date: time.Now().Add(time.Hour), Capacity: 5}
	assert.NoError(t, Validate(context.Background(), form))

	form.Date = time.Now().Add(-time.Hour)
	assert.Error(t, Validate(context.Background(), form))
}

func TestValidatePositiveInt(t *testing.T) {
	form := eventForm{Title: "Show", Date: time.Now().Add(time.Hour), Capacity: -3}
	assert.Error(t, Validate(context.Background(), form))
}

func TestValidateMaxLength(t *testing.T) {
	form := eventForm{Title: "A very long event title", Date: time.Now().Add(time.Hour), Capacity: 5}
	err := Validate(context.Background(), form)
	assert.Error(t, err)
}
