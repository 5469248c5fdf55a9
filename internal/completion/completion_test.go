package completion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"citeweb/internal/apperr"
	"citeweb/internal/completion"
	"citeweb/internal/models"
)

type MockProvider struct{ mock.Mock }

func (m *MockProvider) Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error) {
	args := m.Called(ctx, turns, model)
	return args.String(0), args.Error(1)
}

func TestRouter_Complete(t *testing.T) {
	ctx := context.Background()
	turns := []models.ChatTurn{{Role: models.RoleSystem, Content: "s"}, {Role: models.RoleUser, Content: "u"}}

	t.Run("Prefix Route", func(t *testing.T) {
		groq, gemini := new(MockProvider), new(MockProvider)
		gemini.On("Complete", ctx, turns, "gemini-1.5-flash").Return("from gemini", nil)

		r := completion.NewRouter(groq).Route("gemini-", gemini)
		got, err := r.Complete(ctx, turns, "gemini-1.5-flash")

		assert.NoError(t, err)
		assert.Equal(t, "from gemini", got)
		groq.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Fallback Route", func(t *testing.T) {
		groq := new(MockProvider)
		groq.On("Complete", ctx, turns, "llama3-8b-8192").Return("from groq", nil)

		r := completion.NewRouter(groq).Route("gemini-", nil)
		got, err := r.Complete(ctx, turns, "llama3-8b-8192")

		assert.NoError(t, err)
		assert.Equal(t, "from groq", got)
	})

	t.Run("Missing Model", func(t *testing.T) {
		r := completion.NewRouter(new(MockProvider))
		_, err := r.Complete(ctx, turns, " ")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("No Provider", func(t *testing.T) {
		r := completion.NewRouter(nil)
		_, err := r.Complete(ctx, turns, "llama3-8b-8192")
		assert.True(t, errors.Is(err, apperr.ErrInternal))
	})
}
