package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-game-service/internal/domain"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Paris ":      "paris",
		"Café":          "cafe",
		"ÉCOLE  Normal": "ecole normal",
		"أحمد":          "احمد",
		"مُحَمَّد":      "محمد",
		"إسلام":         "اسلام",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
	assert.True(t, SameAnswer("Crème Brûlée", "creme brulee"))
}

func TestValidateQuestion(t *testing.T) {
	good := domain.Question{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: "paris"}
	require.NoError(t, ValidateQuestion(good))

	bad := []domain.Question{
		{Text: " ", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Text: "q", Options: []string{"a"}, CorrectAnswer: "a"},
		{Text: "q", Options: []string{"a", "b"}, CorrectAnswer: "c"},
		{Text: "q", Options: []string{"a", "b"}, CorrectAnswer: ""},
		{Text: "q", Options: []string{"Été", "ete", "b"}, CorrectAnswer: "b"},
	}
	for i, q := range bad {
		err := ValidateQuestion(q)
		assert.True(t, errors.Is(err, domain.ErrInvalidQuestion), "case %d: %v", i, err)
	}
}

func TestValidatePlayerName(t *testing.T) {
	name, err := ValidatePlayerName("  Abu_Qusay.2 ")
	require.NoError(t, err)
	assert.Equal(t, "Abu_Qusay.2", name)

	name, err = ValidatePlayerName("<سارة>")
	require.NoError(t, err)
	assert.Equal(t, "سارة", name)

	for _, raw := range []string{"", "a", "this name is far too long", "bob!", "javascript:"} {
		_, err := ValidatePlayerName(raw)
		assert.True(t, errors.Is(err, domain.ErrInvalidPlayerName), raw)
	}
}
