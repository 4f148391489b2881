package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"trivia-game-service/internal/domain"
)

var playerNamePattern = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.]+$`)

var nameValidator = newNameValidator()

func newNameValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("playername", func(fl validator.FieldLevel) bool {
		return playerNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// SanitizePlayerName strips markup fragments and surrounding whitespace.
func SanitizePlayerName(raw string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(raw)
	for {
		i := strings.Index(strings.ToLower(cleaned), "javascript:")
		if i < 0 {
			break
		}
		cleaned = cleaned[:i] + cleaned[i+len("javascript:"):]
	}
	return strings.TrimSpace(cleaned)
}

// ValidatePlayerName sanitizes raw and checks it is 2-20 runes of letters,
// digits, spaces or "-_.".
func ValidatePlayerName(raw string) (string, error) {
	name := SanitizePlayerName(raw)
	if err := nameValidator.Var(name, "required,min=2,max=20,playername"); err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPlayerName, name)
	}
	return name, nil
}

// ValidateQuestion checks q can be shown: non-empty text, at least two
// options that stay unique after normalization, and exactly one option
// matching the correct answer.
func ValidateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", domain.ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: %d options", domain.ErrInvalidQuestion, len(q.Options))
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("%w: empty correct answer", domain.ErrInvalidQuestion)
	}
	correct := Normalize(q.CorrectAnswer)
	seen := make(map[string]struct{}, len(q.Options))
	matches := 0
	for _, opt := range q.Options {
		n := Normalize(opt)
		if n == "" {
			return fmt.Errorf("%w: empty option", domain.ErrInvalidQuestion)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: duplicate option %q", domain.ErrInvalidQuestion, opt)
		}
		seen[n] = struct{}{}
		if n == correct {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("%w: correct answer not among options", domain.ErrInvalidQuestion)
	}
	return nil
}
