package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trivia-game-service/internal/domain"
)

// FileQuestionLoader reads the question set from a YAML or JSON file. The file
// holds either a list of questions or an object with a "questions" list.
type FileQuestionLoader struct {
	path string
}

func NewFileQuestionLoader(path string) *FileQuestionLoader {
	return &FileQuestionLoader{path: path}
}

func (l *FileQuestionLoader) LoadQuestions(context.Context) (domain.QuestionSet, error) {
	return LoadQuestionFile(l.path)
}

func LoadQuestionFile(path string) (domain.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.QuestionSet{}, fmt.Errorf("%w: %s", domain.ErrQuestionsNotFound, path)
		}
		return domain.QuestionSet{}, fmt.Errorf("read questions: %w", err)
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes a question document. JSON is valid YAML, so both
// formats go through the same decoder.
func ParseQuestions(data []byte) (domain.QuestionSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("parse questions: %w", err)
	}
	if len(root.Content) == 0 {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}

	var set domain.QuestionSet
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&set.Questions); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("parse questions: %w", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&set); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("parse questions: %w", err)
		}
	default:
		return domain.QuestionSet{}, fmt.Errorf("parse questions: unexpected document kind %d", doc.Kind)
	}
	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	return set, nil
}
