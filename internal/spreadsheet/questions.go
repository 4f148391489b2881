package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"trivia-game-service/internal/domain"
)

// ReadQuestions imports questions from the first sheet of a workbook. The
// header row must name the columns "level", "question" and "correct answer";
// every column whose header starts with "option" is read as an option.
func ReadQuestions(r io.Reader) (domain.QuestionSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("%w: workbook has no sheets", domain.ErrQuestionsNotFound)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return domain.QuestionSet{}, fmt.Errorf("%w: need a header row and at least one question", domain.ErrQuestionsNotFound)
	}

	levelCol, textCol, answerCol := -1, -1, -1
	var optionCols []int
	for i, header := range rows[0] {
		switch h := strings.ToLower(strings.TrimSpace(header)); {
		case h == "level":
			levelCol = i
		case h == "question":
			textCol = i
		case h == "correct answer":
			answerCol = i
		case strings.HasPrefix(h, "option"):
			optionCols = append(optionCols, i)
		}
	}
	if levelCol < 0 || textCol < 0 || answerCol < 0 || len(optionCols) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("missing required columns in header %v", rows[0])
	}

	var set domain.QuestionSet
	for _, row := range rows[1:] {
		q := domain.Question{
			Level:         domain.LevelName(strings.ToLower(cell(row, levelCol))),
			Text:          cell(row, textCol),
			CorrectAnswer: cell(row, answerCol),
		}
		for _, col := range optionCols {
			if opt := cell(row, col); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
		if q.Text == "" && len(q.Options) == 0 {
			continue
		}
		set.Questions = append(set.Questions, q)
	}
	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	return set, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
