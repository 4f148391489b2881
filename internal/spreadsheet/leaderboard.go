package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"trivia-game-service/internal/domain"
)

const leaderboardSheet = "Leaderboard"

var leaderboardHeaders = []string{"Rank", "Name", "Score", "Level", "Attempt", "Device ID", "Player ID"}

// WriteLeaderboard renders board as a single-sheet workbook.
func WriteLeaderboard(w io.Writer, board domain.Leaderboard) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(leaderboardSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, header := range leaderboardHeaders {
		if err := setCell(f, leaderboardSheet, col, 1, header); err != nil {
			return err
		}
	}
	for i, e := range board.Entries {
		row := []interface{}{i + 1, e.Name, e.Score, string(e.Level), e.Attempt, e.DeviceID, e.PlayerID}
		for col, value := range row {
			if err := setCell(f, leaderboardSheet, col, i+2, value); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(leaderboardSheet, "B", "B", 24); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
