package api

import (
	"fmt"
	"net/http"

	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/xuri/excelize/v2"
)

const (
	leaderboardSheet = "Leaderboard"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportLeaderboard streams the guild's top users as an xlsx workbook.
func (h *Handlers) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := guildParam(r)
	result, err := h.leaderboard(r.Context(), guildID, scoreservice.MaxLeaderboardLimit)
	if err != nil {
		h.internalError(w, r, "export_leaderboard", err)
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}

	f, err := leaderboardWorkbook(*result.Success)
	if err != nil {
		h.internalError(w, r, "export_leaderboard", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leaderboard-%s.xlsx"`, guildID))
	if err := f.Write(w); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to write leaderboard workbook", attr.Error(err))
	}
}

func leaderboardWorkbook(entries []LeaderboardEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := []any{"Rank", "User ID", "XP", "Level"}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(leaderboardSheet, "A1", "D1", bold); err != nil {
		f.Close()
		return nil, err
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []any{e.Rank, string(e.UserID), e.XP, e.Level}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.SetColWidth(leaderboardSheet, "B", "B", 24); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
