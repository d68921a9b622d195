package services

import (
	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/utils"
)

// PendingMembers returns the members whose name is not the claimant of any slot
func PendingMembers(team *models.Team, sel *models.Selection) []models.Member {
	claimants := make(map[string]bool, len(sel.Options))
	for _, o := range sel.Options {
		if o.IsClaimed() {
			claimants[o.Value] = true
		}
	}

	pending := []models.Member{}
	for _, m := range team.Members {
		if !claimants[m.Name] {
			pending = append(pending, m)
		}
	}
	return pending
}

// AllocationReady reports whether every member has either claimed a slot or been marked absent
func AllocationReady(team *models.Team, sel *models.Selection) bool {
	if len(PendingMembers(team, sel)) == 0 {
		return true
	}
	return len(team.AbsentMembers())+len(sel.Claimed()) == len(team.Members)
}

// BuildBoard assembles the facilitator board. results may be nil while the raffle runs.
func BuildBoard(team *models.Team, sel *models.Selection, results *models.Results) *models.Board {
	board := &models.Board{
		TeamName:        team.TeamName,
		IsOpen:          team.IsOpen,
		Members:         team.Members,
		Pending:         PendingMembers(team, sel),
		Options:         sel.Options,
		AbsentCount:     len(team.AbsentMembers()),
		ClaimedCount:    len(sel.Claimed()),
		AllocationReady: AllocationReady(team, sel),
		Concluded:       results != nil,
		Results:         []models.ResultView{},
	}
	if board.Members == nil {
		board.Members = []models.Member{}
	}
	if board.Options == nil {
		board.Options = []models.Option{}
	}
	if results != nil {
		board.Results = ResultViews(results)
	}
	return board
}

// ResultViews formats allocation results for display
func ResultViews(results *models.Results) []models.ResultView {
	views := make([]models.ResultView, len(results.Results))
	for i, r := range results.Results {
		views[i] = models.ResultView{
			Name:         r.Name,
			Option:       r.Option,
			Prize:        r.Prize,
			PrizeDisplay: utils.FormatPrize(r.Prize),
		}
	}
	return views
}
