package tabular

import (
	"nhldiag/domain/dataset"
)

// DraftSchema declares the 23 columns of the NHL draft dataset
// (seasons 1963-2022). Goalie columns are sparse for skaters and
// vice versa, which the loader records as missing cells.
func DraftSchema() *dataset.Schema {
	return &dataset.Schema{
		Columns: []dataset.ColumnSpec{
			{Name: "id", Type: dataset.TypeNumeric},
			{Name: "year", Type: dataset.TypeNumeric},
			{Name: "overall_pick", Type: dataset.TypeNumeric},
			{Name: "team", Type: dataset.TypeCategorical},
			{Name: "player", Type: dataset.TypeCategorical},
			{Name: "nationality", Type: dataset.TypeCategorical},
			{Name: "position", Type: dataset.TypeCategorical},
			{Name: "age", Type: dataset.TypeNumeric},
			{Name: "to_year", Type: dataset.TypeNumeric},
			{Name: "amateur_team", Type: dataset.TypeCategorical},
			{Name: "games_played", Type: dataset.TypeNumeric},
			{Name: "goals", Type: dataset.TypeNumeric},
			{Name: "assists", Type: dataset.TypeNumeric},
			{Name: "points", Type: dataset.TypeNumeric},
			{Name: "plus_minus", Type: dataset.TypeNumeric},
			{Name: "penalties_minutes", Type: dataset.TypeNumeric},
			{Name: "goalie_games_played", Type: dataset.TypeNumeric},
			{Name: "goalie_wins", Type: dataset.TypeNumeric},
			{Name: "goalie_losses", Type: dataset.TypeNumeric},
			{Name: "goalie_ties_overtime", Type: dataset.TypeNumeric},
			{Name: "save_percentage", Type: dataset.TypeNumeric},
			{Name: "goals_against_average", Type: dataset.TypeNumeric},
			{Name: "point_shares", Type: dataset.TypeNumeric},
		},
	}
}
