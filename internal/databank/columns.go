package databank

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// MasterColumns is the fixed column list of the player-season table.
var MasterColumns = concat(
	[]string{
		"bb_key", "year_id", "player_id", "team_id", "franchise_id", "league_id",
		"division_id", "team_name", "team_home_park_name", "franchise_name",
		"franchise_active", "team_home_park_attendance", "team_rank",
		"team_home_park_factor_batter", "team_postseason_flag",
		"team_wild_card_series", "team_division_series", "team_league_series",
		"team_world_series", "full_name", "first_name", "last_name", "weight",
		"height", "batting_hand", "throwing_hand", "primary_position",
		"debut_date", "final_game", "birth_country", "birth_state", "birth_city",
		"birth_date", "total_games", "games_started", "games_batting",
		"games_defense", "games_pitcher", "games_catcher", "games_first_base",
		"games_second_base", "games_third_base", "games_shortstop",
		"games_outfield", "games_left_field", "games_center_field",
		"games_right_field", "games_designated_hitter", "games_pinch_hitter",
		"games_pinch_runner", "salary", "player_postseason_flag",
		"college_play_flag", "college_years_played", "college_name",
		"college_multiple", "allstar_flag", "mvp_award", "rookie_oty_award",
		"hall_of_fame", "manager_name", "manager_multiple",
	},
	battingStats("batting_"),
	fieldingStats,
	battingStats("batting_post_"),
	fieldingPostStats,
)

// FlagColumns are never missing in the player-season table.
var FlagColumns = []string{
	"allstar_flag",
	"mvp_award",
	"rookie_oty_award",
	"college_play_flag",
	"hall_of_fame",
	"team_postseason_flag",
	"player_postseason_flag",
}

// NumericalColumns is the numeric analysis subset (flags count as 0/1).
var NumericalColumns = concat(
	[]string{
		"bb_key", "allstar_flag", "team_home_park_attendance", "team_rank",
		"team_home_park_factor_batter", "team_wild_card_series",
		"team_division_series", "team_league_series", "team_world_series",
		"weight", "height",
	},
	appearanceInts,
	[]string{
		"salary", "player_postseason_flag", "college_play_flag",
		"college_years_played", "mvp_award", "rookie_oty_award", "hall_of_fame",
	},
	battingStats("batting_"),
	fieldingStats,
	battingStats("batting_post_"),
	fieldingPostStats[:len(fieldingPostStats)-2],
)

// CategoricalColumns is the categorical analysis subset.
var CategoricalColumns = []string{
	"bb_key",
	"allstar_flag",
	"team_name",
	"team_home_park_name",
	"franchise_name",
	"franchise_active",
	"batting_hand",
	"throwing_hand",
	"primary_position",
	"birth_country",
	"birth_state",
	"birth_city",
	"player_postseason_flag",
	"college_play_flag",
	"college_years_played",
	"college_name",
	"mvp_award",
	"rookie_oty_award",
	"hall_of_fame",
	"manager_name",
}

// DateColumns hold calendar dates in the player-season table.
var DateColumns = []string{"birth_date", "debut_date", "final_game"}

// ReadMaster reads a player-season table written as CSV and restores its
// column types.
func ReadMaster(r io.Reader) (*frame.Frame, error) {
	f, err := frame.ReadCSV(r)
	if err != nil {
		return nil, errors.Wrap(err, "read player-season csv")
	}
	if missing := f.Missing(keyBB); len(missing) > 0 {
		return nil, errors.Wrapf(frame.ErrMissingColumn, "player-season csv: %v", missing)
	}
	if f, err = f.CastInt(IntColumns()...); err != nil {
		return nil, err
	}
	if f, err = f.CastFloat(FloatColumns()...); err != nil {
		return nil, err
	}
	return f.CastDate(DateColumns...).NAToFalse(FlagColumns...), nil
}

// Numerical projects the numeric subset of a player-season table.
func Numerical(master *frame.Frame) (*frame.Frame, error) {
	return master.Select(NumericalColumns...)
}

// Categorical projects the categorical subset of a player-season table.
func Categorical(master *frame.Frame) (*frame.Frame, error) {
	return master.Select(CategoricalColumns...)
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
