package databank

import (
	"github.com/cockroachdb/errors"
)

var ErrUnknownDataType = errors.New("unknown databank data type")

// DataType names a Baseball Databank table by its CSV file name.
type DataType string

const (
	AllStar      DataType = "AllstarFull"
	Appearances  DataType = "Appearances"
	Awards       DataType = "AwardsSharePlayers"
	College      DataType = "CollegePlaying"
	HallOfFame   DataType = "HallOfFame"
	Managers     DataType = "Managers"
	People       DataType = "People"
	Salaries     DataType = "Salaries"
	Teams        DataType = "Teams"
	Batting      DataType = "Batting"
	Fielding     DataType = "Fielding"
	BattingPost  DataType = "BattingPost"
	FieldingPost DataType = "FieldingPost"

	// TeamsFranchises only feeds Teams.
	TeamsFranchises DataType = "TeamsFranchises"
)

// DataTypes lists the processed tables in declaration order.
var DataTypes = []DataType{
	AllStar, Appearances, Awards, College, HallOfFame, Managers, People,
	Salaries, Teams, Batting, Fielding, BattingPost, FieldingPost,
}

func (d DataType) String() string { return string(d) }

func ParseDataType(s string) (DataType, error) {
	for _, d := range DataTypes {
		if string(d) == s {
			return d, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownDataType, "%q", s)
}

const (
	keyPlayer = "player_key"
	keyTeam   = "team_key"
	keyBB     = "bb_key"
	colPlayer = "player_id"
	colTeam   = "team_id"
	colYear   = "year_id"
)

// unprefixed columns keep their names when a table prefix is applied.
var unprefixed = map[string]bool{
	"player_key":   true,
	"team_key":     true,
	"player_id":    true,
	"team_id":      true,
	"year_id":      true,
	"school_id":    true,
	"franchise_id": true,
	"division_id":  true,
}

type tableSpec struct {
	prefix string
	key    string
	final  []string
	ints   []string
	floats []string
	sums   []string
}

var positionColumns = []string{
	"games_pitcher",
	"games_catcher",
	"games_first_base",
	"games_second_base",
	"games_third_base",
	"games_shortstop",
	"games_left_field",
	"games_center_field",
	"games_right_field",
	"games_designated_hitter",
	"games_pinch_hitter",
	"games_pinch_runner",
}

var positionNames = map[string]string{
	"games_pitcher":           "Pitcher",
	"games_catcher":           "Catcher",
	"games_first_base":        "First Base",
	"games_second_base":       "Second Base",
	"games_third_base":        "Third Base",
	"games_shortstop":         "Shortstop",
	"games_left_field":        "Left Field",
	"games_center_field":      "Center Field",
	"games_right_field":       "Right Field",
	"games_designated_hitter": "Designated Hitter",
	"games_pinch_hitter":      "Pinch Hitter",
	"games_pinch_runner":      "Pinch Runner",
}

var appearanceInts = []string{
	"total_games",
	"games_started",
	"games_batting",
	"games_defense",
	"games_pitcher",
	"games_catcher",
	"games_first_base",
	"games_second_base",
	"games_third_base",
	"games_shortstop",
	"games_left_field",
	"games_center_field",
	"games_right_field",
	"games_outfield",
	"games_designated_hitter",
	"games_pinch_hitter",
	"games_pinch_runner",
}

var teamSeriesColumns = []string{
	"team_division_series",
	"team_wild_card_series",
	"team_league_series",
	"team_world_series",
}

func battingStats(prefix string) []string {
	base := []string{
		"games_played", "at_bats", "runs", "hits", "doubles", "triples",
		"home_runs", "runs_batted_in", "stolen_bases", "caught_stealing",
		"base_on_balls", "strikeouts", "intentional_walks", "hit_by_pitch",
		"sacrifice_hits", "sacrifice_flies", "grounded_into_double_plays",
	}
	return prefixed(prefix, base)
}

var fieldingStats = prefixed("fielding_", []string{
	"games_played", "outs_played", "putouts", "assists", "errors",
	"double_plays", "passed_balls", "wild_pitches", "opp_stolen_bases",
	"opp_caught_stealing", "zone_rating",
})

var fieldingPostStats = prefixed("fielding_post_", []string{
	"games_played", "games_started", "outs_played", "putouts", "assists",
	"errors", "double_plays", "triple_plays", "passed_balls",
	"opp_stolen_bases", "opp_caught_stealing",
})

func prefixed(prefix string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return out
}

func withKey(key string, cols []string) []string {
	return append([]string{key}, cols...)
}

var specs = map[DataType]tableSpec{
	AllStar: {
		prefix: "allstar_",
		key:    keyPlayer,
		final:  []string{keyPlayer, "allstar_flag"},
	},
	Appearances: {
		key: colPlayer,
		final: append([]string{
			colPlayer, colYear, colTeam, "league_id", "primary_position",
		}, appearanceInts...),
		ints: appearanceInts,
	},
	Awards: {
		prefix: "awards_",
		key:    keyPlayer,
		final:  []string{keyPlayer, "mvp_award", "rookie_oty_award"},
	},
	College: {
		prefix: "college_",
		key:    colPlayer,
		final:  []string{colPlayer, "college_play_flag", "college_years_played", "college_name", "college_multiple"},
		ints:   []string{"college_years_played"},
	},
	HallOfFame: {
		key:   colPlayer,
		final: []string{colPlayer, "hall_of_fame"},
	},
	Managers: {
		key:   keyTeam,
		final: []string{keyTeam, "manager_name", "manager_multiple"},
	},
	People: {
		key: colPlayer,
		final: []string{
			colPlayer, "full_name", "first_name", "last_name", "weight", "height",
			"batting_hand", "throwing_hand", "debut_date", "final_game",
			"birth_country", "birth_state", "birth_city", "birth_date",
		},
		floats: []string{"weight", "height"},
	},
	Salaries: {
		key:   keyPlayer,
		final: []string{keyPlayer, "salary"},
		ints:  []string{"salary"},
	},
	Teams: {
		prefix: "team_",
		key:    keyTeam,
		final: append([]string{
			keyTeam, "franchise_id", "division_id", "team_name", "franchise_name",
			"franchise_active", "team_home_park_name", "team_home_park_attendance",
			"team_home_park_factor_batter", "team_rank",
		}, teamSeriesColumns...),
		ints: []string{"team_home_park_attendance", "team_home_park_factor_batter", "team_rank"},
	},
	Batting: {
		prefix: "batting_",
		key:    keyPlayer,
		final:  withKey(keyPlayer, battingStats("batting_")),
		ints:   battingStats("batting_"),
		sums:   battingStats("batting_"),
	},
	Fielding: {
		prefix: "fielding_",
		key:    keyPlayer,
		final:  withKey(keyPlayer, fieldingStats),
		ints:   fieldingStats,
		sums:   fieldingStats,
	},
	BattingPost: {
		prefix: "batting_post_",
		key:    keyPlayer,
		final:  withKey(keyPlayer, battingStats("batting_post_")),
		ints:   battingStats("batting_post_"),
		sums:   battingStats("batting_post_"),
	},
	FieldingPost: {
		prefix: "fielding_post_",
		key:    keyPlayer,
		final:  withKey(keyPlayer, fieldingPostStats),
		ints:   fieldingPostStats,
		sums:   fieldingPostStats,
	},
}

func specFor(d DataType) (tableSpec, error) {
	s, ok := specs[d]
	if !ok {
		return tableSpec{}, errors.Wrapf(ErrUnknownDataType, "%q", string(d))
	}
	return s, nil
}

// KeyColumn is the column a processed table is sorted and joined on.
func KeyColumn(d DataType) string { return specs[d].key }

// FinalColumns is the fixed output column list of a processed table.
func FinalColumns(d DataType) []string { return append([]string(nil), specs[d].final...) }

// IntColumns across every table, in DataTypes order.
func IntColumns() []string {
	var out []string
	for _, d := range DataTypes {
		out = append(out, specs[d].ints...)
	}
	return out
}

// FloatColumns across every table, in DataTypes order.
func FloatColumns() []string {
	var out []string
	for _, d := range DataTypes {
		out = append(out, specs[d].floats...)
	}
	return out
}
