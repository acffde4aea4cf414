package databank

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

func process(t *testing.T, p *Processor, d DataType) *frame.Frame {
	t.Helper()
	f, err := p.Process(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, FinalColumns(d), f.Columns())
	return f
}

func TestProcessAllStarDedupesAndFlags(t *testing.T) {
	f := process(t, newTestProcessor(t), AllStar)
	require.Equal(t, 1, f.Len())
	assert.Equal(t, "aaronha01-1957", f.Value(0, "player_key"))
	assert.Equal(t, true, f.Value(0, "allstar_flag"))
}

func TestProcessAppearancesPrimaryPosition(t *testing.T) {
	f := process(t, newTestProcessor(t), Appearances)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, []any{"aaronha01", "ruthba01", "ruthba01"}, f.Column("player_id"))
	// ties resolve to the first position in fixed order
	assert.Equal(t, []any{"ML1", "BOS", "NYA"}, f.Column("team_id"))
	assert.Equal(t, []any{"Right Field", "Pitcher", "Left Field"}, f.Column("primary_position"))
	assert.Equal(t, int64(0), f.Value(1, "games_pinch_runner"))
	assert.Nil(t, f.Value(1, "games_started"))
}

func TestProcessAppearancesExcludePitchers(t *testing.T) {
	p := newTestProcessor(t)
	p.ExcludePitchers = true
	f := process(t, p, Appearances)
	assert.Equal(t, 2, f.Len())
	assert.NotContains(t, f.Column("primary_position"), "Pitcher")
}

func TestProcessAwards(t *testing.T) {
	f := process(t, newTestProcessor(t), Awards)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"aaronha01-1957", "ruthba01-1914"}, f.Column("player_key"))
	assert.Equal(t, []any{true, false}, f.Column("mvp_award"))
	assert.Equal(t, []any{false, true}, f.Column("rookie_oty_award"))
}

func TestProcessCollege(t *testing.T) {
	f := process(t, newTestProcessor(t), College)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"mgr01", "ruthba01"}, f.Column("player_id"))
	assert.Equal(t, []any{int64(1), int64(3)}, f.Column("college_years_played"))
	assert.Equal(t, []any{"nyu", "multiple"}, f.Column("college_name"))
	assert.Equal(t, []any{nil, "stmarys | baltimore"}, f.Column("college_multiple"))
	assert.Equal(t, []any{true, true}, f.Column("college_play_flag"))
}

func TestProcessHallOfFameKeepsInductedPlayers(t *testing.T) {
	f := process(t, newTestProcessor(t), HallOfFame)
	assert.Equal(t, []any{"aaronha01", "ruthba01"}, f.Column("player_id"))
}

func TestProcessManagers(t *testing.T) {
	f := process(t, newTestProcessor(t), Managers)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, []any{"ML1-1957", "NYA-1920"}, f.Column("team_key"))
	assert.Equal(t, []any{"multiple", "Joseph Boss"}, f.Column("manager_name"))
	assert.Equal(t, []any{"Joseph Boss | Samuel Skip", nil}, f.Column("manager_multiple"))
}

func TestProcessPeople(t *testing.T) {
	f := process(t, newTestProcessor(t), People)
	require.Equal(t, 4, f.Len())
	assert.Equal(t, "Henry Louis Aaron", f.Value(0, "full_name"))
	assert.Equal(t, time.Date(1934, 2, 5, 0, 0, 0, 0, time.UTC), f.Value(0, "birth_date"))
	assert.Equal(t, time.Date(1954, 4, 13, 0, 0, 0, 0, time.UTC), f.Value(0, "debut_date"))
	assert.Equal(t, 180.0, f.Value(0, "weight"))

	// mgr01: missing birth month, bad debut; mgr02: Feb 30
	assert.Nil(t, f.Value(1, "birth_date"))
	assert.Nil(t, f.Value(1, "debut_date"))
	assert.Nil(t, f.Value(2, "birth_date"))
}

func TestProcessSalariesRoundsMeanHalfEven(t *testing.T) {
	f := process(t, newTestProcessor(t), Salaries)
	assert.Equal(t, []any{"aaronha01-1957", "ruthba01-1920"}, f.Column("player_key"))
	assert.Equal(t, []any{int64(22500), int64(20000)}, f.Column("salary"))
}

func TestProcessTeams(t *testing.T) {
	f := process(t, newTestProcessor(t), Teams)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, []any{"BOS-1919", "ML1-1957", "NYA-1920"}, f.Column("team_key"))
	assert.Equal(t, "Atlanta Braves", f.Value(1, "franchise_name"))
	assert.Equal(t, "Milwaukee Braves", f.Value(1, "team_name"))
	assert.Equal(t, int64(2215404), f.Value(1, "team_home_park_attendance"))
	assert.Equal(t, []any{false, true, false}, f.Column("team_world_series"))
	assert.Equal(t, []any{false, false, false}, f.Column("team_division_series"))
}

func TestProcessBattingSumsStints(t *testing.T) {
	f := process(t, newTestProcessor(t), Batting)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, "aaronha01-1957", f.Value(0, "player_key"))
	assert.Equal(t, int64(152), f.Value(0, "batting_games_played"))
	assert.Equal(t, int64(44), f.Value(0, "batting_home_runs"))
	// all-missing columns sum to zero
	assert.Equal(t, int64(0), f.Value(1, "batting_intentional_walks"))
}

func TestProcessFieldingSumsPositions(t *testing.T) {
	f := process(t, newTestProcessor(t), Fielding)
	assert.Equal(t, []any{"aaronha01-1957", "ruthba01-1919", "ruthba01-1920"}, f.Column("player_key"))
	assert.Equal(t, int64(128), f.Value(1, "fielding_games_played"))
	assert.Equal(t, int64(0), f.Value(1, "fielding_zone_rating"))
}

func TestProcessUnknownDataType(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Transform(context.Background(), TeamsFranchises, frame.New("a"))
	assert.ErrorIs(t, err, ErrUnknownDataType)
}

func TestProcessWithoutYearLeavesKeyUnbuilt(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProcessor(t)
	p.Log = logging.NewWriter(&buf, logging.LevelWarn)

	raw := frame.FromRows([]string{"playerID", "gameNum", "teamID", "lgID"}, [][]any{
		{"aaronha01", int64(0), "ML1", "NL"},
	})
	_, err := p.Transform(context.Background(), AllStar, raw)
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
	assert.Contains(t, buf.String(), "cannot build key")
	assert.Contains(t, buf.String(), `"key":"player_key"`)
}

func TestProcessMissingSource(t *testing.T) {
	fsys := fixtureFS()
	delete(fsys, "Batting.csv")
	p := &Processor{Source: FSSource{FS: fsys}, Headers: testHeaders(t)}
	_, err := p.Process(context.Background(), Batting)
	assert.Error(t, err)
}
