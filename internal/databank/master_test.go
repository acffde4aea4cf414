package databank

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

type countingRecorder struct {
	mu     sync.Mutex
	tables map[string]int
}

func (r *countingRecorder) ObserveTable(table string, _, rowsOut int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables == nil {
		r.tables = map[string]int{}
	}
	r.tables[table] = rowsOut
}

func TestBuildPlayerSeasonTable(t *testing.T) {
	rec := &countingRecorder{}
	b := &Builder{Processor: newTestProcessor(t), Workers: 3, Recorder: rec, Log: logging.NewNop()}

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	m := res.Master

	assert.Equal(t, MasterColumns, m.Columns())
	assert.Len(t, res.Tables, len(DataTypes))
	assert.Len(t, rec.tables, len(DataTypes))

	require.Equal(t, 3, m.Len())
	assert.Equal(t, []any{"aaronha01-ML1-1957", "ruthba01-BOS-1919", "ruthba01-NYA-1920"}, m.Column("bb_key"))

	assert.Equal(t, []any{true, false, false}, m.Column("allstar_flag"))
	assert.Equal(t, []any{true, false, false}, m.Column("mvp_award"))
	assert.Equal(t, []any{false, false, false}, m.Column("rookie_oty_award"))
	assert.Equal(t, []any{true, true, true}, m.Column("hall_of_fame"))
	assert.Equal(t, []any{false, true, true}, m.Column("college_play_flag"))
	assert.Equal(t, []any{true, false, false}, m.Column("team_postseason_flag"))
	assert.Equal(t, []any{true, false, false}, m.Column("player_postseason_flag"))

	assert.Equal(t, []any{"multiple", nil, "Joseph Boss"}, m.Column("manager_name"))
	assert.Equal(t, []any{int64(22500), nil, int64(20000)}, m.Column("salary"))
	assert.Equal(t, []any{int64(44), int64(29), int64(54)}, m.Column("batting_home_runs"))
	assert.Equal(t, []any{int64(3), int64(0), int64(0)}, m.Column("batting_post_home_runs"))
	assert.Equal(t, []any{int64(7), int64(0), int64(0)}, m.Column("fielding_post_games_played"))
	assert.Equal(t, []any{"Atlanta Braves", "Boston Red Sox", "New York Yankees"}, m.Column("franchise_name"))
	assert.Equal(t, "Henry Louis Aaron", m.Value(0, "full_name"))
	assert.Equal(t, 180.0, m.Value(0, "weight"))
}

func TestBuildFlagsNeverMissing(t *testing.T) {
	b := &Builder{Processor: newTestProcessor(t), Log: logging.NewNop()}
	res, err := b.Build(context.Background())
	require.NoError(t, err)

	for _, c := range FlagColumns {
		for i, v := range res.Master.Column(c) {
			_, ok := v.(bool)
			assert.Truef(t, ok, "%s row %d is %v", c, i, v)
		}
	}
	keys := map[any]bool{}
	for _, k := range res.Master.Column("bb_key") {
		assert.False(t, keys[k], "duplicate key %v", k)
		keys[k] = true
	}
}

func TestAssembleSkipsTablesWithoutJoinKey(t *testing.T) {
	b := &Builder{Processor: newTestProcessor(t), Log: logging.NewNop()}
	tables, err := b.ProcessAll(context.Background())
	require.NoError(t, err)

	tables[HallOfFame] = tables[HallOfFame].Rename(map[string]string{"player_id": "pid"})
	_, err = Assemble(logging.NewNop(), tables)
	// skipped merge leaves hall_of_fame absent from the projection
	assert.ErrorIs(t, err, frame.ErrMissingColumn)

	delete(tables, Appearances)
	_, err = Assemble(logging.NewNop(), tables)
	assert.Error(t, err)
}

func TestNumericalAndCategoricalSubsets(t *testing.T) {
	b := &Builder{Processor: newTestProcessor(t), Log: logging.NewNop()}
	res, err := b.Build(context.Background())
	require.NoError(t, err)

	num, err := Numerical(res.Master)
	require.NoError(t, err)
	assert.Equal(t, NumericalColumns, num.Columns())
	assert.NotContains(t, NumericalColumns, "fielding_post_opp_caught_stealing")

	cat, err := Categorical(res.Master)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, "manager_name", cat.Columns()[len(cat.Columns())-1])
}

func TestReadMasterRestoresTypes(t *testing.T) {
	b := &Builder{Processor: newTestProcessor(t), Log: logging.NewNop()}
	res, err := b.Build(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.Master.WriteCSV(&buf))

	m, err := ReadMaster(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Master.Column("bb_key"), m.Column("bb_key"))
	assert.Equal(t, res.Master.Column("salary"), m.Column("salary"))
	assert.Equal(t, 180.0, m.Value(0, "weight"))
	assert.Equal(t, []any{true, false, false}, m.Column("allstar_flag"))
	birth, ok := m.Value(0, "birth_date").(time.Time)
	require.True(t, ok)
	assert.Equal(t, "1934-02-05", birth.Format("2006-01-02"))

	_, err = ReadMaster(strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}
