package frame

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const battingCSV = `playerID,yearID,teamID,AB,avg,flag
aaronha01,1954,ML1,468,0.28,true
aaronha01,1954,ML1,,0.3,false
abadfe01,1955,ATL,10,,TRUE
`

func TestReadCSVInfersColumnTypes(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(battingCSV))
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())

	assert.Equal(t, "aaronha01", f.Value(0, "playerID"))
	assert.Equal(t, int64(1954), f.Value(0, "yearID"))
	assert.Equal(t, int64(468), f.Value(0, "AB"))
	assert.Nil(t, f.Value(1, "AB"))
	assert.Equal(t, 0.28, f.Value(0, "avg"))
	assert.Nil(t, f.Value(2, "avg"))
	assert.Equal(t, true, f.Value(2, "flag"))
}

func TestLoadCSVForcesExtension(t *testing.T) {
	fsys := fstest.MapFS{"Batting.csv": {Data: []byte(battingCSV)}}
	f, err := LoadCSV(fsys, "Batting")
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	_, err = LoadCSV(fsys, "People.txt")
	require.Error(t, err)
	assert.Equal(t, "People.csv", ForceExtension("People.txt", ".csv"))
}

func TestRenameSelectDrop(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(battingCSV))
	require.NoError(t, err)

	f = f.LowerHeaders().Rename(map[string]string{"playerid": "player_id", "ab": "at_bats"})
	assert.Equal(t, []string{"player_id", "yearid", "teamid", "at_bats", "avg", "flag"}, f.Columns())

	s, err := f.Select("at_bats", "player_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"at_bats", "player_id"}, s.Columns())

	_, err = f.Select("nope")
	assert.True(t, errors.Is(err, ErrMissingColumn))

	d := f.Drop("avg", "flag", "ghost")
	assert.Equal(t, []string{"player_id", "yearid", "teamid", "at_bats"}, d.Columns())
}

func TestInsertAndWith(t *testing.T) {
	f := FromRows([]string{"a", "b"}, [][]any{{int64(1), "x"}, {int64(2), "y"}})
	g := f.Insert(0, "k", func(r Row) any { return r.String("b") + "-" + r.String("a") })
	assert.Equal(t, []string{"k", "a", "b"}, g.Columns())
	assert.Equal(t, "y-2", g.Value(1, "k"))
	// receiver untouched
	assert.Equal(t, []string{"a", "b"}, f.Columns())

	h := g.With("k", func(Row) any { return true })
	assert.Equal(t, []string{"k", "a", "b"}, h.Columns())
	assert.Equal(t, true, h.Value(0, "k"))
}

func TestSortByAndDropDuplicates(t *testing.T) {
	f := FromRows([]string{"k", "v"}, [][]any{
		{"b", int64(2)},
		{nil, int64(9)},
		{"a", int64(1)},
		{"b", int64(2)},
		{"b", int64(3)},
	})
	s, err := f.SortBy("k")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "b", "b", nil}, s.Column("k"))
	assert.Equal(t, []any{int64(1), int64(2), int64(2), int64(3), int64(9)}, s.Column("v"))

	d, err := s.DropDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 4, d.Len())

	d, err = s.DropDuplicates("k")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(9)}, d.Column("v"))
}

func TestLeftJoinSuffixesAndFanOut(t *testing.T) {
	left := FromRows([]string{"id", "name"}, [][]any{
		{"p1", "left1"},
		{"p2", "left2"},
		{nil, "orphan"},
	})
	right := FromRows([]string{"id", "name", "hr"}, [][]any{
		{"p1", "r1", int64(10)},
		{"p1", "r1b", int64(11)},
	})
	j, err := left.LeftJoin(right, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name_x", "name_y", "hr"}, j.Columns())
	require.Equal(t, 4, j.Len())
	assert.Equal(t, []any{int64(10), int64(11), nil, nil}, j.Column("hr"))
	assert.Equal(t, "orphan", j.Value(3, "name_x"))

	_, err = left.LeftJoin(right, "missing")
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestGroupByAggregations(t *testing.T) {
	f := FromRows([]string{"k", "n", "x", "flag"}, [][]any{
		{"b", int64(1), 1.5, false},
		{"a", int64(2), nil, true},
		{"b", nil, 2.5, false},
		{nil, int64(100), 0.0, true},
	})
	g, err := f.GroupBy("k",
		Agg{Column: "n", Fn: Sum},
		Agg{Column: "x", As: "x_mean", Fn: Mean},
		Agg{Column: "flag", Fn: Max},
		Agg{As: "size", Fn: Size},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "n", "x_mean", "flag", "size"}, g.Columns())
	assert.Equal(t, []any{"a", "b"}, g.Column("k"))
	assert.Equal(t, []any{int64(2), int64(1)}, g.Column("n"))
	assert.Equal(t, []any{nil, 2.0}, g.Column("x_mean"))
	assert.Equal(t, []any{true, false}, g.Column("flag"))
	assert.Equal(t, []any{int64(1), int64(2)}, g.Column("size"))
}

func TestValueCounts(t *testing.T) {
	f := FromRows([]string{"pos"}, [][]any{{"C"}, {"P"}, {"P"}, {"1B"}, {"P"}, {"C"}})
	vc, err := f.ValueCounts("pos")
	require.NoError(t, err)
	assert.Equal(t, []any{"P", "C", "1B"}, vc.Column("pos"))
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, vc.Column("count"))
}

func TestCasts(t *testing.T) {
	f := FromRows([]string{"i", "f", "d"}, [][]any{
		{2.5, int64(3), "2004-04-06"},
		{3.5, "1.25", "not a date"},
		{nil, nil, nil},
	})
	i, err := f.CastInt("i", "absent")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(4), nil}, i.Column("i"))

	fl, err := f.CastFloat("f")
	require.NoError(t, err)
	assert.Equal(t, []any{3.0, 1.25, nil}, fl.Column("f"))

	d := f.CastDate("d")
	assert.Equal(t, time.Date(2004, 4, 6, 0, 0, 0, 0, time.UTC), d.Value(0, "d"))
	assert.Nil(t, d.Value(1, "d"))

	bad := FromRows([]string{"i"}, [][]any{{"abc"}})
	_, err = bad.CastInt("i")
	assert.True(t, errors.Is(err, ErrCast))
}

func TestFillNAAndNAToFalse(t *testing.T) {
	f := FromRows([]string{"a", "b"}, [][]any{{nil, nil}, {int64(3), true}, {int64(0), "x"}})
	assert.Equal(t, []any{int64(0), int64(3), int64(0)}, f.FillNA(int64(0), "a").Column("a"))
	assert.Equal(t, []any{false, true, true}, f.NAToFalse("b").Column("b"))
	assert.Equal(t, []any{false, true, false}, f.NAToFalse("a").Column("a"))
}

func TestWriteCSVFormatsCells(t *testing.T) {
	f := FromRows([]string{"s", "i", "f", "b", "d", "n"}, [][]any{
		{"x,y", int64(7), 0.5, true, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), nil},
	})
	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, "s,i,f,b,d,n\n\"x,y\",7,0.5,true,1990-01-02,\n", buf.String())
}

func TestHeadTail(t *testing.T) {
	f := FromRows([]string{"n"}, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})
	assert.Equal(t, []any{int64(1), int64(2)}, f.Head(2).Column("n"))
	assert.Equal(t, []any{int64(2), int64(3)}, f.Tail(2).Column("n"))
	assert.Equal(t, 3, f.Tail(10).Len())
}

func TestColumnsContaining(t *testing.T) {
	f := FromRows([]string{"name", "team", "n"}, [][]any{
		{"Hank Aaron", "ML1", int64(44)},
		{"Ernie Banks", nil, int64(14)},
	})
	assert.Equal(t, []string{"name"}, f.ColumnsContaining("aaron"))
	assert.Equal(t, []string{"n"}, f.ColumnsContaining("14"))
	assert.Empty(t, f.ColumnsContaining("mays"))
}

func TestReadCSVKeepsNonNumericTokensAsText(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("player_id,birth_city\nx01,Nan\nx02,Inf\nx03,infinity\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Nan", "Inf", "infinity"}, f.Column("birth_city"))

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, "player_id,birth_city\nx01,Nan\nx02,Inf\nx03,infinity\n", buf.String())

	n, err := ReadCSV(strings.NewReader("v\n1e3\n-.5\n+2\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{1000.0, -0.5, 2.0}, n.Column("v"))
}

func TestReadCSVHeaderOnly(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.Zero(t, f.Len())
}

func TestDataFrameRoundTrip(t *testing.T) {
	f := FromRows([]string{"lg", "hr", "avg", "ok"}, [][]any{
		{"NA", int64(5), 0.25, true},
		{nil, nil, nil, nil},
	})
	df := f.DataFrame()
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"lg", "hr", "avg", "ok"}, df.Names())

	g, err := FromDataFrame(df)
	require.NoError(t, err)
	assert.Equal(t, f.Rows(), g.Rows())

	_, err = FromDataFrame(df.Select([]string{"ghost"}))
	require.Error(t, err)
}

func TestTimeColumnsSurviveReshaping(t *testing.T) {
	d1 := time.Date(1934, 7, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(1933, 7, 6, 0, 0, 0, 0, time.UTC)
	f := FromRows([]string{"game", "date"}, [][]any{{"b", d1}, {"a", d2}, {"c", nil}})

	s, err := f.SortBy("date")
	require.NoError(t, err)
	assert.Equal(t, []any{d2, d1, nil}, s.Column("date"))

	right := FromRows([]string{"game", "debut"}, [][]any{{"a", d1}})
	j, err := f.LeftJoin(right, "game")
	require.NoError(t, err)
	assert.Equal(t, []any{nil, d1, nil}, j.Column("debut"))
	assert.Equal(t, d1, j.Value(0, "date"))

	g, err := f.GroupBy("game", Agg{Column: "date", Fn: Max})
	require.NoError(t, err)
	assert.Equal(t, []any{d2, d1, nil}, g.Column("date"))
}

func TestGroupByKeepsLiteralNAValues(t *testing.T) {
	f := FromRows([]string{"year", "lg"}, [][]any{
		{int64(1875), "NA"},
		{int64(1875), "NA"},
		{int64(1876), "NL"},
		{1876.0000001, "NL"},
	})
	g, err := f.GroupBy("year", Agg{Column: "lg", Fn: First}, Agg{As: "n", Fn: Size})
	require.NoError(t, err)
	assert.Equal(t, []any{"NA", "NL", "NL"}, g.Column("lg"))
	assert.Equal(t, []any{int64(2), int64(1), int64(1)}, g.Column("n"))
}
