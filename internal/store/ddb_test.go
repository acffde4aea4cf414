package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// fake client implementing DynamoDBAPI
type fakeDDB struct {
	calls int
	// first attempt echoes every request back as unprocessed
	failFirst bool
	items     []map[string]types.AttributeValue
	pageSize  int
}

func (f *fakeDDB) BatchWriteItem(ctx context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	f.calls++
	if f.failFirst {
		f.failFirst = false
		return &ddb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	for _, reqs := range in.RequestItems {
		for _, r := range reqs {
			f.items = append(f.items, r.PutRequest.Item)
		}
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (f *fakeDDB) Query(ctx context.Context, in *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	year := in.ExpressionAttributeValues[":y"].(*types.AttributeValueMemberS).Value
	var match []map[string]types.AttributeValue
	for _, it := range f.items {
		if it[AttrYear].(*types.AttributeValueMemberS).Value == year {
			match = append(match, it)
		}
	}
	start := 0
	if in.ExclusiveStartKey != nil {
		fmt.Sscanf(in.ExclusiveStartKey["offset"].(*types.AttributeValueMemberN).Value, "%d", &start)
	}
	end := start + f.pageSize
	if f.pageSize == 0 || end > len(match) {
		end = len(match)
	}
	out := &ddb.QueryOutput{Items: match[start:end]}
	if end < len(match) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"offset": &types.AttributeValueMemberN{Value: fmt.Sprint(end)},
		}
	}
	return out, nil
}

func seasons(n int) *frame.Frame {
	f := frame.New("player_id", "team_id", "year_id", "full_name", "allstar_flag", "salary")
	for i := 0; i < n; i++ {
		f.AppendRow(fmt.Sprintf("p%02d", i), "NYA", int64(1927), fmt.Sprintf("Player %02d", i), i%2 == 0, nil)
	}
	return f
}

func TestPutPlayerSeasons_BatchingAndRetry(t *testing.T) {
	// 30 rows → 25 + 5 batches
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fc := &fakeDDB{failFirst: true}
	n, err := PutPlayerSeasons(ctx, fc, "tbl", seasons(30))
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	// first batch is attempted twice, second once
	assert.Equal(t, 3, fc.calls)
	require.Len(t, fc.items, 30)

	it := fc.items[0]
	assert.Equal(t, "1927", it[AttrYear].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "p00#NYA", it[AttrSortKey].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "1927", it["year_id"].(*types.AttributeValueMemberN).Value)
	assert.True(t, it["allstar_flag"].(*types.AttributeValueMemberBOOL).Value)
	assert.NotContains(t, it, "salary")
}

func TestPutPlayerSeasons_SkipsIncompleteAndDuplicateKeys(t *testing.T) {
	f := seasons(2)
	f.AppendRow("p00", "NYA", int64(1927), "again", false, nil)
	f.AppendRow(nil, "NYA", int64(1927), "nobody", false, nil)

	fc := &fakeDDB{}
	n, err := PutPlayerSeasons(context.Background(), fc, "tbl", f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, fc.calls)
}

func TestPutPlayerSeasons_RequiresKeyColumns(t *testing.T) {
	f := frame.FromRows([]string{"player_id"}, [][]any{{"p"}})
	_, err := PutPlayerSeasons(context.Background(), &fakeDDB{}, "tbl", f)
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}

type stuckDDB struct{ fakeDDB }

func (s *stuckDDB) BatchWriteItem(ctx context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	return &ddb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
}

func TestPutPlayerSeasons_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := PutPlayerSeasons(ctx, &stuckDDB{}, "tbl", seasons(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadSeasonPaginates(t *testing.T) {
	fc := &fakeDDB{pageSize: 4}
	_, err := PutPlayerSeasons(context.Background(), fc, "tbl", seasons(10))
	require.NoError(t, err)

	f, err := LoadSeason(context.Background(), fc, "tbl", 1927, "player_id", "full_name", "allstar_flag", "year_id")
	require.NoError(t, err)
	require.Equal(t, 10, f.Len())
	assert.Equal(t, "p03", f.Value(3, "player_id"))
	assert.Equal(t, false, f.Value(3, "allstar_flag"))
	assert.Equal(t, int64(1927), f.Value(3, "year_id"))

	f, err = LoadSeason(context.Background(), fc, "tbl", 1928)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestLoadSeasonUnionColumns(t *testing.T) {
	fc := &fakeDDB{items: []map[string]types.AttributeValue{
		{AttrYear: &types.AttributeValueMemberS{Value: "1957"}, "b": &types.AttributeValueMemberN{Value: "0.5"}},
		{AttrYear: &types.AttributeValueMemberS{Value: "1957"}, "a": &types.AttributeValueMemberS{Value: "x"}},
	}}
	f, err := LoadSeason(context.Background(), fc, "tbl", 1957)
	require.NoError(t, err)
	assert.Equal(t, []string{AttrYear, "a", "b"}, f.Columns())
	assert.Equal(t, 0.5, f.Value(0, "b"))
	assert.Nil(t, f.Value(0, "a"))
}
