package store

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// Player-season items: PK=YearID (S), SK=PlayerID#TeamID (S).
const (
	AttrYear      = "YearID"
	AttrSortKey   = "SK"
	AttrUpdatedAt = "UpdatedAt"
)

var ErrUnprocessed = errors.New("unprocessed items remained after retries")

type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// PutPlayerSeasons writes every master row with a player, team and year.
// Rows repeating a key already written in the same call are skipped.
// It returns the number of items written.
func PutPlayerSeasons(ctx context.Context, ddb DynamoDBAPI, table string, f *frame.Frame) (int, error) {
	if f.Len() == 0 {
		return 0, nil
	}
	if missing := f.Missing("player_id", "team_id", "year_id"); len(missing) > 0 {
		return 0, errors.Wrapf(frame.ErrMissingColumn, "dynamodb items need %s", strings.Join(missing, ", "))
	}
	const maxBatch = 25
	now := strconv.FormatInt(time.Now().Unix(), 10)
	cols := f.Columns()
	seen := make(map[string]struct{}, f.Len())

	var (
		reqs    []types.WriteRequest
		written int
	)
	flush := func() error {
		if len(reqs) == 0 {
			return nil
		}
		if err := batchWriteWithRetry(ctx, ddb, table, reqs); err != nil {
			return errors.Wrap(err, "batch write player seasons")
		}
		written += len(reqs)
		reqs = nil
		return nil
	}

	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		player, team, year := r.String("player_id"), r.String("team_id"), r.String("year_id")
		if player == "" || team == "" || year == "" {
			continue
		}
		sk := player + "#" + team
		if _, dup := seen[year+"#"+sk]; dup {
			continue
		}
		seen[year+"#"+sk] = struct{}{}

		item := map[string]types.AttributeValue{
			AttrYear:      &types.AttributeValueMemberS{Value: year},
			AttrSortKey:   &types.AttributeValueMemberS{Value: sk},
			AttrUpdatedAt: &types.AttributeValueMemberN{Value: now},
		}
		for _, c := range cols {
			if av := attributeValue(r.Get(c)); av != nil {
				item[c] = av
			}
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		if len(reqs) == maxBatch {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	return written, flush()
}

func attributeValue(v any) types.AttributeValue {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'f', -1, 64)}
	default:
		s := frame.Format(v)
		if s == "" {
			return nil
		}
		return &types.AttributeValueMemberS{Value: s}
	}
}

func batchWriteWithRetry(ctx context.Context, ddb DynamoDBAPI, table string, reqs []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: reqs},
	}
	const maxAttempts = 6
	backoff := 120 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := ddb.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input.RequestItems = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff += 120 * time.Millisecond
		}
	}
	return errors.Wrapf(ErrUnprocessed, "table %s", table)
}

// LoadSeason reads every item of a season partition back into a frame.
// When cols is empty the columns are the sorted union of attribute names.
func LoadSeason(ctx context.Context, ddb DynamoDBAPI, table string, year int, cols ...string) (*frame.Frame, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("#Y = :y"),
		ExpressionAttributeNames:  map[string]string{"#Y": AttrYear},
		ExpressionAttributeValues: map[string]types.AttributeValue{":y": &types.AttributeValueMemberS{Value: strconv.Itoa(year)}},
	}
	if len(cols) > 0 {
		proj := make([]string, len(cols))
		for i, c := range cols {
			alias := "#c" + strconv.Itoa(i)
			in.ExpressionAttributeNames[alias] = c
			proj[i] = alias
		}
		in.ProjectionExpression = aws.String(strings.Join(proj, ", "))
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := ddb.Query(ctx, in)
		if err != nil {
			return nil, errors.Wrapf(err, "query %s year=%d", table, year)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	if len(cols) == 0 {
		set := map[string]struct{}{}
		for _, it := range items {
			for k := range it {
				set[k] = struct{}{}
			}
		}
		for k := range set {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}
	rows := make([][]any, len(items))
	for r, it := range items {
		vals := make([]any, len(cols))
		for i, c := range cols {
			vals[i] = fromAttribute(it[c])
		}
		rows[r] = vals
	}
	return frame.FromRows(cols, rows), nil
}

func fromAttribute(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
			return n
		}
		if x, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return x
		}
		return v.Value
	default:
		return nil
	}
}
