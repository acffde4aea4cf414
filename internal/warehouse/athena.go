package warehouse

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/logging"
)

var (
	ErrQueryFailed    = errors.New("athena query failed")
	ErrQueryCancelled = errors.New("athena query cancelled")
)

// AthenaAPI is the subset of the Athena client the runner needs.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

type Runner struct {
	Client    AthenaAPI
	Workgroup string
	Database  string
	OutputS3  string // s3://bucket/prefix/
	Log       *logging.Logger
	// PollInterval defaults to one second.
	PollInterval time.Duration
}

func (r *Runner) logger() *logging.Logger {
	if r.Log == nil {
		return logging.Default()
	}
	return r.Log
}

func (r *Runner) ExecAndWait(ctx context.Context, sql string) (*types.QueryExecution, error) {
	in := &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(r.Database),
		},
		WorkGroup: aws.String(r.Workgroup),
	}
	if r.OutputS3 != "" {
		in.ResultConfiguration = &types.ResultConfiguration{OutputLocation: aws.String(r.OutputS3)}
	}
	startOut, err := r.Client.StartQueryExecution(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "start query")
	}
	qid := aws.ToString(startOut.QueryExecutionId)
	log := r.logger().With("qid", qid)
	log.Debug("athena query started")

	every := r.PollInterval
	if every <= 0 {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
			ge, err := r.Client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
				QueryExecutionId: aws.String(qid),
			})
			if err != nil {
				return nil, errors.Wrap(err, "get query execution")
			}
			qe := ge.QueryExecution
			switch qe.Status.State {
			case types.QueryExecutionStateSucceeded:
				if stats := qe.Statistics; stats != nil {
					var scannedMB, execSec float64
					if stats.DataScannedInBytes != nil {
						scannedMB = float64(*stats.DataScannedInBytes) / 1024.0 / 1024.0
					}
					if stats.EngineExecutionTimeInMillis != nil {
						execSec = float64(*stats.EngineExecutionTimeInMillis) / 1000.0
					}
					log.Info("athena query succeeded", "scanned_mb", scannedMB, "exec_seconds", execSec)
				}
				return qe, nil
			case types.QueryExecutionStateFailed:
				return nil, errors.Wrapf(ErrQueryFailed, "qid=%s: %s", qid, aws.ToString(qe.Status.StateChangeReason))
			case types.QueryExecutionStateCancelled:
				return nil, errors.Wrapf(ErrQueryCancelled, "qid=%s", qid)
			default:
				// still running
			}
		}
	}
}

// QueryRows runs sql and returns the header and every data row in order.
func (r *Runner) QueryRows(ctx context.Context, sql string) ([]string, [][]string, error) {
	exec, err := r.ExecAndWait(ctx, sql)
	if err != nil {
		return nil, nil, err
	}
	var (
		header []string
		out    [][]string
		token  *string
	)
	for {
		gr, err := r.Client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
			QueryExecutionId: exec.QueryExecutionId,
			NextToken:        token,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "get results")
		}
		for _, row := range gr.ResultSet.Rows {
			vals := make([]string, len(row.Data))
			for i, d := range row.Data {
				vals[i] = aws.ToString(d.VarCharValue)
			}
			if header == nil {
				header = vals
				continue
			}
			out = append(out, vals)
		}
		if gr.NextToken == nil {
			return header, out, nil
		}
		token = gr.NextToken
	}
}

// Query runs sql and returns every result row keyed by column label.
func (r *Runner) Query(ctx context.Context, sql string) ([]map[string]string, error) {
	header, rows, err := r.QueryRows(ctx, sql)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(rows))
	for _, vals := range rows {
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(vals) {
				rec[h] = vals[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// CountRows returns SELECT COUNT(*) for a qualified table.
func (r *Runner) CountRows(ctx context.Context, table string) (int64, error) {
	recs, err := r.Query(ctx, "SELECT COUNT(*) AS c FROM "+table)
	if err != nil {
		return 0, err
	}
	if len(recs) != 1 {
		return 0, errors.Newf("unexpected COUNT(*) result shape: %d rows", len(recs))
	}
	n, err := strconv.ParseInt(recs[0]["c"], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse count")
	}
	return n, nil
}

// Recreate drops (best effort) and re-creates a table from DDL.
func (r *Runner) Recreate(ctx context.Context, drop, create string) error {
	if _, err := r.ExecAndWait(ctx, drop); err != nil {
		r.logger().Warn("drop table failed", "error", err)
	}
	if _, err := r.ExecAndWait(ctx, create); err != nil {
		return errors.Wrap(err, "create table")
	}
	return nil
}
