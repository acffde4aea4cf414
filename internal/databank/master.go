package databank

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

// Recorder observes per-table processing. Nil is allowed.
type Recorder interface {
	ObserveTable(table string, rowsIn, rowsOut int, took time.Duration)
}

// Builder assembles the player-season table.
type Builder struct {
	Processor *Processor
	Workers   int
	Recorder  Recorder
	Log       *logging.Logger
}

// Result holds the player-season table and every processed input table.
type Result struct {
	Master *frame.Frame
	Tables map[DataType]*frame.Frame
}

// joinOrder is the fixed sequence tables are left-joined onto the base.
var joinOrder = []DataType{
	AllStar, Awards, College, HallOfFame, Managers, Salaries, Teams,
	Batting, Fielding, BattingPost, FieldingPost,
}

func (b *Builder) logger() *logging.Logger {
	if b.Log == nil {
		return logging.Default()
	}
	return b.Log
}

// ProcessAll processes every data type concurrently. People goes first so
// Managers can reuse it.
func (b *Builder) ProcessAll(ctx context.Context) (map[DataType]*frame.Frame, error) {
	tables := make(map[DataType]*frame.Frame, len(DataTypes))

	people, err := b.process(ctx, People)
	if err != nil {
		return nil, err
	}
	tables[People] = people
	b.Processor.SetPeople(people)

	workers := b.Workers
	if workers < 1 {
		workers = 4
	}
	var mu sync.Mutex
	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)
	for _, d := range DataTypes {
		if d == People {
			continue
		}
		d := d
		p.Go(func(ctx context.Context) error {
			f, err := b.process(ctx, d)
			if err != nil {
				return err
			}
			mu.Lock()
			tables[d] = f
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (b *Builder) process(ctx context.Context, d DataType) (*frame.Frame, error) {
	start := time.Now()
	raw, err := b.Processor.Source.Load(ctx, string(d))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", d)
	}
	f, err := b.Processor.Transform(ctx, d, raw)
	if err != nil {
		return nil, err
	}
	took := time.Since(start)
	if b.Recorder != nil {
		b.Recorder.ObserveTable(string(d), raw.Len(), f.Len(), took)
	}
	b.logger().Info("processed table", "table", string(d), "rows_in", raw.Len(), "rows_out", f.Len(), "took", took)
	return f, nil
}

// Build processes every table and assembles the player-season table.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	tables, err := b.ProcessAll(ctx)
	if err != nil {
		return nil, err
	}
	master, err := Assemble(b.logger(), tables)
	if err != nil {
		return nil, err
	}
	b.logger().Info("player-season table built", "rows", master.Len(), "columns", len(master.Columns()))
	return &Result{Master: master, Tables: tables}, nil
}

// Assemble joins processed tables onto appearances + people and finalises
// the player-season table.
func Assemble(log *logging.Logger, tables map[DataType]*frame.Frame) (*frame.Frame, error) {
	app, ok := tables[Appearances]
	if !ok {
		return nil, errors.Newf("assemble: %s table missing", Appearances)
	}
	people, ok := tables[People]
	if !ok {
		return nil, errors.Newf("assemble: %s table missing", People)
	}

	df, err := app.LeftJoin(people, colPlayer)
	if err != nil {
		return nil, errors.Wrap(err, "join people")
	}
	df = addKey(log, df, keyTeam, colTeam, colYear)
	df = addKey(log, df, keyPlayer, colPlayer, colYear)

	for _, d := range joinOrder {
		t, ok := tables[d]
		if !ok {
			log.Warn("table not available, skipping merge", "table", string(d))
			continue
		}
		key := KeyColumn(d)
		if !df.Has(key) || !t.Has(key) {
			log.Warn("merge column not present in both tables", "table", string(d), "key", key)
			continue
		}
		if df, err = df.LeftJoin(t, key); err != nil {
			return nil, errors.Wrapf(err, "merge %s", d)
		}
	}
	return finalize(log, df)
}

func finalize(log *logging.Logger, df *frame.Frame) (*frame.Frame, error) {
	df = addKey(log, df, keyBB, colPlayer, colTeam, colYear)

	df = df.With("team_postseason_flag", func(r frame.Row) any {
		for _, c := range teamSeriesColumns {
			if frame.Truthy(r.Get(c)) {
				return true
			}
		}
		return false
	})
	df = df.With("player_postseason_flag", func(r frame.Row) any {
		return r.Get("batting_post_games_played") != nil || r.Get("fielding_post_games_played") != nil
	})
	df = df.NAToFalse(FlagColumns...)

	for _, d := range []DataType{BattingPost, FieldingPost} {
		df = df.FillNA(int64(0), specs[d].sums...)
	}

	var err error
	if df, err = df.CastInt(IntColumns()...); err != nil {
		return nil, err
	}
	if df, err = df.CastFloat(FloatColumns()...); err != nil {
		return nil, err
	}
	if df, err = df.Select(MasterColumns...); err != nil {
		return nil, errors.Wrap(err, "project player-season columns")
	}
	if df, err = df.SortBy(keyBB); err != nil {
		return nil, err
	}
	return df.DropDuplicates()
}
