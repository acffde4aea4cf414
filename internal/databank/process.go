package databank

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

const multiple = "multiple"

// Processor turns one raw databank table into its cleaned, keyed form.
type Processor struct {
	Source          Source
	Headers         Headers
	Log             *logging.Logger
	ExcludePitchers bool

	mu     sync.Mutex
	people *frame.Frame
}

// Process loads d from the source and transforms it.
func (p *Processor) Process(ctx context.Context, d DataType) (*frame.Frame, error) {
	raw, err := p.Source.Load(ctx, string(d))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", d)
	}
	return p.Transform(ctx, d, raw)
}

// Transform runs the rename, prefix, key, per-table, projection, cast,
// sort and dedupe steps on an already loaded table.
func (p *Processor) Transform(ctx context.Context, d DataType, raw *frame.Frame) (*frame.Frame, error) {
	spec, err := specFor(d)
	if err != nil {
		return nil, err
	}
	log := p.logger().With("table", string(d))

	f := raw.LowerHeaders().Rename(p.Headers[string(d)])
	f = addPrefix(f, spec.prefix)
	switch spec.key {
	case keyPlayer:
		f = addKey(log, f, keyPlayer, colPlayer, colYear)
	case keyTeam:
		f = addKey(log, f, keyTeam, colTeam, colYear)
	}

	if f, err = p.processData(ctx, d, spec, f); err != nil {
		return nil, errors.Wrapf(err, "process %s", d)
	}

	if f, err = f.Select(spec.final...); err != nil {
		return nil, errors.Wrapf(err, "project %s", d)
	}
	if f, err = f.CastInt(spec.ints...); err != nil {
		return nil, errors.Wrapf(err, "cast %s", d)
	}
	if f, err = f.CastFloat(spec.floats...); err != nil {
		return nil, errors.Wrapf(err, "cast %s", d)
	}
	if f, err = f.SortBy(spec.key); err != nil {
		return nil, err
	}
	if f, err = f.DropDuplicates(); err != nil {
		return nil, err
	}
	log.Debug("table processed", "rows_in", raw.Len(), "rows_out", f.Len())
	return f, nil
}

func (p *Processor) logger() *logging.Logger {
	if p.Log == nil {
		return logging.Default()
	}
	return p.Log
}

func (p *Processor) processData(ctx context.Context, d DataType, spec tableSpec, f *frame.Frame) (*frame.Frame, error) {
	switch d {
	case AllStar:
		return f.Insert(1, "allstar_flag", func(frame.Row) any { return true }), nil
	case Appearances:
		return p.processAppearances(f)
	case Awards:
		return processAwards(f)
	case College:
		return processCollege(f)
	case HallOfFame:
		return processHallOfFame(f), nil
	case Managers:
		return p.processManagers(ctx, f)
	case People:
		return processPeople(f), nil
	case Salaries:
		return f.GroupBy(keyPlayer, frame.Agg{Column: "salary", Fn: frame.Mean})
	case Teams:
		return p.processTeams(ctx, f)
	case Batting, Fielding, BattingPost, FieldingPost:
		aggs := make([]frame.Agg, len(spec.sums))
		for i, c := range spec.sums {
			aggs[i] = frame.Agg{Column: c, Fn: frame.Sum}
		}
		return f.GroupBy(spec.key, aggs...)
	}
	return f, nil
}

func addPrefix(f *frame.Frame, prefix string) *frame.Frame {
	if prefix == "" {
		return f
	}
	return f.RenameFunc(func(c string) string {
		if unprefixed[c] {
			return c
		}
		return prefix + c
	})
}

// addKey inserts name = parts joined by "-" as the first column. Missing
// parts leave the frame unchanged.
func addKey(log *logging.Logger, f *frame.Frame, name string, parts ...string) *frame.Frame {
	if miss := f.Missing(parts...); len(miss) > 0 {
		log.Warn("cannot build key, columns missing", "key", name, "missing", miss)
		return f
	}
	return f.Insert(0, name, func(r frame.Row) any {
		vals := make([]string, len(parts))
		for i, c := range parts {
			vals[i] = r.String(c)
		}
		return strings.Join(vals, "-")
	})
}

func (p *Processor) processAppearances(f *frame.Frame) (*frame.Frame, error) {
	f = addKey(p.logger(), f, "temp_key", colPlayer, colTeam, colYear)
	f, err := f.SortBy("temp_key")
	if err != nil {
		return nil, err
	}
	if f, err = f.DropDuplicates("temp_key"); err != nil {
		return nil, err
	}
	f = addPrimaryPosition(f.Drop("temp_key"))
	if p.ExcludePitchers && f.Has("primary_position") {
		f = f.Filter(func(r frame.Row) bool { return r.Get("primary_position") != positionNames["games_pitcher"] })
	}
	return f, nil
}

// addPrimaryPosition picks the first position column holding the row's
// largest games count. Missing counts become 0.
func addPrimaryPosition(f *frame.Frame) *frame.Frame {
	if len(f.Missing(positionColumns...)) > 0 {
		return f
	}
	f = f.FillNA(int64(0), positionColumns...)
	return f.With("primary_position", func(r frame.Row) any {
		best, bestCol := 0.0, ""
		for _, c := range positionColumns {
			v, _ := frame.ToFloat(r.Get(c))
			if bestCol == "" || v > best {
				best, bestCol = v, c
			}
		}
		return positionNames[bestCol]
	})
}

func processAwards(f *frame.Frame) (*frame.Frame, error) {
	isAward := func(name string) func(frame.Row) any {
		return func(r frame.Row) any {
			return strings.EqualFold(r.String("awards_award_name"), name)
		}
	}
	f = f.With("mvp_award", isAward("mvp")).
		With("rookie_oty_award", isAward("rookie of the year"))
	return f.GroupBy(keyPlayer,
		frame.Agg{Column: "mvp_award", Fn: frame.Any},
		frame.Agg{Column: "rookie_oty_award", Fn: frame.Any},
	)
}

// singleOrMultiple returns the lone distinct value or "multiple".
func singleOrMultiple(vals []any) any {
	u := frame.Unique(vals)
	switch len(u) {
	case 0:
		return nil
	case 1:
		return frame.Format(u[0])
	default:
		return multiple
	}
}

// joinedWhenMultiple lists distinct values joined by " | " when there is
// more than one.
func joinedWhenMultiple(vals []any) any {
	u := frame.Unique(vals)
	if len(u) < 2 {
		return nil
	}
	s := make([]string, len(u))
	for i, v := range u {
		s[i] = frame.Format(v)
	}
	return strings.Join(s, " | ")
}

func processCollege(f *frame.Frame) (*frame.Frame, error) {
	g, err := f.GroupBy(colPlayer,
		frame.Agg{As: "college_years_played", Fn: frame.Size},
		frame.Agg{Column: "school_id", As: "college_name", Fn: singleOrMultiple},
		frame.Agg{Column: "school_id", As: "college_multiple", Fn: joinedWhenMultiple},
	)
	if err != nil {
		return nil, err
	}
	return g.Insert(1, "college_play_flag", func(frame.Row) any { return true }), nil
}

func processHallOfFame(f *frame.Frame) *frame.Frame {
	return f.Filter(func(r frame.Row) bool {
		return r.Get("inducted") == "Y" && r.Get("category") == "Player"
	}).With("hall_of_fame", func(frame.Row) any { return true })
}

func processPeople(f *frame.Frame) *frame.Frame {
	f = f.With("birth_date", func(r frame.Row) any {
		return combineDate(r.Get("birth_year"), r.Get("birth_month"), r.Get("birth_day"))
	})
	f = f.CastDate("debut_date", "final_game")
	return f.With("full_name", func(r frame.Row) any {
		given, last := r.Get("given_name"), r.Get("last_name")
		if given == nil || last == nil {
			return nil
		}
		return frame.Format(given) + " " + frame.Format(last)
	})
}

// combineDate builds a calendar date; any missing or out of range part
// gives nil.
func combineDate(y, m, d any) any {
	yf, ok1 := frame.ToFloat(y)
	mf, ok2 := frame.ToFloat(m)
	df, ok3 := frame.ToFloat(d)
	if y == nil || m == nil || d == nil || !ok1 || !ok2 || !ok3 {
		return nil
	}
	yi, mi, di := int(yf), int(mf), int(df)
	t := time.Date(yi, time.Month(mi), di, 0, 0, 0, 0, time.UTC)
	if t.Year() != yi || int(t.Month()) != mi || t.Day() != di {
		return nil
	}
	return t
}

func (p *Processor) peopleTable(ctx context.Context) (*frame.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.people != nil {
		return p.people, nil
	}
	raw, err := p.Source.Load(ctx, string(People))
	if err != nil {
		return nil, errors.Wrap(err, "load People for manager names")
	}
	people, err := p.Transform(ctx, People, raw)
	if err != nil {
		return nil, err
	}
	p.people = people
	return people, nil
}

// SetPeople shares an already processed People table with Managers.
func (p *Processor) SetPeople(people *frame.Frame) {
	p.mu.Lock()
	p.people = people
	p.mu.Unlock()
}

func (p *Processor) processManagers(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	people, err := p.peopleTable(ctx)
	if err != nil {
		return nil, err
	}
	names, err := people.Select(colPlayer, "full_name")
	if err != nil {
		return nil, err
	}
	names = names.Rename(map[string]string{colPlayer: "manager_id", "full_name": "manager_name"})

	j, err := f.LeftJoin(names, "manager_id")
	if err != nil {
		return nil, err
	}
	return j.GroupBy(keyTeam,
		frame.Agg{Column: "manager_name", Fn: singleOrMultiple},
		frame.Agg{Column: "manager_name", As: "manager_multiple", Fn: joinedWhenMultiple},
	)
}

func (p *Processor) processTeams(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	raw, err := p.Source.Load(ctx, string(TeamsFranchises))
	if err != nil {
		return nil, errors.Wrap(err, "load TeamsFranchises")
	}
	fr := raw.LowerHeaders().Rename(p.Headers[string(TeamsFranchises)]).Drop("national_association_id")

	if f, err = f.LeftJoin(fr, "franchise_id"); err != nil {
		return nil, err
	}
	for _, c := range teamSeriesColumns {
		col := c
		f = f.With(col, func(r frame.Row) any { return r.Get(col) == "Y" })
	}
	return f, nil
}
