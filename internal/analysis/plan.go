package analysis

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Plan selects what the report covers.
type Plan struct {
	Target          string   `yaml:"target" validate:"required"`
	CorrelationTopN int      `yaml:"correlation_top_n" validate:"gte=1"`
	GridColumns     int      `yaml:"histogram_grid_columns" validate:"gte=1"`
	HistogramMax    int      `yaml:"histogram_max_plots" validate:"gte=1,lte=100"`
	BarTopGroups    int      `yaml:"bar_top_groups" validate:"gte=1"`
	CloserLook      []string `yaml:"closer_look"`
	Scatter         []string `yaml:"scatter"`
	Workers         int      `yaml:"workers" validate:"gte=0"`
}

func DefaultPlan() Plan {
	return Plan{
		Target:          "allstar_flag",
		CorrelationTopN: 20,
		GridColumns:     4,
		HistogramMax:    MaxGridPlots,
		BarTopGroups:    20,
	}
}

// ParsePlan reads a YAML plan over the defaults.
func ParsePlan(b []byte) (Plan, error) {
	p := DefaultPlan()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Plan{}, errors.Wrap(err, "parse analysis plan")
	}
	if err := validator.New().Struct(p); err != nil {
		return Plan{}, errors.Wrap(err, "validate analysis plan")
	}
	return p, nil
}

// ScatterPairs returns every (x, y) with x before y in the scatter list.
func (p Plan) ScatterPairs() [][2]string {
	var out [][2]string
	for i, x := range p.Scatter {
		for _, y := range p.Scatter[i+1:] {
			out = append(out, [2]string{x, y})
		}
	}
	return out
}
