// Package market converts category, location, and cluster evidence into a
// heuristic market-size estimate.
package market

import (
	_ "embed"
	"math"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// Defaults for cities and categories missing from the tables.
const (
	DefaultPopulation      = 500_000
	DefaultPenetrationRate = 0.15
	DefaultMonthlyPrice    = 100.0
)

// CoverageFactor approximates the share of a metro population an opportunity
// can actually reach.
const CoverageFactor = 0.5

// firstYearConversion is the assumed share of potential customers converted
// in year one.
const firstYearConversion = 0.05

// Size class thresholds on potential customer count.
const (
	largeThreshold  = 100_000
	mediumThreshold = 20_000
	smallThreshold  = 5_000
)

// Competition thresholds on competitor-mention counts.
const (
	highCompetitionMentions   = 3
	mediumCompetitionMentions = 1
)

// Tables holds the tunable market-sizing inputs.
type Tables struct {
	Version          int                `yaml:"version"`
	CityPopulations  map[string]int     `yaml:"city_populations"`
	PenetrationRates map[string]float64 `yaml:"penetration_rates"`
	AveragePrices    map[string]float64 `yaml:"average_prices"`
}

var (
	defaultTables *Tables
	tablesOnce    sync.Once
)

// DefaultTables returns the tables parsed from the embedded YAML.
func DefaultTables() *Tables {
	tablesOnce.Do(func() {
		t, err := ParseTables(defaultTablesYAML)
		if err != nil {
			zap.L().Error("market: embedded tables failed to parse", zap.Error(err))
			t = &Tables{}
		}
		defaultTables = t
	})
	return defaultTables
}

// ParseTables loads market tables from YAML.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "market: unmarshal tables")
	}
	return &t, nil
}

// Population returns the base population for a city, falling back to
// DefaultPopulation for unknown cities.
func (t *Tables) Population(city string) int {
	if p, ok := t.CityPopulations[strings.ToLower(strings.TrimSpace(city))]; ok {
		return p
	}
	return DefaultPopulation
}

// PenetrationRate returns the category's penetration rate, falling back to
// DefaultPenetrationRate.
func (t *Tables) PenetrationRate(category string) float64 {
	if r, ok := t.PenetrationRates[category]; ok {
		return r
	}
	return DefaultPenetrationRate
}

// MonthlyPrice returns the category's average monthly customer price,
// falling back to DefaultMonthlyPrice.
func (t *Tables) MonthlyPrice(category string) float64 {
	if p, ok := t.AveragePrices[category]; ok {
		return p
	}
	return DefaultMonthlyPrice
}

// Estimator sizes markets from the tables and competitor-term counts.
type Estimator struct {
	tables *Tables
	lib    *patterns.Library
}

// New creates an Estimator. Nil tables or library fall back to the embedded
// defaults.
func New(tables *Tables, lib *patterns.Library) *Estimator {
	if tables == nil {
		tables = DefaultTables()
	}
	if lib == nil {
		lib = patterns.Default()
	}
	return &Estimator{tables: tables, lib: lib}
}

// Estimate converts category + location + cluster evidence into a potential
// customer count, size class, revenue estimate, and competition level.
// Holding category fixed, a larger base population never yields fewer
// potential customers.
func (e *Estimator) Estimate(idea model.BusinessIdea, loc model.LocationResolution, cluster *model.Cluster) model.MarketEstimate {
	population := e.tables.Population(loc.City)
	reachable := float64(population) * CoverageFactor
	potential := int(math.Round(reachable * e.tables.PenetrationRate(idea.Category)))

	monthly := e.tables.MonthlyPrice(idea.Category)
	firstYear := int(math.Round(float64(potential) * firstYearConversion))
	annual := float64(firstYear) * monthly * 12

	est := model.MarketEstimate{
		PotentialCustomers: potential,
		SizeClass:          sizeClass(potential),
		Revenue: model.RevenuePotential{
			AnnualEstimate:     annual,
			AvgCustomerValue:   monthly,
			FirstYearCustomers: firstYear,
		},
		CompetitionLevel: e.competitionLevel(cluster),
	}

	zap.L().Debug("market: estimate computed",
		zap.String("city", loc.City),
		zap.String("category", idea.Category),
		zap.Int("potential_customers", potential),
		zap.String("size_class", string(est.SizeClass)),
		zap.String("competition", string(est.CompetitionLevel)),
	)

	return est
}

func sizeClass(potential int) model.MarketSizeClass {
	switch {
	case potential >= largeThreshold:
		return model.MarketLarge
	case potential >= mediumThreshold:
		return model.MarketMedium
	case potential >= smallThreshold:
		return model.MarketSmall
	default:
		return model.MarketNiche
	}
}

// competitionLevel counts cluster signals that mention competitor-indicating
// phrases.
func (e *Estimator) competitionLevel(cluster *model.Cluster) model.CompetitionLevel {
	mentions := 0
	for _, s := range cluster.Signals {
		if e.lib.MentionsCompetitor(s.Signal.Text()) {
			mentions++
		}
	}
	switch {
	case mentions >= highCompetitionMentions:
		return model.CompetitionHigh
	case mentions >= mediumCompetitionMentions:
		return model.CompetitionMedium
	default:
		return model.CompetitionLow
	}
}
