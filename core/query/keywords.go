package query

import (
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/siherrmann/retriever/model"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// IndicatorGroup is one group of structured-query indicators sharing a
// metric hint. Group order in the table decides which metric wins when a
// query matches several groups.
type IndicatorGroup struct {
	Metric   model.MetricHint `yaml:"metric"`
	Keywords []string         `yaml:"keywords"`
}

// KeywordTables holds the classification keyword data. Tables are
// immutable after loading and safe for concurrent use; treat them as
// process-wide read-only configuration.
type KeywordTables struct {
	StructuredIndicators []IndicatorGroup              `yaml:"structured_indicators"`
	EntityKeywords       map[model.EntityType][]string `yaml:"entity_keywords"`
}

// LoadKeywordTables parses keyword tables from YAML, e.g. to add another
// language without a code change
func LoadKeywordTables(r io.Reader) (*KeywordTables, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword tables: %w", err)
	}

	tables := &KeywordTables{}
	if err := yaml.Unmarshal(data, tables); err != nil {
		return nil, fmt.Errorf("failed to parse keyword tables: %w", err)
	}

	if len(tables.StructuredIndicators) == 0 {
		return nil, fmt.Errorf("keyword tables contain no structured indicators")
	}
	if len(tables.EntityKeywords) == 0 {
		return nil, fmt.Errorf("keyword tables contain no entity keywords")
	}

	return tables, nil
}

var defaultTables = sync.OnceValue(func() *KeywordTables {
	tables := &KeywordTables{}
	if err := yaml.Unmarshal(defaultKeywordsYAML, tables); err != nil {
		// The embedded tables are validated by tests; failing to parse
		// them is a build defect, not a runtime condition.
		panic(fmt.Sprintf("invalid embedded keyword tables: %v", err))
	}
	return tables
})

// DefaultKeywordTables returns the embedded English+Hebrew tables, parsed
// once per process
func DefaultKeywordTables() *KeywordTables {
	return defaultTables()
}
