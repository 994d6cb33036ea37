package model

// Path represents a file system path.
type Path string

// EntrySummary describes one ranked variant in a report.
type EntrySummary struct {
	Variant  string  `yaml:"variant"`
	Origin   Origin  `yaml:"origin"`
	Operator string  `yaml:"operator,omitempty"`
	Score    float64 `yaml:"score"`
	Runs     int     `yaml:"runs"`
}

// RoundSummary describes one sealed round in a report.
type RoundSummary struct {
	Number  int            `yaml:"number"`
	Entries []EntrySummary `yaml:"entries"`
}

// SearchReport summarises a finished run for later viewing. It is output
// only; a search is never resumed from it. Hash is the fingerprint of the
// workflow document the run started from.
type SearchReport struct {
	Workflow  Path           `yaml:"workflow"`
	Target    TargetID       `yaml:"target"`
	Strategy  string         `yaml:"strategy"`
	Direction Direction      `yaml:"direction"`
	Calls     int            `yaml:"calls"`
	Seed      int64          `yaml:"seed"`
	Hash      string         `yaml:"hash,omitempty"`
	Rounds    []RoundSummary `yaml:"rounds"`
	BestScore float64        `yaml:"best_score"`
	Base      string         `yaml:"base"`
	Best      string         `yaml:"best"`
}

// Summarize converts a ranked round into its report form.
func Summarize(r RankedRound) RoundSummary {
	entries := make([]EntrySummary, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, EntrySummary{
			Variant:  e.Variant.Name(),
			Origin:   e.Variant.Lineage.Origin,
			Operator: e.Variant.Lineage.Operator,
			Score:    e.Score,
			Runs:     len(e.Outcomes),
		})
	}

	return RoundSummary{Number: r.Number, Entries: entries}
}
