// Package scoring evaluates deliberation records against their gold labels.
package scoring

import (
	"sort"

	"github.com/medquorum/medquorum/internal/core"
)

// SplitStats is the tally for one meta_info split.
type SplitStats struct {
	Name    string  `json:"name"`
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Acc     float64 `json:"accuracy"`
}

// Summary aggregates correctness over a set of records. Failed runs count
// against accuracy: a record with an empty prediction is simply wrong.
type Summary struct {
	Total     int          `json:"total"`
	Correct   int          `json:"correct"`
	Acc       float64      `json:"accuracy"`
	NoAnswer  int          `json:"no_answer"`
	Converged int          `json:"converged"`
	Exhausted int          `json:"exhausted"`
	Splits    []SplitStats `json:"splits,omitempty"`
}

// Summarize scores records, with a per-meta_info breakdown when the
// records carry split names.
func Summarize(recs []core.ResultRecord) Summary {
	s := Summary{Total: len(recs)}
	splits := make(map[string]*SplitStats)

	for i := range recs {
		rec := &recs[i]
		correct := rec.Correct()
		if correct {
			s.Correct++
		}
		if rec.PredAnswer == "" {
			s.NoAnswer++
		}
		switch rec.Consensus {
		case core.ConsensusConverged:
			s.Converged++
		case core.ConsensusExhausted:
			s.Exhausted++
		}

		if rec.MetaInfo == "" {
			continue
		}
		st, ok := splits[rec.MetaInfo]
		if !ok {
			st = &SplitStats{Name: rec.MetaInfo}
			splits[rec.MetaInfo] = st
		}
		st.Total++
		if correct {
			st.Correct++
		}
	}

	if s.Total > 0 {
		s.Acc = float64(s.Correct) / float64(s.Total)
	}

	names := make([]string, 0, len(splits))
	for name := range splits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := splits[name]
		if st.Total > 0 {
			st.Acc = float64(st.Correct) / float64(st.Total)
		}
		s.Splits = append(s.Splits, *st)
	}
	return s
}
