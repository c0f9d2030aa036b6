package retrieval

import (
	"github.com/parleyhq/parley/internal/model"
)

// Unit is one pool entry: a message plus its stored embedding.
type Unit struct {
	Message   *model.Message
	Embedding []float32
}

type SelectorConfig struct {
	// MinScore drops candidates scoring below it. Zero disables the
	// cutoff, which is the default for chat context selection: when
	// budget allows, weakly related content is still worth carrying.
	MinScore float64
}

// Selector picks which prior units to inject into a completion request.
// Greedy budget-fill over the similarity ranking: the documented policy,
// not an optimal packing.
type Selector struct {
	cfg SelectorConfig
}

func NewSelector(cfg SelectorConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Select ranks the pool against the query embedding and walks the ranking
// greedily, accepting a unit iff its full text fits the remaining budget.
// Units are never truncated; a unit that does not fit is skipped and the
// walk continues. The query's own source unit and duplicate ids are always
// excluded. Returns the chosen units most-relevant first. An empty pool
// yields an empty selection, not an error.
func (s *Selector) Select(queryEmb []float32, queryUnitID string, pool []Unit, budget int) ([]*model.Message, error) {
	if len(pool) == 0 || budget <= 0 {
		return nil, nil
	}
	byID := make(map[string]*model.Message, len(pool))
	candidates := make([]Candidate, 0, len(pool))
	for _, unit := range pool {
		if unit.Message == nil || len(unit.Embedding) == 0 {
			continue
		}
		if unit.Message.ID == queryUnitID {
			continue
		}
		if _, ok := byID[unit.Message.ID]; ok {
			continue
		}
		byID[unit.Message.ID] = unit.Message
		candidates = append(candidates, Candidate{
			ID:        unit.Message.ID,
			Ctime:     unit.Message.Ctime,
			Embedding: unit.Embedding,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	ranked, err := Rank(queryEmb, candidates)
	if err != nil {
		return nil, err
	}
	var selected []*model.Message
	remaining := budget
	for _, cand := range ranked {
		if remaining <= 0 {
			break
		}
		if s.cfg.MinScore > 0 && cand.Score < s.cfg.MinScore {
			break
		}
		msg := byID[cand.ID]
		cost := len(msg.Content)
		if cost > remaining {
			continue
		}
		selected = append(selected, msg)
		remaining -= cost
	}
	return selected, nil
}
