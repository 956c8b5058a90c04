package dispatcher

import (
	"math/rand"
	"sync"

	"github.com/JiHungLin/Skalds/internal/config"
	"github.com/JiHungLin/Skalds/internal/model"
)

// Policy picks one executor from an eligible, id-sorted candidate slice.
// inflight counts assignments already made this tick so a burst of tasks
// spreads instead of piling onto one skald.
type Policy interface {
	Name() string
	Choose(candidates []*model.Skald, inflight map[string]int) *model.Skald
}

// NewPolicy maps the configured policy name to an implementation.
func NewPolicy(p config.DispatchPolicy, seed int64) Policy {
	switch p {
	case config.PolicyRoundRobin:
		return &roundRobinPolicy{}
	case config.PolicyRandom:
		return &randomPolicy{rng: rand.New(rand.NewSource(seed))}
	default:
		return leastTasksPolicy{}
	}
}

// leastTasksPolicy picks the executor with the lowest claimed load plus
// this tick's assignments; ties break on the lexicographically smallest id
// (candidates arrive sorted).
type leastTasksPolicy struct{}

func (leastTasksPolicy) Name() string { return string(config.PolicyLeastTasks) }

func (leastTasksPolicy) Choose(candidates []*model.Skald, inflight map[string]int) *model.Skald {
	var best *model.Skald
	bestLoad := 0
	for _, c := range candidates {
		load := c.TaskCount() + inflight[c.ID]
		if best == nil || load < bestLoad {
			best, bestLoad = c, load
		}
	}
	return best
}

// roundRobinPolicy keeps a cursor across ticks and skips ineligible
// candidates by construction (only eligible ones are passed in).
type roundRobinPolicy struct {
	mu     sync.Mutex
	cursor int
}

func (*roundRobinPolicy) Name() string { return string(config.PolicyRoundRobin) }

func (p *roundRobinPolicy) Choose(candidates []*model.Skald, _ map[string]int) *model.Skald {
	if len(candidates) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	chosen := candidates[p.cursor%len(candidates)]
	p.cursor++
	return chosen
}

type randomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (*randomPolicy) Name() string { return string(config.PolicyRandom) }

func (p *randomPolicy) Choose(candidates []*model.Skald, _ map[string]int) *model.Skald {
	if len(candidates) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return candidates[p.rng.Intn(len(candidates))]
}
