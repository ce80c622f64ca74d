package routing

import (
	"sort"

	"github.com/xraph/hookgate/condition"
)

// Decide runs the routing algorithm over rules without touching storage.
//
// Active drop rules are tried first in ascending priority and the first full
// match drops the event. Otherwise every matching active route rule
// contributes its destinations, ordered by destination priority (defaulting
// to the rule priority) with ties kept in encounter order. When no route rule
// matches, static is returned as configured. Destinations are not
// deduplicated.
func Decide(rules []*Rule, static []string, cctx condition.Context) Decision {
	ordered := byPriority(rules)

	for _, r := range ordered {
		if r.Action != ActionDrop || !r.Active {
			continue
		}
		if condition.MatchAll(r.Conditions, cctx) {
			return Decision{Action: ActionDrop, MatchedRule: r, Matched: []*Rule{r}}
		}
	}

	type ranked struct {
		url      string
		priority int
	}
	var (
		matched []*Rule
		dests   []ranked
	)
	for _, r := range ordered {
		if r.Action != ActionRoute || !r.Active {
			continue
		}
		if !condition.MatchAll(r.Conditions, cctx) {
			continue
		}
		matched = append(matched, r)
		for _, d := range r.Destinations {
			p := r.Priority
			if d.Priority != nil {
				p = *d.Priority
			}
			dests = append(dests, ranked{url: d.URL, priority: p})
		}
	}

	if len(matched) == 0 {
		out := make([]string, len(static))
		copy(out, static)
		return Decision{Action: ActionRoute, Destinations: out}
	}

	sort.SliceStable(dests, func(i, j int) bool { return dests[i].priority < dests[j].priority })
	out := make([]string, len(dests))
	for i, d := range dests {
		out[i] = d.url
	}
	return Decision{Action: ActionRoute, Destinations: out, Matched: matched}
}

// byPriority returns a stably sorted copy so stores that return rules in
// insertion order still evaluate deterministically.
func byPriority(rules []*Rule) []*Rule {
	out := make([]*Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
