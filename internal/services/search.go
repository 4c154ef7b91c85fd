package services

import (
	"context"
	"iter"
	"slices"
	"sort"

	"github.com/localnerve/traits/internal/topology"
	"github.com/localnerve/traits/internal/types"
)

// DefaultSearchLimit is the number of journeys returned when no limit is given
const DefaultSearchLimit = 5

// SearchOptions controls ranking and truncation of a connection search
type SearchOptions struct {
	SortBy     types.SortingCriteria
	Descending bool
	Limit      int
}

// Journey is a simple path through the network
type Journey struct {
	Stations   []string `json:"stations"`
	TravelTime int      `json:"travelTime"`
	Hops       int      `json:"hops"`
}

// SearchConnections ranks the journeys from start to end
func (t *Traits) SearchConnections(ctx context.Context, start, end string, opts SearchOptions) ([]Journey, error) {
	for _, key := range []string{start, end} {
		exists, err := t.Graph.HasNode(topology.KindStation, key)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, types.NotFoundError("Station %s does not exist", key)
		}
	}

	journeys := []Journey{}
	for j, err := range t.Journeys(ctx, start, end) {
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}

	sortJourneys(journeys, opts.SortBy, opts.Descending)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if len(journeys) > limit {
		journeys = journeys[:limit]
	}

	return journeys, nil
}

// Journeys enumerates simple paths from start to end of at most MaxHops connections,
// in depth-first order. Each range over the sequence starts a new walk.
func (t *Traits) Journeys(ctx context.Context, start, end string) iter.Seq2[Journey, error] {
	return func(yield func(Journey, error) bool) {
		if start == end {
			return
		}

		cache := map[string][]topology.Hop{}
		neighbors := func(station string) ([]topology.Hop, error) {
			if hops, ok := cache[station]; ok {
				return hops, nil
			}
			hops, err := t.Graph.Neighbors(station)
			if err != nil {
				return nil, err
			}
			cache[station] = hops
			return hops, nil
		}

		type frame struct {
			hops []topology.Hop
			next int
		}

		first, err := neighbors(start)
		if err != nil {
			yield(Journey{}, err)
			return
		}

		path := []string{start}
		elapsed := []int{0}
		onPath := map[string]bool{start: true}
		stack := []*frame{{hops: first}}

		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(Journey{}, err)
				return
			}

			top := stack[len(stack)-1]
			if top.next >= len(top.hops) || len(path) > t.MaxHops {
				stack = stack[:len(stack)-1]
				delete(onPath, path[len(path)-1])
				path = path[:len(path)-1]
				elapsed = elapsed[:len(elapsed)-1]
				continue
			}

			hop := top.hops[top.next]
			top.next++
			if onPath[hop.To] {
				continue
			}

			total := elapsed[len(elapsed)-1] + hop.TravelTime
			if hop.To == end {
				journey := Journey{
					Stations:   append(slices.Clone(path), end),
					TravelTime: total,
					Hops:       len(path),
				}
				if !yield(journey, nil) {
					return
				}
				continue
			}

			next, err := neighbors(hop.To)
			if err != nil {
				yield(Journey{}, err)
				return
			}
			path = append(path, hop.To)
			elapsed = append(elapsed, total)
			onPath[hop.To] = true
			stack = append(stack, &frame{hops: next})
		}
	}
}

// sortJourneys orders by the criterion in the requested direction. Ties always go to
// fewer hops, then to the lexicographically smaller station sequence.
func sortJourneys(journeys []Journey, by types.SortingCriteria, descending bool) {
	metric := func(j Journey) int {
		if by == types.NumberOfHops {
			return j.Hops
		}
		return j.TravelTime
	}

	sort.SliceStable(journeys, func(a, b int) bool {
		ma, mb := metric(journeys[a]), metric(journeys[b])
		if ma != mb {
			if descending {
				return ma > mb
			}
			return ma < mb
		}
		if journeys[a].Hops != journeys[b].Hops {
			return journeys[a].Hops < journeys[b].Hops
		}
		return slices.Compare(journeys[a].Stations, journeys[b].Stations) < 0
	})
}
