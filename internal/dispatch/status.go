package dispatch

import "strings"

// ApplyStatus sets Status on every order whose id is in ids and returns how
// many orders actually changed. It does not check the prior status; callers
// gate legality with ValidTransition. Applying the same status twice is a
// no-op the second time.
func ApplyStatus(orders []Order, ids []string, to Status) int {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[strings.TrimSpace(id)] = struct{}{}
	}
	changed := 0
	for i := range orders {
		if _, ok := want[strings.TrimSpace(orders[i].ID)]; !ok {
			continue
		}
		if orders[i].Status == to {
			continue
		}
		orders[i].Status = to
		changed++
	}
	return changed
}
