package locks

import (
	"sort"
	"strings"

	"github.com/taskforge/taskforge/internal/taskcore"
)

// knownResourcePrefixes are name substrings the heuristic recognizes as
// pointing at a shared resource area. This list is deliberately small and
// advisory: real acquisition is always driven by explicit Acquire calls
// issued by a TaskRunner, never by this inference.
var knownResourcePrefixes = []string{
	"components/forms/",
	"components/",
	"lib/auth/",
	"lib/",
	"api/",
	"db/",
	"schema/",
}

// InferResourceIDs guesses the resource ids a task is likely to touch from
// its lowercased name and, when set, its genesis pattern.
func InferResourceIDs(t taskcore.Task) []string {
	var ids []string
	name := strings.ToLower(t.Name)
	for _, prefix := range knownResourcePrefixes {
		if strings.Contains(name, prefix) {
			ids = append(ids, prefix)
			break
		}
	}
	if t.GenesisPattern != "" {
		ids = append(ids, "patterns/"+strings.ToLower(t.GenesisPattern))
	}
	return ids
}

// Contention groups the tasks inference attributes to the same resource id.
type Contention struct {
	ResourceID string
	TaskIDs    []string
}

// PredictConflicts runs InferResourceIDs over tasks and reports every
// resource id claimed by more than one task, sorted by resource id with
// task ids sorted within each group.
func PredictConflicts(tasks []taskcore.Task) []Contention {
	byResource := make(map[string][]string)
	for _, t := range tasks {
		for _, id := range InferResourceIDs(t) {
			byResource[id] = append(byResource[id], t.ID)
		}
	}

	var out []Contention
	for resourceID, taskIDs := range byResource {
		if len(taskIDs) < 2 {
			continue
		}
		sorted := append([]string(nil), taskIDs...)
		sort.Strings(sorted)
		out = append(out, Contention{ResourceID: resourceID, TaskIDs: sorted})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out
}
