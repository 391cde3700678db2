// SPDX-License-Identifier: Apache-2.0

package keybind

// Record field names used for grouping.
const (
	KeyField     = "key"
	CommandField = "command"
)

// KeyGroup is the set of records in a list that share one key value.
type KeyGroup struct {
	// Key is the shared value of the records' key field.
	Key any
	// Count is the number of records with this key.
	Count int
	// Commands holds the distinct command values, in first-seen order.
	Commands []string
}

// KeyString returns the key as text. String keys are returned as-is; other
// values use their JSON encoding.
func (g KeyGroup) KeyString() string {
	if s, ok := g.Key.(string); ok {
		return s
	}
	return encodeJSON(g.Key)
}

// GroupKeys groups the records of list by their key field.
//
// Groups are returned in order of first occurrence. Elements that are not
// mappings, or that have no key (or a null key), are ignored. Keys are
// compared as JSON values: "1" and 1 fall into different groups while 1 and
// 1.0 share one.
func GroupKeys(list []any) []KeyGroup {
	var groups []KeyGroup
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, ok := record[KeyField]
		if !ok || key == nil {
			continue
		}

		id := canonical(key)
		i, exists := index[id]
		if !exists {
			i = len(groups)
			index[id] = i
			groups = append(groups, KeyGroup{Key: key})
			seen[id] = make(map[string]struct{})
		}
		groups[i].Count++

		cmd, ok := record[CommandField]
		if !ok || cmd == nil {
			continue
		}
		text, ok := cmd.(string)
		if !ok {
			text = encodeJSON(cmd)
		}
		if _, dup := seen[id][text]; !dup {
			seen[id][text] = struct{}{}
			groups[i].Commands = append(groups[i].Commands, text)
		}
	}

	return groups
}

// Duplicates returns the groups of list whose key occurs more than once.
// It returns nil when every key is unique.
func Duplicates(list []any) []KeyGroup {
	var dupes []KeyGroup
	for _, g := range GroupKeys(list) {
		if g.Count > 1 {
			dupes = append(dupes, g)
		}
	}
	return dupes
}
