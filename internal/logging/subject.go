package logging

import "strings"

// FormatSubject builds the partition/item/stage subject shown in console output,
// for example "Part 1/3 · Item shard-07.jsonl (inference)".
func FormatSubject(partition, itemID, stage string) string {
	partition = strings.TrimSpace(partition)
	itemID = strings.TrimSpace(itemID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 2)
	if partition != "" {
		parts = append(parts, "Part "+partition)
	}
	switch {
	case itemID != "" && stage != "":
		parts = append(parts, "Item "+itemID+" ("+stage+")")
	case itemID != "":
		parts = append(parts, "Item "+itemID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}
