package dataset

// MergeKeepFirst concatenates existing and imported rows and removes
// duplicate timestamps, keeping the first occurrence. Because existing rows
// come first, previously stored values always win over freshly imported
// duplicates, which makes a repeated import of the same file a no-op.
func MergeKeepFirst(existing, imported [][]string) [][]string {
	merged := make([][]string, 0, len(existing)+len(imported))
	seen := make(map[string]struct{}, len(existing)+len(imported))

	for _, rows := range [][][]string{existing, imported} {
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			key := row[0]
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, row)
		}
	}
	return merged
}
