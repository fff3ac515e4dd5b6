package domain

// NextID returns an identifier distinct from every id in tasks. It only looks
// at the collection, so it stays collision free across reloads.
func NextID(tasks []Task) TaskID {
	var top TaskID
	for _, t := range tasks {
		if t.ID > top {
			top = t.ID
		}
	}
	return top + 1
}
