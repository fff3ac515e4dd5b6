package domain

import (
	"slices"
	"strings"
)

// SortKey selects the ordering applied inside every lane.
type SortKey string

const (
	SortNone      SortKey = ""
	SortCreatedAt SortKey = "createdAt"
	SortDueDate   SortKey = "dueDate"
)

// Criteria filters and orders the board. Zero values mean "unset".
type Criteria struct {
	Priority Priority
	Status   Status
	SortBy   SortKey
}

// ParseCriteria builds criteria from form values. Unknown filters are
// treated as unset and an unknown sort key falls back to creation order.
func ParseCriteria(priority, status, sortBy string) Criteria {
	var c Criteria
	if p, ok := ParsePriority(strings.TrimSpace(priority)); ok {
		c.Priority = p
	}
	if s, ok := ParseStatus(strings.TrimSpace(status)); ok {
		c.Status = s
	}
	switch SortKey(strings.TrimSpace(sortBy)) {
	case SortDueDate:
		c.SortBy = SortDueDate
	default:
		c.SortBy = SortCreatedAt
	}
	return c
}

func (c Criteria) match(t Task) bool {
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	return true
}

// Card is a task as shown in a lane. Duplicates counts the tasks in the same
// lane with exactly the same title, including this one.
type Card struct {
	Task
	Duplicates int `json:"duplicates"`
}

// Duplicate reports whether another card in the lane shares the title.
func (c Card) Duplicate() bool { return c.Duplicates > 1 }

// Lane holds the cards of one status in display order.
type Lane struct {
	Status Status `json:"status"`
	Cards  []Card `json:"cards"`
}

// View is the projected board: always three lanes in Lanes order.
type View struct {
	Lanes [3]Lane `json:"lanes"`
}

// Lane returns the lane for s.
func (v View) Lane(s Status) Lane {
	if i := laneIndex(s); i >= 0 {
		return v.Lanes[i]
	}
	return Lane{Status: s}
}

// Len is the number of cards on the board.
func (v View) Len() int {
	n := 0
	for _, l := range v.Lanes {
		n += len(l.Cards)
	}
	return n
}

// Project filters, sorts, partitions and annotates tasks. It does not modify
// its input.
func Project(tasks []Task, c Criteria) View {
	filtered := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if c.match(t) {
			filtered = append(filtered, t)
		}
	}

	switch c.SortBy {
	case SortCreatedAt:
		slices.SortStableFunc(filtered, compareCreatedAt)
	case SortDueDate:
		slices.SortStableFunc(filtered, compareDueDate)
	}

	var v View
	for i, s := range Lanes {
		v.Lanes[i] = Lane{Status: s, Cards: []Card{}}
	}
	for _, t := range filtered {
		i := laneIndex(t.Status)
		if i < 0 {
			continue
		}
		v.Lanes[i].Cards = append(v.Lanes[i].Cards, Card{Task: t})
	}

	for i := range v.Lanes {
		cards := v.Lanes[i].Cards
		titles := make(map[string]int, len(cards))
		for _, card := range cards {
			titles[card.Title]++
		}
		for j := range cards {
			cards[j].Duplicates = titles[cards[j].Title]
		}
	}
	return v
}

func compareCreatedAt(a, b Task) int {
	return a.CreatedAt.Compare(b.CreatedAt)
}

// compareDueDate puts tasks without a parseable due date after all others.
func compareDueDate(a, b Task) int {
	da, okA := a.Due()
	db, okB := b.Due()
	switch {
	case okA && okB:
		return da.Compare(db)
	case okA:
		return -1
	case okB:
		return 1
	}
	return 0
}
