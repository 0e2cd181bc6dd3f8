package forum

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cppla/qforum/models"
)

// SortOrder is the closed set of question orderings.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
	SortMostReplies
)

// String returns the canonical query value of the order.
func (s SortOrder) String() string {
	switch s {
	case SortOldest:
		return "old"
	case SortMostReplies:
		return "answers"
	default:
		return "new"
	}
}

// ParseSortOrder maps a query value to a SortOrder. The empty string means newest.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "new", "newest":
		return SortNewest, nil
	case "old", "oldest":
		return SortOldest, nil
	case "answers", "replies", "most-replies":
		return SortMostReplies, nil
	}
	return SortNewest, ValidationError("Invalid sort: " + raw)
}

// TopicFilter restricts a listing to one topic. The zero value matches all topics.
type TopicFilter struct {
	TopicID uint
}

// All reports whether the filter matches every topic.
func (f TopicFilter) All() bool { return f.TopicID == 0 }

// String returns the query value of the filter.
func (f TopicFilter) String() string {
	if f.All() {
		return "all"
	}
	return strconv.FormatUint(uint64(f.TopicID), 10)
}

// ParseTopicFilter accepts "all", the empty string or a numeric topic id.
func ParseTopicFilter(raw string) (TopicFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return TopicFilter{}, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return TopicFilter{}, ValidationError("Invalid topicId: " + raw)
	}
	return TopicFilter{TopicID: uint(id)}, nil
}

// QuestionQuery describes a question listing.
type QuestionQuery struct {
	Search string
	Topic  TopicFilter
	Sort   SortOrder
}

// Matches reports whether q passes the search text and topic filter.
func (qq QuestionQuery) Matches(q models.Question) bool {
	if !qq.Topic.All() && q.TopicID != qq.Topic.TopicID {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(qq.Search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(q.Title), needle) ||
		strings.Contains(strings.ToLower(q.Body), needle)
}

// Apply filters and orders questions in memory. The input is expected in
// insertion order, which is kept for equal keys.
func (qq QuestionQuery) Apply(questions []models.Question) []models.Question {
	out := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if qq.Matches(q) {
			out = append(out, q)
		}
	}
	switch qq.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
	case SortMostReplies:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ReplyCount > out[j].ReplyCount
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
	}
	return out
}
