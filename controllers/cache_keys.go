package controllers

import (
	"fmt"

	"github.com/cppla/qforum/forum"
)

const (
	cachePrefix               = "cache:"
	cacheKeyTopics            = "cache:topics:list"
	cachePrefixQuestionLists  = "cache:questions:list:"
	cachePrefixQuestionDetail = "cache:question:detail:"
)

// Searches are not cached; only the topic filter and sort make up the key.
func questionListKey(q forum.QuestionQuery) string {
	return fmt.Sprintf("%stopic=%s:sort=%s", cachePrefixQuestionLists, q.Topic, q.Sort)
}

func questionDetailKey(id uint) string {
	return fmt.Sprintf("%s%d", cachePrefixQuestionDetail, id)
}
