package coordinator

import (
	"strings"

	"github.com/BaSui01/taskrouter/classifier"
	"github.com/BaSui01/taskrouter/types"
)

// 内置领域
const (
	DomainTravel      = "travel"
	DomainDevelopment = "development"
	DomainLearning    = "learning"
	DomainGeneral     = "general"
)

// 原始文本关键词，补充分类器未覆盖的说法
var (
	travelKeywords      = []string{"travel", "trip", "vacation", "hotel", "flight", "destination", "itinerary"}
	developmentKeywords = []string{"code", "develop", "build", "software", "app", "website", "api"}
	learningKeywords    = []string{"learn", "explain", "tutorial", "teach me"}
)

// DetectDomain 把任务归入内置领域之一。
// 优先级 travel > development > learning，均不命中时为 general。
func DetectDomain(cls types.Classification, text string) string {
	lower := strings.ToLower(text)

	switch {
	case cls.Score(classifier.CategoryTravel) > 0 ||
		cls.Score(classifier.CategoryBudget) > 0 && cls.Score(classifier.CategoryCultural) > 0 ||
		containsAny(lower, travelKeywords):
		return DomainTravel
	case cls.Score(classifier.CategoryCode) > 0 || cls.Flags.HasCode || containsAny(lower, developmentKeywords):
		return DomainDevelopment
	case cls.Score(classifier.CategoryLearning) > 0 || containsAny(lower, learningKeywords):
		return DomainLearning
	default:
		return DomainGeneral
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
