package classifier

// 类别名称。能力标签与类别同名时，评分器会为该 Worker 加权。
const (
	CategoryCode             = "code"
	CategoryComplexReasoning = "complex_reasoning"
	CategoryCreative         = "creative"
	CategoryArabic           = "arabic"
	CategoryTravel           = "travel"
	CategoryBudget           = "budget"
	CategoryCultural         = "cultural"
	CategoryMultimodal       = "multimodal"
	CategoryDataAnalysis     = "data_analysis"
	CategoryPresentation     = "presentation"
	CategoryLearning         = "learning"
	CategoryGeneral          = "general"
)

// CategoryDefinition 类别定义：名称 + 触发子串（大小写不敏感）
type CategoryDefinition struct {
	Name     string   `json:"name" yaml:"name"`
	Triggers []string `json:"triggers" yaml:"triggers"`
}

// DefaultCategories 返回默认的有序类别定义。
// 顺序即 Classification.CategoryScores 的顺序。
func DefaultCategories() []CategoryDefinition {
	return []CategoryDefinition{
		{Name: CategoryCode, Triggers: []string{
			"code", "python", "javascript", "typescript", "golang", "function",
			"endpoint", "debug", "refactor", "compile", "sql query", "stack trace",
			"unit test", "script",
		}},
		{Name: CategoryComplexReasoning, Triggers: []string{
			"analyze", "analysis", "reasoning", "strategy", "trade-off", "tradeoff",
			"compare", "evaluate", "architecture", "step by step", "prove", "optimize",
		}},
		{Name: CategoryCreative, Triggers: []string{
			"story", "poem", "creative", "slogan", "tagline", "brainstorm", "caption",
		}},
		{Name: CategoryArabic, Triggers: []string{
			"arabic", "عربي", "العربية", "مرحبا", "السلام", "شكرا", "رحلة",
		}},
		{Name: CategoryTravel, Triggers: []string{
			"travel", "trip", "flight", "hotel", "itinerary", "vacation",
			"destination", "booking", "visa", "tour",
		}},
		{Name: CategoryBudget, Triggers: []string{
			"budget", "cost", "price", "cheap", "expense", "afford", "discount",
		}},
		{Name: CategoryCultural, Triggers: []string{
			"culture", "cultural", "customs", "tradition", "etiquette",
		}},
		{Name: CategoryMultimodal, Triggers: []string{
			"image", "photo", "picture", "video", "diagram", "screenshot", "visual",
		}},
		{Name: CategoryDataAnalysis, Triggers: []string{
			"data", "csv", "statistics", "spreadsheet", "extract", "parse", "chart",
		}},
		{Name: CategoryPresentation, Triggers: []string{
			"presentation", "slides", "deck", "pitch", "report", "forecast", "revenue",
		}},
		{Name: CategoryLearning, Triggers: []string{
			"learn", "explain", "tutorial", "teach me", "understand", "lesson",
		}},
		{Name: CategoryGeneral, Triggers: []string{
			"hello", "help me", "question", "thank you",
		}},
	}
}
