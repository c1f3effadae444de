package types

// CategoryScore 单个类别的关键词命中数
type CategoryScore struct {
	Category string `json:"category"`
	Hits     int    `json:"hits"`
}

// Flags 结构性特征
type Flags struct {
	HasCode   bool `json:"has_code"`
	HasData   bool `json:"has_data"`
	HasImages bool `json:"has_images"`
}

// Classification 是分类器对任务文本的打分结果。
// CategoryScores 的顺序与分类器的类别定义顺序一致。
type Classification struct {
	CategoryScores   []CategoryScore `json:"category_scores"`
	Flags            Flags           `json:"flags"`
	TextLength       int             `json:"text_length"`
	DetectedLanguage string          `json:"detected_language,omitempty"`
}

// Score returns the hit count for category (0 if unknown).
func (c Classification) Score(category string) int {
	for _, cs := range c.CategoryScores {
		if cs.Category == category {
			return cs.Hits
		}
	}
	return 0
}

// Matched returns the categories with at least one hit, in definition order.
func (c Classification) Matched() []string {
	var out []string
	for _, cs := range c.CategoryScores {
		if cs.Hits > 0 {
			out = append(out, cs.Category)
		}
	}
	return out
}

// TotalHits sums all category hits.
func (c Classification) TotalHits() int {
	total := 0
	for _, cs := range c.CategoryScores {
		total += cs.Hits
	}
	return total
}
