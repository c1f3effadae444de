package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BaSui01/taskrouter/types"
)

var (
	codeFencePattern   = regexp.MustCompile("```")
	codeKeywordPattern = regexp.MustCompile(`\b(func|def|class|import|return|const|let|var|function|package|SELECT|println|printf)\b|console\.log|=>|\w+\(\)`)
	dataPattern        = regexp.MustCompile(`(?i)\b(data|dataset|csv|json|xml|parse|parsing|extract|table|spreadsheet|records?)\b`)
	imagePattern       = regexp.MustCompile(`(?i)\b(images?|photos?|pictures?|screenshots?|diagrams?|visuals?|charts?|draw|render)\b`)
)

type compiledCategory struct {
	name     string
	triggers []string
}

// Classifier 将任务文本映射为类别命中数与结构特征。
// 无状态、无 I/O，可并发使用。
type Classifier struct {
	categories []compiledCategory
}

// New 创建分类器。未传入定义时使用 DefaultCategories。
func New(defs ...CategoryDefinition) *Classifier {
	if len(defs) == 0 {
		defs = DefaultCategories()
	}

	c := &Classifier{categories: make([]compiledCategory, 0, len(defs))}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" || seen[d.Name] {
			continue
		}
		seen[d.Name] = true

		triggers := make([]string, 0, len(d.Triggers))
		for _, t := range d.Triggers {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				triggers = append(triggers, t)
			}
		}
		c.categories = append(c.categories, compiledCategory{name: d.Name, triggers: triggers})
	}
	return c
}

// Categories returns the configured category names in order.
func (c *Classifier) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.name
	}
	return names
}

// Classify 对文本打分。从不失败：空文本得到全零结果。
// The context does not influence category counts today; it is normalised so a
// malformed value can never leak into downstream scoring.
func (c *Classifier) Classify(text string, tc types.TaskContext) types.Classification {
	_, _ = tc.Normalize()

	lower := strings.ToLower(text)
	scores := make([]types.CategoryScore, len(c.categories))
	for i, cat := range c.categories {
		hits := 0
		if lower != "" {
			for _, trigger := range cat.triggers {
				if strings.Contains(lower, trigger) {
					hits++
				}
			}
		}
		scores[i] = types.CategoryScore{Category: cat.name, Hits: hits}
	}

	return types.Classification{
		CategoryScores: scores,
		Flags: types.Flags{
			HasCode:   codeFencePattern.MatchString(text) || codeKeywordPattern.MatchString(text),
			HasData:   dataPattern.MatchString(text),
			HasImages: imagePattern.MatchString(text),
		},
		TextLength:       utf8.RuneCountInString(text),
		DetectedLanguage: detectLanguage(text),
	}
}

// detectLanguage 基于文字系统的粗略判断，仅识别阿拉伯文与中文
func detectLanguage(text string) string {
	var arabic, han int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Arabic):
			arabic++
		case unicode.In(r, unicode.Han):
			han++
		}
	}
	switch {
	case arabic == 0 && han == 0:
		return ""
	case arabic >= han:
		return "ar"
	default:
		return "zh"
	}
}
