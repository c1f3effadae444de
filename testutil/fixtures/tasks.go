// =============================================================================
// 📦 测试数据工厂 - 任务文本
// =============================================================================
// 默认类别表下分类结果已知的任务样例
// =============================================================================
package fixtures

// Task 一条任务样例及其期望的领域与命中类别
type Task struct {
	Name     string
	Text     string
	Domain   string
	Category string
}

// Tasks 每个内置领域至少一条样例
func Tasks() []Task {
	return []Task{
		{Name: "travel", Text: "Plan a trip to Kyoto and find a hotel", Domain: "travel", Category: "travel"},
		{Name: "travel via budget and culture", Text: "What does local etiquette cost on a tight budget", Domain: "travel", Category: "budget"},
		{Name: "development", Text: "Write a python function that sorts names", Domain: "development", Category: "code"},
		{Name: "learning", Text: "Explain recursion like a lesson", Domain: "learning", Category: "learning"},
		{Name: "general", Text: "hello, how are you", Domain: "general", Category: "general"},
	}
}

// ArabicGreeting 阿拉伯字符占比超过阈值的问候
const ArabicGreeting = "مرحبا، كيف حالك اليوم؟"
