package classify

import "strings"

// Keywords holds the substring lists driving classification. Matching is
// case-sensitive containment, not tokenized.
type Keywords struct {
	Finance  []string
	Schedule []string
	Todo     []string
	Idea     []string
}

// DefaultKeywords returns the built-in Chinese keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Finance:  []string{"买", "花", "元", "块", "钱", "支付", "花费", "预算"},
		Schedule: []string{"开会", "去", "见面", "预约", "参加", "高铁", "飞机", "请", "约"},
		Todo:     []string{"记得", "需要", "办", "做", "带"},
		Idea:     []string{"我想", "主意", "灵感", "觉得", "可能", "不错", "建议"},
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
