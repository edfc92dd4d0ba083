package composer

import "strings"

// StripCodeFences 去掉模型常带的 Markdown 代码围栏，只保留 HTML
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return strings.TrimSpace(strings.Replace(s, "```", "", 2))
	}

	s = strings.TrimPrefix(s, "```")
	// 围栏后的语言标识（如 html）单独占一行
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "<>") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
