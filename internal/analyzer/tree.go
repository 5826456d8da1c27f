package analyzer

import (
	"sort"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

// RenderTree 把扁平的文件树渲染成带图标和缩进的目录结构文本。
// 目录以 📁 标记并带斜杠后缀，文件以 📄 标记，每层缩进四个空格。
func RenderTree(entries []github.TreeEntry) string {
	sorted := make([]github.TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var sb strings.Builder
	for _, e := range sorted {
		depth := strings.Count(e.Path, "/")
		sb.WriteString(strings.Repeat("    ", depth))
		if e.Type == "tree" {
			sb.WriteString("📁 ")
			sb.WriteString(e.Path)
			sb.WriteString("/\n")
		} else {
			sb.WriteString("📄 ")
			sb.WriteString(e.Path)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
