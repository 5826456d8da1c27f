package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Summary 生成依赖分析的 Markdown 摘要
func Summary(a *Analysis) string {
	var sb strings.Builder
	sb.WriteString("## Code Dependency Analysis\n\n")

	sb.WriteString("### File Type Distribution\n")
	type extCount struct {
		ext   string
		count int
	}
	exts := make([]extCount, 0, len(a.ExtensionCounts))
	for ext, count := range a.ExtensionCounts {
		if count > 0 {
			exts = append(exts, extCount{ext, count})
		}
	}
	sort.SliceStable(exts, func(i, j int) bool {
		if exts[i].count != exts[j].count {
			return exts[i].count > exts[j].count
		}
		return exts[i].ext < exts[j].ext
	})
	for _, ec := range exts {
		fmt.Fprintf(&sb, "- %s: %d files\n", ec.ext, ec.count)
	}

	m := a.Metrics
	sb.WriteString("\n### Dependency Metrics\n")
	fmt.Fprintf(&sb, "- Total files analyzed: %d\n", m.TotalFiles)
	fmt.Fprintf(&sb, "- Average dependencies per file: %.2f\n", m.AvgDependencies)
	fmt.Fprintf(&sb, "- Maximum dependencies: %d (in %s)\n", m.MaxDependencies, orNA(m.FileWithMaxDependencies))
	fmt.Fprintf(&sb, "- Average dependents per file: %.2f\n", m.AvgDependents)
	fmt.Fprintf(&sb, "- Maximum dependents: %d (for %s)\n", m.MaxDependents, orNA(m.FileWithMaxDependents))

	if len(a.KeyFiles) > 0 {
		sb.WriteString("\n### Key Files (Highest Centrality)\n")
		for _, kf := range topN(a.KeyFiles, 5) {
			fmt.Fprintf(&sb, "- %s (centrality: %.3f)\n", kf.Path, kf.Centrality)
		}
	}

	if len(a.EntryPoints) > 0 {
		sb.WriteString("\n### Potential Entry Points\n")
		for i, f := range a.EntryPoints {
			if i >= 5 {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(a.EntryPoints)-5)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	if len(a.IsolatedFiles) > 0 {
		sb.WriteString("\n### Isolated Files (No Dependencies)\n")
		for i, f := range a.IsolatedFiles {
			if i >= 5 {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(a.IsolatedFiles)-5)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func topN(files []KeyFile, n int) []KeyFile {
	if len(files) > n {
		return files[:n]
	}
	return files
}
