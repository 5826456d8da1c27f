package plagiarism

import (
	"math/rand"
	"path"
	"sort"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

const maxSampleFileSize = 100000

// 参与查重的代码文件扩展名
var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".java": true, ".cpp": true, ".c": true,
	".cs": true, ".php": true, ".rb": true, ".go": true, ".swift": true,
	".ts": true, ".html": true, ".css": true,
}

// SampleFiles 从文件树里挑选待查重的代码文件。
// 压缩产物、依赖目录和超过100KB的文件被排除；超出 maxFiles 时
// 先保证每种扩展名至少取一个，再随机补齐剩余名额。
func SampleFiles(entries []github.TreeEntry, maxFiles int, rng *rand.Rand) []github.TreeEntry {
	if maxFiles <= 0 {
		maxFiles = 10
	}

	var candidates []github.TreeEntry
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		lower := strings.ToLower(e.Path)
		if !codeExtensions[path.Ext(lower)] {
			continue
		}
		if e.Size >= maxSampleFileSize ||
			strings.Contains(lower, "min.") ||
			strings.Contains(e.Path, "node_modules") ||
			strings.Contains(e.Path, "vendor") ||
			strings.Contains(e.Path, "dist") {
			continue
		}
		candidates = append(candidates, e)
	}

	if len(candidates) <= maxFiles {
		return candidates
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ei, ej := path.Ext(candidates[i].Path), path.Ext(candidates[j].Path)
		if ei != ej {
			return ei < ej
		}
		return candidates[i].Path < candidates[j].Path
	})

	// 第一轮：每种扩展名取一个
	selected := make([]github.TreeEntry, 0, maxFiles)
	chosen := make(map[string]bool)
	seenExt := make(map[string]bool)
	for _, e := range candidates {
		ext := path.Ext(e.Path)
		if seenExt[ext] {
			continue
		}
		seenExt[ext] = true
		chosen[e.Path] = true
		selected = append(selected, e)
		if len(selected) >= maxFiles {
			return selected
		}
	}

	// 第二轮：随机补齐
	var rest []github.TreeEntry
	for _, e := range candidates {
		if !chosen[e.Path] {
			rest = append(rest, e)
		}
	}
	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	need := maxFiles - len(selected)
	if need > len(rest) {
		need = len(rest)
	}
	selected = append(selected, rest[:need]...)
	return selected
}
