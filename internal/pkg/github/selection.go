package github

import (
	"path"
	"sort"
	"strings"

	"github.com/gitlens/backend/internal/pkg/textenc"
)

// 不值得递归进去的目录，通常是依赖或构建产物
var skipDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"build":         true,
	"dist":          true,
	"target":        true,
	"venv":          true,
	"env":           true,
	".env":          true,
	"__pycache__":   true,
	".pytest_cache": true,
	"vendor":        true,
}

// 依赖清单文件，分析时优先拉取
var manifestNames = map[string]bool{
	"package.json":     true,
	"requirements.txt": true,
	"setup.py":         true,
	"pyproject.toml":   true,
	"go.mod":           true,
	"cargo.toml":       true,
	"gemfile":          true,
	"composer.json":    true,
	"pom.xml":          true,
	"build.gradle":     true,
}

var sourceExts = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".go": true, ".java": true, ".rb": true, ".php": true, ".rs": true,
	".c": true, ".h": true, ".cpp": true, ".cc": true, ".cs": true,
	".swift": true, ".kt": true, ".scala": true, ".vue": true,
}

func inSkippedDir(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if skipDirs[seg] {
			return true
		}
	}
	return false
}

// IsManifest 判断是否为依赖清单文件
func IsManifest(p string) bool {
	return manifestNames[strings.ToLower(path.Base(p))]
}

// IsSourceFile 判断是否为源码文件
func IsSourceFile(p string) bool {
	return sourceExts[strings.ToLower(path.Ext(p))]
}

func isLicense(p string) bool {
	base := strings.ToLower(path.Base(p))
	return strings.HasPrefix(base, "license") || strings.HasPrefix(base, "copying") || strings.HasPrefix(base, "notice")
}

func isReadme(p string) bool {
	return strings.HasPrefix(strings.ToLower(path.Base(p)), "readme")
}

// SelectFiles 从文件树中挑选值得拉取的 blob。
// 优先级：README 和依赖清单 > 许可证 > 浅层源码文件。
// 压缩产物和超大文件直接排除，总数不超过 limit。
func SelectFiles(entries []TreeEntry, limit, maxSize int) []TreeEntry {
	if limit <= 0 {
		limit = 50
	}

	type scored struct {
		entry TreeEntry
		rank  int
		depth int
	}
	var candidates []scored
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		if maxSize > 0 && e.Size > maxSize {
			continue
		}
		base := strings.ToLower(path.Base(e.Path))
		if strings.Contains(base, ".min.") {
			continue
		}

		rank := -1
		switch {
		case isReadme(e.Path), IsManifest(e.Path):
			rank = 0
		case isLicense(e.Path):
			rank = 1
		case IsSourceFile(e.Path):
			rank = 2
		}
		if rank < 0 {
			continue
		}
		candidates = append(candidates, scored{entry: e, rank: rank, depth: strings.Count(e.Path, "/")})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		if candidates[i].depth != candidates[j].depth {
			return candidates[i].depth < candidates[j].depth
		}
		return candidates[i].entry.Path < candidates[j].entry.Path
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result := make([]TreeEntry, len(candidates))
	for i, c := range candidates {
		result[i] = c.entry
	}
	return result
}

func decodeContent(raw []byte) (string, error) {
	if textenc.IsBinary(raw) {
		return "", nil
	}
	return textenc.Decode(raw)
}
