// Package depgraph 基于 import 关系分析文件之间的依赖，并产出关键文件、
// 入口文件和依赖指标。图算法使用 gonum。
package depgraph

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gitlens/backend/internal/pkg/github"
)

type importPattern struct {
	re    *regexp.Regexp
	group int // 捕获组下标，PHP 的模式里路径在第二组
}

var importPatterns = map[string][]importPattern{
	".py": {
		{regexp.MustCompile(`^\s*import\s+([a-zA-Z0-9_.,\s]+)`), 1},
		{regexp.MustCompile(`^\s*from\s+([a-zA-Z0-9_.]+)\s+import`), 1},
	},
	".js": {
		{regexp.MustCompile(`^\s*import\s+.*\s+from\s+['"](.+?)['"]`), 1},
		{regexp.MustCompile(`^\s*const\s+.*\s+=\s+require\(['"](.+?)['"]\)`), 1},
	},
	".java": {
		{regexp.MustCompile(`^\s*import\s+([a-zA-Z0-9_.]+);`), 1},
	},
	".c": {
		{regexp.MustCompile(`^\s*#include\s+[<"](.+?)[>"]`), 1},
	},
	".php": {
		{regexp.MustCompile(`(include|require|include_once|require_once)\s*\(\s*['"](.+?)['"]\s*\)`), 2},
		{regexp.MustCompile(`(include|require|include_once|require_once)\s+['"](.+?)['"]\s*;`), 2},
	},
	".rb": {
		{regexp.MustCompile(`^\s*require\s+['"](.+?)['"]`), 1},
		{regexp.MustCompile(`^\s*require_relative\s+['"](.+?)['"]`), 1},
	},
	".go": {
		{regexp.MustCompile(`^\s*(?:import\s+)?(?:\w+\s+)?"(.+?)"`), 1},
	},
}

var defaultImportPatterns = []importPattern{
	{regexp.MustCompile(`import\s+['"](.+?)['"]`), 1},
	{regexp.MustCompile(`require\(['"](.+?)['"]\)`), 1},
	{regexp.MustCompile(`include\s+['"](.+?)['"]`), 1},
}

var definitionPatterns = map[string][]*regexp.Regexp{
	".py": {
		regexp.MustCompile(`^\s*def\s+([a-zA-Z0-9_]+)\s*\(`),
		regexp.MustCompile(`^\s*class\s+([a-zA-Z0-9_]+)`),
		regexp.MustCompile(`^\s*async\s+def\s+([a-zA-Z0-9_]+)\s*\(`),
	},
	".js": {
		regexp.MustCompile(`^\s*function\s+([a-zA-Z0-9_]+)\s*\(`),
		regexp.MustCompile(`^\s*class\s+([a-zA-Z0-9_]+)`),
		regexp.MustCompile(`^\s*const\s+([a-zA-Z0-9_]+)\s*=\s*\([^)]*\)\s*=>`),
		regexp.MustCompile(`^\s*const\s+([a-zA-Z0-9_]+)\s*=\s*function`),
	},
	".go": {
		regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([a-zA-Z0-9_]+)\s*\(`),
		regexp.MustCompile(`^\s*type\s+([a-zA-Z0-9_]+)\s+(?:struct|interface)`),
	},
	".php": {
		regexp.MustCompile(`^\s*function\s+([a-zA-Z0-9_]+)\s*\(`),
		regexp.MustCompile(`^\s*class\s+([a-zA-Z0-9_]+)`),
	},
}

// 扩展名相同处理方式的别名
var extAliases = map[string]string{
	".jsx": ".js", ".ts": ".js", ".tsx": ".js",
	".cpp": ".c", ".h": ".c", ".cc": ".c", ".hpp": ".c",
}

func normalizeExt(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if alias, ok := extAliases[ext]; ok {
		return alias
	}
	return ext
}

// KeyFile 中介中心性最高的文件
type KeyFile struct {
	Path       string  `json:"path"`
	Centrality float64 `json:"centrality"`
}

// Metrics 依赖关系的汇总指标
type Metrics struct {
	TotalFiles              int     `json:"total_files"`
	AvgDependencies         float64 `json:"avg_dependencies"`
	MaxDependencies         int     `json:"max_dependencies"`
	FileWithMaxDependencies string  `json:"file_with_max_dependencies"`
	AvgDependents           float64 `json:"avg_dependents"`
	MaxDependents           int     `json:"max_dependents"`
	FileWithMaxDependents   string  `json:"file_with_max_dependents"`
}

// Analysis 依赖分析结果
type Analysis struct {
	Imports         map[string][]string `json:"imports"`
	ImportedBy      map[string][]string `json:"imported_by"`
	Definitions     map[string][]string `json:"definitions"`
	ExtensionCounts map[string]int      `json:"extension_counts"`
	KeyFiles        []KeyFile           `json:"key_files"`
	EntryPoints     []string            `json:"entry_points"`
	IsolatedFiles   []string            `json:"isolated_files"`
	Metrics         Metrics             `json:"metrics"`
}

// Analyze 提取每个文件的 import 和定义，构建有向依赖图并计算指标
func Analyze(files []github.RepoFile) *Analysis {
	a := &Analysis{
		Imports:         make(map[string][]string),
		ImportedBy:      make(map[string][]string),
		Definitions:     make(map[string][]string),
		ExtensionCounts: make(map[string]int),
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)

	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Path))
		a.ExtensionCounts[ext]++

		patterns, ok := importPatterns[normalizeExt(f.Path)]
		if !ok {
			patterns = defaultImportPatterns
		}

		var fileImports []string
		for _, line := range strings.Split(f.Content, "\n") {
			for _, p := range patterns {
				for _, m := range p.re.FindAllStringSubmatch(line, -1) {
					name := strings.TrimSpace(m[p.group])
					if name != "" {
						fileImports = append(fileImports, name)
					}
				}
			}
		}
		a.Imports[f.Path] = fileImports

		for _, imp := range fileImports {
			for _, target := range paths {
				if target == f.Path {
					continue
				}
				if matchesImport(f.Path, imp, target) {
					a.ImportedBy[target] = append(a.ImportedBy[target], f.Path)
				}
			}
		}

		var defs []string
		for _, re := range definitionPatterns[normalizeExt(f.Path)] {
			for _, line := range strings.Split(f.Content, "\n") {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					if name := strings.TrimSpace(m[1]); name != "" {
						defs = append(defs, name)
					}
				}
			}
		}
		a.Definitions[f.Path] = defs
	}

	a.computeGraph(paths)
	a.computeMetrics(paths)
	return a
}

// matchesImport 判断 import 名是否指向目标文件。
// Python 按模块名匹配，JS 系按相对路径匹配，其他语言用子串匹配。
func matchesImport(source, importName, target string) bool {
	switch normalizeExt(source) {
	case ".py":
		moduleName := strings.TrimSuffix(path.Base(target), path.Ext(target))
		packagePath := strings.ReplaceAll(path.Dir(target), "/", ".")
		return importName == moduleName ||
			importName == packagePath ||
			strings.HasSuffix(importName, "."+moduleName) ||
			strings.HasSuffix(packagePath, "."+importName)
	case ".js":
		if strings.HasPrefix(importName, "./") || strings.HasPrefix(importName, "../") {
			resolved := path.Join(path.Dir(source), importName)
			return strings.HasPrefix(target, resolved) || strings.HasPrefix(resolved, target)
		}
		return strings.Contains(target, importName)
	default:
		return strings.Contains(target, importName)
	}
}

// computeGraph 构图并计算中心性、入口文件和孤立文件
func (a *Analysis) computeGraph(paths []string) {
	g := simple.NewDirectedGraph()
	nodes := make(map[string]*fileNode, len(paths))
	for i, p := range paths {
		n := &fileNode{id: int64(i), path: p}
		nodes[p] = n
		g.AddNode(n)
	}

	for _, source := range paths {
		for _, imp := range a.Imports[source] {
			for _, target := range paths {
				if target == source {
					continue
				}
				if strings.Contains(target, imp) {
					g.SetEdge(g.NewEdge(nodes[source], nodes[target]))
				}
			}
		}
	}

	centrality := network.Betweenness(g)
	n := len(paths)
	// 与 (n-1)(n-2) 归一化保持可比
	norm := 1.0
	if n > 2 {
		norm = float64((n - 1) * (n - 2))
	}

	keyFiles := make([]KeyFile, 0, len(paths))
	for _, p := range paths {
		keyFiles = append(keyFiles, KeyFile{Path: p, Centrality: centrality[nodes[p].id] / norm})
	}
	sort.SliceStable(keyFiles, func(i, j int) bool {
		return keyFiles[i].Centrality > keyFiles[j].Centrality
	})
	if len(keyFiles) > 10 {
		keyFiles = keyFiles[:10]
	}
	a.KeyFiles = keyFiles

	for _, p := range paths {
		if len(a.ImportedBy[p]) == 0 {
			a.EntryPoints = append(a.EntryPoints, p)
			if len(a.Imports[p]) == 0 {
				a.IsolatedFiles = append(a.IsolatedFiles, p)
			}
		}
	}
}

func (a *Analysis) computeMetrics(paths []string) {
	m := Metrics{TotalFiles: len(paths)}

	if len(a.Imports) > 0 {
		total := 0
		for _, p := range paths {
			deps := a.Imports[p]
			total += len(deps)
			if len(deps) > m.MaxDependencies {
				m.MaxDependencies = len(deps)
				m.FileWithMaxDependencies = p
			}
		}
		m.AvgDependencies = float64(total) / float64(len(a.Imports))
	}

	if len(a.ImportedBy) > 0 {
		total := 0
		for _, p := range paths {
			deps := a.ImportedBy[p]
			total += len(deps)
			if len(deps) > m.MaxDependents {
				m.MaxDependents = len(deps)
				m.FileWithMaxDependents = p
			}
		}
		m.AvgDependents = float64(total) / float64(len(a.ImportedBy))
	}

	a.Metrics = m
}
