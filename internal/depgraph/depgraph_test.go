package depgraph

import (
	"strings"
	"testing"

	"github.com/gitlens/backend/internal/pkg/github"
)

func pythonFixture() []github.RepoFile {
	return []github.RepoFile{
		{Path: "main.py", Content: "import os\nfrom core import engine\n\nif __name__ == '__main__':\n    pass\n"},
		{Path: "utils.py", Content: "def helper():\n    return 1\n"},
		{Path: "core/engine.py", Content: "import utils\n\nclass Engine:\n    pass\n"},
		{Path: "standalone.py", Content: "X = 1\n"},
	}
}

func TestAnalyzeImportsAndDefinitions(t *testing.T) {
	a := Analyze(pythonFixture())

	if len(a.Imports["main.py"]) != 2 {
		t.Errorf("main.py 应有2个import: %v", a.Imports["main.py"])
	}
	importedBy := a.ImportedBy["utils.py"]
	if len(importedBy) != 1 || importedBy[0] != "core/engine.py" {
		t.Fatalf("utils.py 应被 core/engine.py 引用: %v", importedBy)
	}

	defs := a.Definitions["core/engine.py"]
	if len(defs) != 1 || defs[0] != "Engine" {
		t.Errorf("core/engine.py 定义不符: %v", defs)
	}
	if len(a.Definitions["utils.py"]) != 1 || a.Definitions["utils.py"][0] != "helper" {
		t.Errorf("utils.py 定义不符: %v", a.Definitions["utils.py"])
	}
}

func TestAnalyzeEntryPointsAndIsolated(t *testing.T) {
	a := Analyze(pythonFixture())

	entry := make(map[string]bool)
	for _, f := range a.EntryPoints {
		entry[f] = true
	}
	if !entry["main.py"] {
		t.Error("main.py 应为入口文件")
	}
	if entry["utils.py"] {
		t.Error("utils.py 被引用，不应为入口文件")
	}

	if len(a.IsolatedFiles) != 1 || a.IsolatedFiles[0] != "standalone.py" {
		t.Errorf("孤立文件不符: %v", a.IsolatedFiles)
	}
}

func TestAnalyzeKeyFilesCentrality(t *testing.T) {
	// main -> engine -> utils 是唯一路径，engine 的中介中心性应最高
	a := Analyze(pythonFixture())

	if len(a.KeyFiles) == 0 {
		t.Fatal("期望有关键文件")
	}
	top := a.KeyFiles[0]
	if top.Path != "core/engine.py" {
		t.Errorf("中心性最高的应为 core/engine.py, 实际: %s (%.3f)", top.Path, top.Centrality)
	}
	if top.Centrality <= 0 {
		t.Errorf("中心性应大于0: %.3f", top.Centrality)
	}
}

func TestAnalyzeMetrics(t *testing.T) {
	a := Analyze(pythonFixture())
	m := a.Metrics

	if m.TotalFiles != 4 {
		t.Errorf("文件总数不符: %d", m.TotalFiles)
	}
	if m.MaxDependencies != 2 || m.FileWithMaxDependencies != "main.py" {
		t.Errorf("依赖最多的文件不符: %d %s", m.MaxDependencies, m.FileWithMaxDependencies)
	}
	if m.AvgDependencies <= 0 {
		t.Errorf("平均依赖数应大于0: %.2f", m.AvgDependencies)
	}
}

func TestExportDOT(t *testing.T) {
	a := Analyze(pythonFixture())
	out, err := ExportDOT(a, 30)
	if err != nil {
		t.Fatalf("导出DOT失败: %v", err)
	}
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("应为有向图: %q", out[:20])
	}
	if !strings.Contains(out, "main.py") || !strings.Contains(out, "utils.py") {
		t.Errorf("DOT 输出缺少节点:\n%s", out)
	}
	if !strings.Contains(out, "->") {
		t.Error("DOT 输出应包含边")
	}
}

func TestExportDOTNodeLimit(t *testing.T) {
	a := Analyze(pythonFixture())
	out, err := ExportDOT(a, 2)
	if err != nil {
		t.Fatalf("导出DOT失败: %v", err)
	}
	count := strings.Count(out, ".py")
	if count == 0 {
		t.Error("限流后仍应有节点")
	}
}

func TestCleanPath(t *testing.T) {
	if got := cleanPath("a/b.py"); got != "a/b.py" {
		t.Errorf("短路径应保持不变: %s", got)
	}
	if got := cleanPath("a/b/c/d/e.py"); got != "../c/d/e.py" {
		t.Errorf("长路径应截断: %s", got)
	}
}

func TestSummary(t *testing.T) {
	a := Analyze(pythonFixture())
	s := Summary(a)

	for _, want := range []string{
		"## Code Dependency Analysis",
		"### File Type Distribution",
		"- .py: 4 files",
		"### Dependency Metrics",
		"- Total files analyzed: 4",
		"### Potential Entry Points",
		"### Isolated Files",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("摘要缺少 %q:\n%s", want, s)
		}
	}
}
