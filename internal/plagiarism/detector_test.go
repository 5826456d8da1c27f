package plagiarism

import (
	"fmt"
	"math/rand"
	"path"
	"strings"
	"testing"

	"github.com/gitlens/backend/internal/pkg/github"
)

// 凑够最小可检查长度的无害填充
func pad(s string) string {
	return s + "\n" + strings.Repeat("// filler line\n", 10)
}

func TestCheckSkipsTinyFiles(t *testing.T) {
	result := Check([]github.RepoFile{
		{Path: "tiny.py", Content: "Copyright (c) 1999 Someone Else"},
	})
	if result.Detected {
		t.Error("不足100字符的文件应跳过")
	}
	if result.CheckedFiles != 1 {
		t.Errorf("检查数应为1: %d", result.CheckedFiles)
	}
}

func TestCheckCopyrightSignature(t *testing.T) {
	content := pad("/* Copyright (c) 2019 Megacorp Inc. */\nfunction run() {}")
	result := Check([]github.RepoFile{{Path: "lib.js", Content: content}})

	if !result.Detected {
		t.Fatal("期望命中版权声明")
	}
	s := result.SuspiciousFiles[0]
	if s.MatchType != "Copyright Mismatch" {
		t.Errorf("命中类型不符: %s", s.MatchType)
	}
	if s.Confidence != 0.7 {
		t.Errorf("置信度不符: %v", s.Confidence)
	}
	if !strings.Contains(s.Snippet, "Megacorp") {
		t.Errorf("片段应包含上下文: %q", s.Snippet)
	}
}

func TestCheckProprietaryMarker(t *testing.T) {
	content := pad("// DO NOT DISTRIBUTE\nvar secretSauce = 1;")
	result := Check([]github.RepoFile{{Path: "internal.js", Content: content}})

	if !result.Detected {
		t.Fatal("期望命中专有代码标识")
	}
	s := result.SuspiciousFiles[0]
	if s.MatchType != "Proprietary Code" || s.Confidence != 0.8 {
		t.Errorf("命中不符: %+v", s)
	}
}

func TestCheckAuthorTag(t *testing.T) {
	content := pad("/**\n * @author john.doe@elsewhere.com\n */\nclass Widget {}")
	result := Check([]github.RepoFile{{Path: "Widget.java", Content: content}})

	if !result.Detected {
		t.Fatal("期望命中作者标记")
	}
	if result.SuspiciousFiles[0].MatchType != "Author Attribution" {
		t.Errorf("命中类型不符: %s", result.SuspiciousFiles[0].MatchType)
	}
}

func TestCheckMultipleCopyrightHolders(t *testing.T) {
	// 不带 (c) 前缀，绕过签名检查直接触发多版权所有人检查
	content := pad("# Copyright Alice Labs\n# some code\n# Copyright Bob Industries\nx = 1")
	s := checkCopyrightHolders("mixed.py", content)
	if s == nil {
		t.Fatal("期望命中多版权所有人")
	}
	if s.MatchType != "Multiple Copyright Holders" {
		t.Errorf("命中类型不符: %s", s.MatchType)
	}
	if !strings.Contains(s.PotentialSource, "Alice Labs") || !strings.Contains(s.PotentialSource, "Bob Industries") {
		t.Errorf("来源应列出所有版权所有人: %s", s.PotentialSource)
	}
}

func TestCheckCommonSnippets(t *testing.T) {
	content := pad("def quicksort(arr):\n    if len(arr) <= 1:\n        return arr\n    return arr")
	s := checkCommonSnippets("sort.py", content)
	if s == nil {
		t.Fatal("期望命中常见片段")
	}
	if s.Confidence != 0.5 {
		t.Errorf("置信度不符: %v", s.Confidence)
	}

	// Java main 是低置信度样板代码，不应标记
	javaMain := pad("public static void main(String[] args) {\n    System.out.println(1);\n}")
	if s := checkCommonSnippets("Main.java", javaMain); s != nil {
		t.Errorf("低置信度样板不应命中: %+v", s)
	}

	// 扩展名不匹配时不检查
	if s := checkCommonSnippets("sort.js", content); s != nil {
		t.Errorf("扩展名不符不应命中: %+v", s)
	}
}

func TestCheckObfuscation(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "var xKq9fVbZw2mRtY%d = %d;\n", i, i)
	}
	content := pad(sb.String())

	s := checkObfuscation("ob.js", content)
	if s == nil {
		t.Fatal("高熵命名应判定为疑似混淆")
	}
	if s.MatchType != "Possible Obfuscation" {
		t.Errorf("命中类型不符: %s", s.MatchType)
	}

	normal := pad("var count = 1;\nvar result = 2;\nvar index = 3;\nfunction helper() {}")
	if s := checkObfuscation("ok.js", normal); s != nil {
		t.Errorf("常规命名不应命中: %+v", s)
	}
}

func TestShannonEntropy(t *testing.T) {
	if e := shannonEntropy("aaaa"); e != 0 {
		t.Errorf("单一字符熵应为0: %v", e)
	}
	low := shannonEntropy("counter")
	high := shannonEntropy("xKq9fVbZw2mRtY")
	if high <= low {
		t.Errorf("随机名熵应更高: low=%v high=%v", low, high)
	}
}

func TestNormalizeCodeStripsComments(t *testing.T) {
	py := normalizeCode("a.py", "x = 1  # comment\n\"\"\"docstring\"\"\"\ny = 2")
	if strings.Contains(py, "comment") || strings.Contains(py, "docstring") {
		t.Errorf("Python 注释应被去掉: %q", py)
	}

	js := normalizeCode("a.js", "var x = 1; // note\n/* block */ var y = 2;")
	if strings.Contains(js, "note") || strings.Contains(js, "block") {
		t.Errorf("C 风格注释应被去掉: %q", js)
	}
}

func TestSampleFilesFilters(t *testing.T) {
	entries := []github.TreeEntry{
		{Path: "app.py", Type: "blob", Size: 1000},
		{Path: "huge.py", Type: "blob", Size: 200000},
		{Path: "lib.min.js", Type: "blob", Size: 1000},
		{Path: "node_modules/x/index.js", Type: "blob", Size: 1000},
		{Path: "vendor/y.go", Type: "blob", Size: 1000},
		{Path: "assets/logo.png", Type: "blob", Size: 1000},
		{Path: "src", Type: "tree"},
	}
	got := SampleFiles(entries, 10, rand.New(rand.NewSource(1)))
	if len(got) != 1 || got[0].Path != "app.py" {
		t.Errorf("过滤结果不符: %+v", got)
	}
}

func TestSampleFilesDiversityFirst(t *testing.T) {
	var entries []github.TreeEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, github.TreeEntry{Path: fmt.Sprintf("py/f%02d.py", i), Type: "blob", Size: 500})
	}
	entries = append(entries,
		github.TreeEntry{Path: "web/app.js", Type: "blob", Size: 500},
		github.TreeEntry{Path: "core/main.go", Type: "blob", Size: 500},
	)

	got := SampleFiles(entries, 5, rand.New(rand.NewSource(42)))
	if len(got) != 5 {
		t.Fatalf("期望5个文件, 实际%d", len(got))
	}

	exts := make(map[string]bool)
	for _, e := range got {
		exts[path.Ext(e.Path)] = true
	}
	// 三种扩展名都应至少出现一次
	for _, ext := range []string{".py", ".js", ".go"} {
		if !exts[ext] {
			t.Errorf("采样应覆盖扩展名 %s: %+v", ext, got)
		}
	}
}
