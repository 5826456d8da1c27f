package analyzer

import (
	"strings"
	"testing"

	"github.com/gitlens/backend/internal/pkg/github"
)

func TestRenderTree(t *testing.T) {
	entries := []github.TreeEntry{
		{Path: "src/main.go", Type: "blob"},
		{Path: "src", Type: "tree"},
		{Path: "README.md", Type: "blob"},
	}
	out := RenderTree(entries)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("期望3行, 实际%d行: %q", len(lines), out)
	}
	if lines[0] != "📄 README.md" {
		t.Errorf("首行不符: %q", lines[0])
	}
	if lines[1] != "📁 src/" {
		t.Errorf("目录行不符: %q", lines[1])
	}
	if lines[2] != "    📄 src/main.go" {
		t.Errorf("子文件应缩进: %q", lines[2])
	}
}

func TestIdentifyFrameworks(t *testing.T) {
	folderStructure := `
📁 src/
    📄 package.json
    📄 app.js
    📁 components/
        📄 Button.jsx
    📁 styles/
        📄 main.css
📁 tests/
    📄 test.js
`
	frameworks := IdentifyFrameworks(folderStructure, nil)

	has := func(name string) bool {
		for _, f := range frameworks {
			if f == name {
				return true
			}
		}
		return false
	}
	if !has("Node.js") {
		t.Error("期望识别出 Node.js")
	}
	if !has("JavaScript") {
		t.Error("期望识别出 JavaScript")
	}
	if !has("React") {
		t.Error("jsx 文件应触发 React")
	}
}

func TestIdentifyFrameworksWithFileContents(t *testing.T) {
	files := []github.RepoFile{
		{Path: "src/app.js", Content: "import React from 'react';\nconst express = require('express');"},
		{Path: "package.json", Content: `{"dependencies": {"react": "^17.0.2", "express": "^4.17.1"}}`},
	}
	frameworks := IdentifyFrameworks("", files)

	has := func(name string) bool {
		for _, f := range frameworks {
			if f == name {
				return true
			}
		}
		return false
	}
	if !has("React") {
		t.Error("文件内容应触发 React")
	}
	if !has("Express") {
		t.Error("文件内容应触发 Express")
	}
}

func TestAnalyzeQuality(t *testing.T) {
	large := "// header\n" + strings.Repeat("var x = 1\n", 510)
	files := []github.RepoFile{
		{Path: "test.py", Content: "def hello():\n    return 'Hello World'\n\n# A comment\n"},
		{Path: "large.js", Content: large},
	}

	metrics := AnalyzeQuality(files)

	if metrics.TotalFiles != 2 {
		t.Errorf("期望2个文件, 实际%d", metrics.TotalFiles)
	}
	if metrics.TotalLines <= 510 {
		t.Errorf("总行数应大于510, 实际%d", metrics.TotalLines)
	}
	if metrics.BlankLines == 0 {
		t.Error("期望统计到空行")
	}

	var largePaths []string
	for _, f := range metrics.LargeFiles {
		largePaths = append(largePaths, f.Path)
	}
	if len(largePaths) != 1 || largePaths[0] != "large.js" {
		t.Errorf("large.js 应被识别为大文件: %v", largePaths)
	}
}

func TestAnalyzeQualityComplexFunctions(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("def long_one():\n")
	for i := 0; i < 60; i++ {
		sb.WriteString("    x = 1\n")
	}
	sb.WriteString("def short_one():\n    return 1\n")

	metrics := AnalyzeQuality([]github.RepoFile{{Path: "mod.py", Content: sb.String()}})
	if len(metrics.ComplexFunctions) != 1 {
		t.Fatalf("期望1个复杂函数, 实际%d", len(metrics.ComplexFunctions))
	}
	if metrics.ComplexFunctions[0].Function != "long_one" {
		t.Errorf("函数名不符: %s", metrics.ComplexFunctions[0].Function)
	}
}

func TestAnalyzeQualityPotentialIssues(t *testing.T) {
	files := []github.RepoFile{
		{Path: "bad.py", Content: "password = \"hunter22\"\nresult = eval(user_input)\n"},
	}
	metrics := AnalyzeQuality(files)
	if len(metrics.PotentialIssues) != 2 {
		t.Fatalf("期望2个问题, 实际%d: %+v", len(metrics.PotentialIssues), metrics.PotentialIssues)
	}
	if metrics.PotentialIssues[0].Line != 1 {
		t.Errorf("硬编码口令应在第1行: %+v", metrics.PotentialIssues[0])
	}
}

func TestParseManifests(t *testing.T) {
	files := []github.RepoFile{
		{Path: "package.json", Content: `{"dependencies": {"react": "^17.0.2"}, "devDependencies": {"jest": "^27.0.0"}}`},
		{Path: "requirements.txt", Content: "flask==2.0.1\nrequests[socks]>=2.25\n# comment\n\n"},
		{Path: "go.mod", Content: "module example.com/m\n\ngo 1.21\n\nrequire (\n\tgithub.com/gin-gonic/gin v1.9.0\n\tgolang.org/x/text v0.14.0 // indirect\n)\n"},
	}

	deps := ParseManifests(files)

	byName := make(map[string]Dependency)
	for _, d := range deps {
		byName[d.Name] = d
	}

	if d, ok := byName["react"]; !ok || d.Version != "^17.0.2" || d.Dev {
		t.Errorf("react 解析不符: %+v", d)
	}
	if d, ok := byName["jest"]; !ok || !d.Dev {
		t.Errorf("jest 应标记为开发依赖: %+v", d)
	}
	if d, ok := byName["flask"]; !ok || d.Version != "==2.0.1" {
		t.Errorf("flask 解析不符: %+v", d)
	}
	if d, ok := byName["requests"]; !ok || d.Name != "requests" {
		t.Errorf("extras 标记应被去掉: %+v", d)
	}
	if d, ok := byName["github.com/gin-gonic/gin"]; !ok || d.Version != "v1.9.0" {
		t.Errorf("go.mod 依赖解析不符: %+v", d)
	}
	if d, ok := byName["golang.org/x/text"]; !ok || !d.Dev {
		t.Errorf("indirect 依赖应标记: %+v", d)
	}
}

func TestDetectLicense(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"MIT License\n\nPermission is hereby granted, free of charge...", "MIT"},
		{"Apache License\nVersion 2.0, January 2004", "Apache-2.0"},
		{"GNU GENERAL PUBLIC LICENSE\nVersion 3, 29 June 2007", "GPL-3.0"},
		{"some random text", "Unknown"},
	}
	for _, c := range cases {
		got := DetectLicense([]github.RepoFile{{Path: "LICENSE", Content: c.content}})
		if got != c.want {
			t.Errorf("DetectLicense(%q...) = %s, 期望 %s", c.content[:20], got, c.want)
		}
	}

	if got := DetectLicense([]github.RepoFile{{Path: "main.go", Content: "package main"}}); got != "" {
		t.Errorf("无许可证文件时应返回空串, 实际 %q", got)
	}
}
