package analyzer

import (
	"regexp"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

const (
	largeFileThreshold       = 500
	complexFunctionThreshold = 50
)

// QualityMetrics 代码质量指标
type QualityMetrics struct {
	TotalFiles       int               `json:"total_files"`
	TotalLines       int               `json:"total_lines"`
	BlankLines       int               `json:"blank_lines"`
	LargeFiles       []LargeFile       `json:"large_files"`
	ComplexFunctions []ComplexFunction `json:"complex_functions"`
	PotentialIssues  []Issue           `json:"potential_issues"`
}

// LargeFile 超过行数阈值的文件
type LargeFile struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
}

// ComplexFunction 过长的函数
type ComplexFunction struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Lines    int    `json:"lines"`
}

// Issue 扫描到的可疑代码行
type Issue struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Issue string `json:"issue"`
}

// 各语言的函数定义行
var functionDefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`),                               // Python
	regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`),             // Go
	regexp.MustCompile(`^\s*(?:async\s+)?function\s+(\w+)\s*\(`),             // JavaScript
	regexp.MustCompile(`^\s*(?:public|private|protected)[\w\s<>\[\]]*\s(\w+)\s*\([^;]*\)\s*\{`), // Java/C#
}

var issuePatterns = []struct {
	re   *regexp.Regexp
	desc string
}{
	{regexp.MustCompile(`(?i)(password|passwd|secret|api_?key|token)\s*=\s*["'][^"']{4,}["']`), "possible hardcoded credential"},
	{regexp.MustCompile(`\beval\s*\(`), "use of eval"},
	{regexp.MustCompile(`\bexec\s*\(`), "use of exec"},
	{regexp.MustCompile(`(?i)["']\s*SELECT\s+.*["']\s*\+`), "possible SQL injection via string concatenation"},
	{regexp.MustCompile(`(?i)\bmd5\s*\(`), "weak hash function"},
}

// AnalyzeQuality 统计文件行数并扫描过大文件、过长函数和可疑代码行
func AnalyzeQuality(files []github.RepoFile) *QualityMetrics {
	metrics := &QualityMetrics{TotalFiles: len(files)}

	for _, f := range files {
		lines := strings.Split(f.Content, "\n")
		metrics.TotalLines += len(lines)

		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				metrics.BlankLines++
			}
		}

		if len(lines) > largeFileThreshold {
			metrics.LargeFiles = append(metrics.LargeFiles, LargeFile{Path: f.Path, Lines: len(lines)})
		}

		metrics.ComplexFunctions = append(metrics.ComplexFunctions, findComplexFunctions(f.Path, lines)...)
		metrics.PotentialIssues = append(metrics.PotentialIssues, scanIssues(f.Path, lines)...)
	}
	return metrics
}

// findComplexFunctions 用函数定义行切分文件，相邻定义之间的行数即函数长度
func findComplexFunctions(path string, lines []string) []ComplexFunction {
	type def struct {
		name string
		line int
	}
	var defs []def
	for i, line := range lines {
		for _, re := range functionDefPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				defs = append(defs, def{name: m[1], line: i})
				break
			}
		}
	}

	var result []ComplexFunction
	for i, d := range defs {
		end := len(lines)
		if i+1 < len(defs) {
			end = defs[i+1].line
		}
		length := end - d.line
		if length > complexFunctionThreshold {
			result = append(result, ComplexFunction{File: path, Function: d.name, Lines: length})
		}
	}
	return result
}

func scanIssues(path string, lines []string) []Issue {
	var issues []Issue
	for i, line := range lines {
		for _, p := range issuePatterns {
			if p.re.MatchString(line) {
				issues = append(issues, Issue{File: path, Line: i + 1, Issue: p.desc})
			}
		}
	}
	return issues
}
