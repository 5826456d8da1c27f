// Package plagiarism 对仓库源码做启发式查重：扫描版权声明冲突、
// 作者标记、专有代码标识、常见抄袭片段和疑似混淆的命名。
package plagiarism

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

const minCheckableSize = 100

// Suspicious 查重命中的文件
type Suspicious struct {
	File            string  `json:"file"`
	Confidence      float64 `json:"confidence"`
	PotentialSource string  `json:"potential_source"`
	MatchType       string  `json:"match_type"`
	Snippet         string  `json:"snippet"`
}

// Result 整体查重结果
type Result struct {
	Detected        bool         `json:"plagiarism_detected"`
	CheckedFiles    int          `json:"checked_files_count"`
	SuspiciousFiles []Suspicious `json:"suspicious_files"`
	Summary         string       `json:"summary"`
}

var signaturePatterns = []struct {
	re         *regexp.Regexp
	source     string
	confidence float64
	matchType  string
}{
	{
		regexp.MustCompile(`(?i)Copyright \(c\) (?:.*\d{4})`),
		"Copyright notice for different author",
		0.7,
		"Copyright Mismatch",
	},
	{
		regexp.MustCompile(`(?i)@author\s+\S+`),
		"Author attribution mismatch",
		0.6,
		"Author Attribution",
	},
	{
		regexp.MustCompile(`(?i)DO NOT DISTRIBUTE|confidential|proprietary`),
		"Potentially proprietary code",
		0.8,
		"Proprietary Code",
	},
}

var copyrightHolderPattern = regexp.MustCompile(`(?i)Copyright\s+(?:\(c\)|©)?\s+([^,\n]+)`)

var commonSnippets = []struct {
	re         *regexp.Regexp
	source     string
	confidence float64
	matchType  string
	extension  string
}{
	{
		regexp.MustCompile(`def quicksort\(arr\):\s+if len\(arr\) <= 1:\s+return arr`),
		"Common QuickSort implementation from GeeksforGeeks",
		0.5,
		"Algorithm Implementation",
		".py",
	},
	{
		regexp.MustCompile(`function debounce\(func, wait\)`),
		"Common JavaScript utility from Underscore.js or Lodash",
		0.6,
		"Utility Function",
		".js",
	},
	{
		regexp.MustCompile(`public\s+static\s+void\s+main\(String\[\]\s+args\)`),
		"Standard Java main method - not plagiarism on its own",
		0.2,
		"Standard Boilerplate",
		".java",
	},
}

// Check 依次对每个文件做查重检查，返回汇总结果
func Check(files []github.RepoFile) *Result {
	result := &Result{CheckedFiles: len(files)}

	if len(files) == 0 {
		result.Summary = "No code files found to check for plagiarism."
		return result
	}

	for _, f := range files {
		if s := checkFile(f.Path, f.Content); s != nil {
			result.Detected = true
			result.SuspiciousFiles = append(result.SuspiciousFiles, *s)
		}
	}

	if result.Detected {
		result.Summary = fmt.Sprintf("Potential plagiarism detected in %d out of %d checked files.",
			len(result.SuspiciousFiles), len(files))
	} else {
		result.Summary = fmt.Sprintf("No obvious plagiarism detected in the %d files checked.", len(files))
	}
	return result
}

// checkFile 按优先级依次检查，命中即返回
func checkFile(filePath, content string) *Suspicious {
	if len(content) < minCheckableSize {
		return nil
	}

	if s := checkSignatures(filePath, content); s != nil {
		return s
	}
	if s := checkCopyrightHolders(filePath, content); s != nil {
		return s
	}
	if s := checkCommonSnippets(filePath, content); s != nil {
		return s
	}
	if s := checkObfuscation(filePath, content); s != nil {
		return s
	}
	return nil
}

func checkSignatures(filePath, content string) *Suspicious {
	for _, sig := range signaturePatterns {
		loc := sig.re.FindStringIndex(content)
		if loc == nil {
			continue
		}
		return &Suspicious{
			File:            filePath,
			Confidence:      sig.confidence,
			PotentialSource: sig.source,
			MatchType:       sig.matchType,
			Snippet:         contextSnippet(content, loc),
		}
	}
	return nil
}

// checkCopyrightHolders 同一文件里出现多个不同的版权所有人
func checkCopyrightHolders(filePath, content string) *Suspicious {
	holders := make(map[string]bool)
	var ordered []string
	for _, m := range copyrightHolderPattern.FindAllStringSubmatch(content, -1) {
		holder := strings.TrimSpace(m[1])
		if holder != "" && !holders[holder] {
			holders[holder] = true
			ordered = append(ordered, holder)
		}
	}
	if len(ordered) <= 1 {
		return nil
	}

	parts := make([]string, 0, len(ordered))
	for _, h := range ordered {
		parts = append(parts, "Copyright holder: "+h)
	}
	return &Suspicious{
		File:            filePath,
		Confidence:      0.7,
		PotentialSource: strings.Join(ordered, ", "),
		MatchType:       "Multiple Copyright Holders",
		Snippet:         strings.Join(parts, "; "),
	}
}

func checkCommonSnippets(filePath, content string) *Suspicious {
	ext := strings.ToLower(path.Ext(filePath))
	for _, cs := range commonSnippets {
		if cs.extension != "" && cs.extension != ext {
			continue
		}
		// 太常见的模式置信度低，不值得标记
		if cs.confidence <= 0.3 {
			continue
		}
		loc := cs.re.FindStringIndex(content)
		if loc == nil {
			continue
		}
		return &Suspicious{
			File:            filePath,
			Confidence:      cs.confidence,
			PotentialSource: cs.source,
			MatchType:       cs.matchType,
			Snippet:         contextSnippet(content, loc),
		}
	}
	return nil
}

func checkObfuscation(filePath, content string) *Suspicious {
	if !looksObfuscated(normalizeCode(filePath, content)) {
		return nil
	}
	return &Suspicious{
		File:            filePath,
		Confidence:      0.7,
		PotentialSource: "Unknown - Potentially obfuscated code",
		MatchType:       "Possible Obfuscation",
		Snippet:         "Variable/function names appear randomly generated, suggesting possible obfuscation.",
	}
}

// contextSnippet 取命中位置前后各100字符作为上下文
func contextSnippet(content string, loc []int) string {
	start := loc[0] - 100
	if start < 0 {
		start = 0
	}
	end := loc[1] + 100
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}

var (
	pyLineComment   = regexp.MustCompile(`(?m)#.*$`)
	pyDocstring     = regexp.MustCompile(`(?s)""".*?"""|'''.*?'''`)
	cLineComment    = regexp.MustCompile(`(?m)//.*$`)
	cBlockComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	identifierDecls = regexp.MustCompile(`\b(var|let|const|function|class|def|int|string|boolean|float|double)\s+([a-zA-Z_][a-zA-Z0-9_]*)\b`)
)

// normalizeCode 去掉注释并压缩空白，让命名检查不受注释干扰
func normalizeCode(filePath, content string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".py":
		content = pyLineComment.ReplaceAllString(content, "")
		content = pyDocstring.ReplaceAllString(content, "")
	case ".js", ".java", ".c", ".cpp", ".cs", ".go":
		content = cLineComment.ReplaceAllString(content, "")
		content = cBlockComment.ReplaceAllString(content, "")
	}
	return whitespaceRuns.ReplaceAllString(content, " ")
}

// looksObfuscated 变量/函数名的字符熵普遍偏高时判定为疑似混淆。
// 超过30%的名字熵大于3.5即命中。
func looksObfuscated(content string) bool {
	matches := identifierDecls.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return false
	}

	randomLooking := 0
	for _, m := range matches {
		name := m[2]
		if len(name) < 4 {
			continue
		}
		if shannonEntropy(name) > 3.5 && !isCommonName(name) {
			randomLooking++
		}
	}
	return randomLooking > 0 && float64(randomLooking)/float64(len(matches)) > 0.3
}

func shannonEntropy(text string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range text {
		counts[r]++
		total++
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

var commonNames = map[string]bool{
	"index": true, "count": true, "value": true, "result": true, "temp": true,
	"data": true, "array": true, "string": true, "number": true, "object": true,
	"element": true, "node": true, "item": true, "response": true, "request": true,
	"message": true, "buffer": true, "stream": true, "file": true, "input": true,
	"output": true, "error": true, "logger": true, "handler": true, "helper": true,
	"util": true, "factory": true, "manager": true, "service": true, "provider": true,
	"model": true, "view": true, "controller": true, "component": true,
	"container": true, "wrapper": true,
}

func isCommonName(name string) bool {
	return commonNames[strings.ToLower(name)]
}
