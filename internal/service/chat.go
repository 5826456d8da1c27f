package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/analyzer"
	"github.com/gitlens/backend/internal/depgraph"
	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/pkg/llm"
	"github.com/gitlens/backend/internal/plagiarism"
	"github.com/gitlens/backend/internal/repository"
)

// ChatService 基于分析结果的仓库问答
type ChatService struct {
	cfg        *config.Config
	repoRepo   repository.RepoRepository
	reportRepo repository.ReportRepository
	chatRepo   repository.ChatRepository
	snapshot   *SnapshotService
	llm        *llm.Client
}

func NewChatService(
	cfg *config.Config,
	repoRepo repository.RepoRepository,
	reportRepo repository.ReportRepository,
	chatRepo repository.ChatRepository,
	snapshot *SnapshotService,
	llmClient *llm.Client,
) *ChatService {
	return &ChatService{
		cfg:        cfg,
		repoRepo:   repoRepo,
		reportRepo: reportRepo,
		chatRepo:   chatRepo,
		snapshot:   snapshot,
		llm:        llmClient,
	}
}

var ErrAnalysisRequired = errors.New("repository has not been analyzed yet")

// 各任务报告的结构化负载
type structurePayload struct {
	Frameworks      []string `json:"frameworks"`
	FolderStructure string   `json:"folder_structure"`
}

type qualityPayload struct {
	Metrics      analyzer.QualityMetrics `json:"metrics"`
	Dependencies []analyzer.Dependency   `json:"dependencies"`
	License      string                  `json:"license"`
}

type depsPayload struct {
	Analysis depgraph.Analysis `json:"analysis"`
	Dot      string            `json:"dot"`
}

type repoContext struct {
	structure *structurePayload
	quality   *qualityPayload
	deps      *depsPayload
	plag      *plagiarism.Result
}

// 用户消息中的文件提法
var (
	quotedFilePattern = regexp.MustCompile("(?i)(?:explain|tell me about|analyze|what does|how does|show me|look at).*?(`|'|\")([^`'\"]+\\.[a-zA-Z0-9]+)(`|'|\")")
	altFilePattern    = regexp.MustCompile("(?i)(?:file|code in|implementation of|content of).*?(`|'|\")([^`'\"]+\\.[a-zA-Z0-9]+)(`|'|\")")
	directFilePattern = regexp.MustCompile(`(?i)\b([a-zA-Z0-9_\-\/\.]+\.(py|js|java|html|css|jsx|tsx|cpp|c|h|cs|go|rb|php|ts))\b`)
)

// Chat 回答关于仓库的问题，带上下文和对话历史
func (s *ChatService) Chat(ctx context.Context, repoID uint, message string) (string, error) {
	repo, err := s.repoRepo.GetBasic(repoID)
	if err != nil {
		return "", fmt.Errorf("获取仓库失败: %w", err)
	}

	rc, err := s.loadContext(repoID)
	if err != nil {
		return "", err
	}

	// 快照不可用时退化为仅报告上下文
	snapshot, err := s.snapshot.Get(ctx, repo, 0)
	if err != nil {
		klog.Warningf("获取仓库快照失败，对话降级为报告上下文: repoID=%d, error=%v", repoID, err)
		snapshot = &RepoSnapshot{}
	}

	systemPrompt := s.buildSystemPrompt(repo, rc, snapshot)
	systemPrompt += s.inlineMentionedFiles(ctx, repo, snapshot, message)
	systemPrompt += chatClosingInstruction

	messages := []llm.ChatMessage{{Role: "system", Content: systemPrompt}}

	history, err := s.chatRepo.Recent(repoID, s.cfg.Analysis.HistoryWindow*2)
	if err != nil {
		klog.Warningf("获取对话历史失败: repoID=%d, error=%v", repoID, err)
	}
	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: message})

	reply, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("对话请求失败: %w", err)
	}

	if err := s.chatRepo.Append(&model.ChatMessage{RepositoryID: repoID, Role: "user", Content: message}); err != nil {
		klog.Errorf("保存用户消息失败: repoID=%d, error=%v", repoID, err)
	}
	if err := s.chatRepo.Append(&model.ChatMessage{RepositoryID: repoID, Role: "assistant", Content: reply}); err != nil {
		klog.Errorf("保存回答失败: repoID=%d, error=%v", repoID, err)
	}

	return reply, nil
}

// loadContext 读取各类型最新报告的结构化负载
func (s *ChatService) loadContext(repoID uint) (*repoContext, error) {
	rc := &repoContext{}

	report, err := s.reportRepo.GetLatestByType(repoID, model.TaskTypeStructure)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAnalysisRequired
		}
		return nil, fmt.Errorf("获取结构报告失败: %w", err)
	}
	rc.structure = &structurePayload{}
	if err := json.Unmarshal([]byte(report.Payload), rc.structure); err != nil {
		klog.Warningf("结构报告负载解析失败: repoID=%d, error=%v", repoID, err)
	}

	if report, err := s.reportRepo.GetLatestByType(repoID, model.TaskTypeQuality); err == nil {
		rc.quality = &qualityPayload{}
		if err := json.Unmarshal([]byte(report.Payload), rc.quality); err != nil {
			klog.Warningf("质量报告负载解析失败: repoID=%d, error=%v", repoID, err)
			rc.quality = nil
		}
	}
	if report, err := s.reportRepo.GetLatestByType(repoID, model.TaskTypeDependencies); err == nil {
		rc.deps = &depsPayload{}
		if err := json.Unmarshal([]byte(report.Payload), rc.deps); err != nil {
			klog.Warningf("依赖报告负载解析失败: repoID=%d, error=%v", repoID, err)
			rc.deps = nil
		}
	}
	if report, err := s.reportRepo.GetLatestByType(repoID, model.TaskTypePlagiarism); err == nil {
		rc.plag = &plagiarism.Result{}
		if err := json.Unmarshal([]byte(report.Payload), rc.plag); err != nil {
			klog.Warningf("查重报告负载解析失败: repoID=%d, error=%v", repoID, err)
			rc.plag = nil
		}
	}

	return rc, nil
}

// buildSystemPrompt 组装仓库上下文
func (s *ChatService) buildSystemPrompt(repo *model.Repository, rc *repoContext, snapshot *RepoSnapshot) string {
	var sb strings.Builder

	sb.WriteString("You are assisting with a GitHub repository analysis. Here is the information about the repository:\n\n")
	sb.WriteString(fmt.Sprintf("Repository: %s/%s\n", repo.Owner, repo.Name))
	if repo.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", repo.Description))
	}
	sb.WriteString(fmt.Sprintf("Primary language: %s\n\n", orUnknown(repo.Language)))

	sb.WriteString(fmt.Sprintf("Folder Structure:\n%s\n\n", rc.structure.FolderStructure))
	sb.WriteString(fmt.Sprintf("Frameworks:\n%s\n\n", strings.Join(rc.structure.Frameworks, ", ")))

	if rc.quality != nil {
		m := rc.quality.Metrics
		sb.WriteString("Code Quality Metrics:\n")
		sb.WriteString(fmt.Sprintf("- Total lines of code: %d\n", m.TotalLines))
		sb.WriteString(fmt.Sprintf("- Blank lines: %d\n", m.BlankLines))
		if len(m.LargeFiles) > 0 {
			sb.WriteString(fmt.Sprintf("- Large files: %d\n", len(m.LargeFiles)))
			for _, f := range head(m.LargeFiles, 5) {
				sb.WriteString(fmt.Sprintf("  - %s (%d lines)\n", f.Path, f.Lines))
			}
		}
		if len(m.ComplexFunctions) > 0 {
			sb.WriteString(fmt.Sprintf("- Complex functions: %d\n", len(m.ComplexFunctions)))
			for _, f := range head(m.ComplexFunctions, 5) {
				sb.WriteString(fmt.Sprintf("  - %s: %s (%d lines)\n", f.File, f.Function, f.Lines))
			}
		}
		if len(m.PotentialIssues) > 0 {
			sb.WriteString(fmt.Sprintf("- Potential issues: %d\n", len(m.PotentialIssues)))
			for _, issue := range head(m.PotentialIssues, 5) {
				sb.WriteString(fmt.Sprintf("  - %s line %d: %s\n", issue.File, issue.Line, issue.Issue))
			}
		}
		if rc.quality.License != "" {
			sb.WriteString(fmt.Sprintf("- License: %s\n", rc.quality.License))
		}
	}

	if rc.deps != nil {
		a := rc.deps.Analysis
		sb.WriteString("\nCode Dependency Analysis:\n")
		keyFiles := make([]string, 0, 3)
		for _, kf := range head(a.KeyFiles, 3) {
			keyFiles = append(keyFiles, kf.Path)
		}
		sb.WriteString(fmt.Sprintf("- Key files: %s\n", strings.Join(keyFiles, ", ")))
		sb.WriteString(fmt.Sprintf("- Entry points: %s\n", strings.Join(head(a.EntryPoints, 3), ", ")))
		sb.WriteString(fmt.Sprintf("- Average dependencies per file: %.2f\n", a.Metrics.AvgDependencies))
	}

	if len(snapshot.Files) > 0 {
		sb.WriteString("\nFile Contents:\n")
		sb.WriteString(fmt.Sprintf("I have access to the contents of %d files from this repository.\n", len(snapshot.Files)))
		sb.WriteString("If the user asks about specific files or code implementation, I should provide detailed explanations based on these file contents.\n\n")
		sb.WriteString("Files available for detailed analysis:\n")
		for i, f := range snapshot.Files {
			if i == 20 {
				sb.WriteString(fmt.Sprintf("- ... and %d more files\n", len(snapshot.Files)-20))
				break
			}
			sb.WriteString(fmt.Sprintf("- %s\n", f.Path))
		}
	}

	if rc.plag != nil {
		sb.WriteString(fmt.Sprintf("\nPlagiarism Check Results:\n%s\n\n", rc.plag.Summary))
		if rc.plag.Detected {
			sb.WriteString("Suspicious Files:\n")
			for _, f := range rc.plag.SuspiciousFiles {
				sb.WriteString(fmt.Sprintf("- %s - %s (Confidence: %d%%)\n  Potential source: %s\n  Snippet: %s\n\n",
					f.File, f.MatchType, int(f.Confidence*100), f.PotentialSource, f.Snippet))
			}
		}
	}

	return sb.String()
}

const chatClosingInstruction = "\nWhile you have all this information, the user only sees the folder structure, a summary of code metrics, and plagiarism results if performed. " +
	"If they ask about frameworks or technologies, explain them based on the frameworks information I've provided to you. " +
	"If they ask about specific files or code, use the file contents I've provided to give detailed explanations. " +
	"Analyze the code logic and structure to provide meaningful insights about implementation details, architecture, and design patterns. " +
	"If asked about a specific function or feature, find relevant code in the file contents and explain how it works. " +
	"Similarly, use the additional analysis information when relevant, but don't directly mention that you were given this data separately. " +
	"If they ask about plagiarism, provide insights based on the plagiarism check results if available."

// detectFileMentions 提取用户消息中提到的文件路径
func detectFileMentions(message string) []string {
	var mentions []string
	seen := make(map[string]bool)
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			mentions = append(mentions, path)
		}
	}

	for _, m := range quotedFilePattern.FindAllStringSubmatch(message, -1) {
		add(m[2])
	}
	for _, m := range altFilePattern.FindAllStringSubmatch(message, -1) {
		add(m[2])
	}
	for _, m := range directFilePattern.FindAllStringSubmatch(message, -1) {
		add(m[1])
	}
	return mentions
}

// inlineMentionedFiles 把提到的文件内容内联进上下文
// 优先精确匹配，其次子串匹配；快照里没有内容时补拉单个文件
func (s *ChatService) inlineMentionedFiles(ctx context.Context, repo *model.Repository, snapshot *RepoSnapshot, message string) string {
	mentions := detectFileMentions(message)
	if len(mentions) == 0 {
		return ""
	}

	var sb strings.Builder
	maxPreview := s.cfg.Analysis.FilePreviewMax

	for _, mention := range mentions {
		if f, ok := snapshot.FindFile(mention); ok {
			writeFileContent(&sb, f.Path, "", f.Content, maxPreview)
			continue
		}

		matched := ""
		for i := range snapshot.Files {
			if strings.Contains(snapshot.Files[i].Path, mention) {
				matched = snapshot.Files[i].Path
				break
			}
		}
		if matched != "" {
			if f, ok := snapshot.FindFile(matched); ok {
				writeFileContent(&sb, matched, mention, f.Content, maxPreview)
			}
			continue
		}

		// 快照抽样之外的文件按需补拉
		f, err := s.snapshot.FetchSingle(ctx, repo, snapshot, mention)
		if err != nil {
			klog.V(6).Infof("补拉文件失败: repoID=%d, path=%s, error=%v", repo.ID, mention, err)
			continue
		}
		writeFileContent(&sb, f.Path, "", f.Content, maxPreview)
	}

	return sb.String()
}

func writeFileContent(sb *strings.Builder, path, mention, content string, maxPreview int) {
	truncated := ""
	if len(content) > maxPreview {
		content = content[:maxPreview]
		truncated = "..."
	}
	if mention != "" && mention != path {
		sb.WriteString(fmt.Sprintf("\n\nContent of file '%s' (matching '%s'):\n```\n%s%s\n```\n", path, mention, content, truncated))
		return
	}
	sb.WriteString(fmt.Sprintf("\n\nContent of file '%s':\n```\n%s%s\n```\n", path, content, truncated))
}

// Suggestions 分析完成后的推荐问题
func (s *ChatService) Suggestions(repoID uint) (string, error) {
	rc, err := s.loadContext(repoID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("**Repository Analysis Complete!** Here are some questions you might want to ask:\n\n")
	if len(rc.structure.Frameworks) > 0 {
		sb.WriteString("- What frameworks/technologies are used in this repository?\n")
		sb.WriteString("- Can you explain the purpose of the main frameworks?\n")
	}
	sb.WriteString("- What is the main purpose of this repository?\n")
	sb.WriteString("- Can you explain the overall architecture?\n")
	sb.WriteString("- Can you explain how the code in [specific file] works?\n")
	sb.WriteString("- What are the key functions/classes in this codebase?\n")
	if rc.quality != nil && len(rc.quality.Metrics.ComplexFunctions) > 0 {
		sb.WriteString("- Can you help me understand the complex functions in the code?\n")
	}
	if rc.quality != nil && len(rc.quality.Metrics.PotentialIssues) > 0 {
		sb.WriteString("- Are there any potential security issues in the code?\n")
	}
	sb.WriteString("- Are there any security concerns in this codebase?\n")
	if rc.plag != nil && rc.plag.Detected {
		sb.WriteString("- Can you explain more about the potentially plagiarized code?\n")
	}
	sb.WriteString("- How can I contribute to this project?\n")

	return sb.String(), nil
}

// History 完整对话历史
func (s *ChatService) History(repoID uint) ([]model.ChatMessage, error) {
	return s.chatRepo.History(repoID)
}

// Export 导出可复制的对话文本
func (s *ChatService) Export(repoID uint) (string, error) {
	history, err := s.chatRepo.History(repoID)
	if err != nil {
		return "", fmt.Errorf("获取对话历史失败: %w", err)
	}
	if len(history) == 0 {
		return "No conversation history available.", nil
	}

	var parts []string
	for _, msg := range history {
		switch msg.Role {
		case "user":
			parts = append(parts, "User: "+msg.Content)
		case "assistant":
			parts = append(parts, "Assistant: "+msg.Content, "---")
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// Clear 清空对话历史
func (s *ChatService) Clear(repoID uint) error {
	return s.chatRepo.DeleteByRepositoryID(repoID)
}

// head 取前 n 个元素
func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
