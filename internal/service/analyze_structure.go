package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/internal/analyzer"
	"github.com/gitlens/backend/internal/model"
)

const structureSummaryPrompt = `You are a senior software engineer reviewing a GitHub repository.
Based on the folder structure, detected frameworks and repository metadata below,
write a concise overview of what this project is, how it is organized and what
technologies it is built with. Answer in Markdown, at most 300 words.`

// analyzeStructure 仓库结构分析：文件树 + 框架识别 + LLM 概述
func (s *TaskService) analyzeStructure(ctx context.Context, repo *model.Repository, task *model.AnalysisTask, snapshot *RepoSnapshot) error {
	tree := analyzer.RenderTree(snapshot.Entries)
	frameworks := analyzer.IdentifyFrameworks(tree, snapshot.Files)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s/%s\n\n", repo.Owner, repo.Name))
	if repo.Description != "" {
		sb.WriteString(repo.Description + "\n\n")
	}
	sb.WriteString("## Repository Info\n\n")
	sb.WriteString(fmt.Sprintf("- **Language:** %s\n", orUnknown(repo.Language)))
	sb.WriteString(fmt.Sprintf("- **Stars:** %d\n", repo.Stars))
	sb.WriteString(fmt.Sprintf("- **Forks:** %d\n", repo.Forks))
	sb.WriteString(fmt.Sprintf("- **Open Issues:** %d\n", repo.OpenIssues))
	if repo.PushedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Last Push:** %s\n", repo.PushedAt.Format("2006-01-02")))
	}
	sb.WriteString("\n## Frameworks & Technologies\n\n")
	if len(frameworks) == 0 {
		sb.WriteString("No frameworks detected\n")
	} else {
		for _, fw := range frameworks {
			sb.WriteString("- " + fw + "\n")
		}
	}

	if summary := s.generateStructureSummary(ctx, repo, tree, frameworks); summary != "" {
		sb.WriteString("\n## Overview\n\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Folder Structure\n\n```\n")
	sb.WriteString(tree)
	sb.WriteString("\n```\n")

	payload, err := json.Marshal(map[string]any{
		"frameworks":       frameworks,
		"folder_structure": tree,
		"entry_count":      len(snapshot.Entries),
		"fetched_files":    len(snapshot.Files),
	})
	if err != nil {
		return fmt.Errorf("序列化结构分析结果失败: %w", err)
	}

	report := &model.Report{
		RepositoryID: repo.ID,
		TaskID:       task.ID,
		Type:         model.TaskTypeStructure,
		Title:        task.Title,
		Content:      sb.String(),
		Payload:      string(payload),
	}
	if err := s.reportRepo.CreateVersioned(report); err != nil {
		return fmt.Errorf("保存结构分析报告失败: %w", err)
	}

	klog.V(6).Infof("结构分析完成: repoID=%d, frameworks=%d, entries=%d", repo.ID, len(frameworks), len(snapshot.Entries))
	return nil
}

// generateStructureSummary LLM 概述，不可用时降级为空
func (s *TaskService) generateStructureSummary(ctx context.Context, repo *model.Repository, tree string, frameworks []string) string {
	if s.llm == nil || s.cfg.LLM.APIKey == "" {
		klog.V(6).Infof("LLM 未配置，跳过结构概述生成: repoID=%d", repo.ID)
		return ""
	}

	userPrompt := fmt.Sprintf("Repository: %s/%s\nDescription: %s\nLanguage: %s\nFrameworks: %s\n\nFolder structure:\n%s",
		repo.Owner, repo.Name, repo.Description, repo.Language,
		strings.Join(frameworks, ", "), truncate(tree, 4000))

	summary, err := s.llm.Summarize(ctx, structureSummaryPrompt, userPrompt)
	if err != nil {
		klog.Warningf("生成结构概述失败，降级为纯静态报告: repoID=%d, error=%v", repo.ID, err)
		return ""
	}
	return strings.TrimSpace(summary)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
