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

// analyzeQuality 代码质量分析：体量指标 + 依赖清单 + 许可证识别
func (s *TaskService) analyzeQuality(ctx context.Context, repo *model.Repository, task *model.AnalysisTask, snapshot *RepoSnapshot) error {
	metrics := analyzer.AnalyzeQuality(snapshot.Files)
	dependencies := analyzer.ParseManifests(snapshot.Files)
	license := analyzer.DetectLicense(snapshot.Files)

	var sb strings.Builder
	sb.WriteString("# Code Quality\n\n")
	sb.WriteString(fmt.Sprintf("- **Files analyzed:** %d\n", metrics.TotalFiles))
	sb.WriteString(fmt.Sprintf("- **Total lines:** %d\n", metrics.TotalLines))
	sb.WriteString(fmt.Sprintf("- **Blank lines:** %d\n", metrics.BlankLines))
	sb.WriteString(fmt.Sprintf("- **License:** %s\n", orUnknown(license)))

	if len(metrics.LargeFiles) > 0 {
		sb.WriteString("\n## Large Files (>500 lines)\n\n")
		for _, lf := range metrics.LargeFiles {
			sb.WriteString(fmt.Sprintf("- `%s` (%d lines)\n", lf.Path, lf.Lines))
		}
	}

	if len(metrics.ComplexFunctions) > 0 {
		sb.WriteString("\n## Complex Functions (>50 lines)\n\n")
		for _, cf := range metrics.ComplexFunctions {
			sb.WriteString(fmt.Sprintf("- `%s` in `%s` (%d lines)\n", cf.Function, cf.File, cf.Lines))
		}
	}

	if len(metrics.PotentialIssues) > 0 {
		sb.WriteString("\n## Potential Issues\n\n")
		for _, issue := range metrics.PotentialIssues {
			sb.WriteString(fmt.Sprintf("- `%s:%d` — %s\n", issue.File, issue.Line, issue.Issue))
		}
	}

	if len(dependencies) > 0 {
		sb.WriteString("\n## Declared Dependencies\n\n")
		sb.WriteString("| Name | Version | Manifest | Dev |\n|------|---------|----------|-----|\n")
		for _, dep := range dependencies {
			dev := ""
			if dep.Dev {
				dev = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", dep.Name, dep.Version, dep.Manifest, dev))
		}
	}

	payload, err := json.Marshal(map[string]any{
		"metrics":      metrics,
		"dependencies": dependencies,
		"license":      license,
	})
	if err != nil {
		return fmt.Errorf("序列化质量分析结果失败: %w", err)
	}

	report := &model.Report{
		RepositoryID: repo.ID,
		TaskID:       task.ID,
		Type:         model.TaskTypeQuality,
		Title:        task.Title,
		Content:      sb.String(),
		Payload:      string(payload),
	}
	if err := s.reportRepo.CreateVersioned(report); err != nil {
		return fmt.Errorf("保存质量分析报告失败: %w", err)
	}

	klog.V(6).Infof("质量分析完成: repoID=%d, files=%d, issues=%d, deps=%d",
		repo.ID, metrics.TotalFiles, len(metrics.PotentialIssues), len(dependencies))
	return nil
}
