package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/plagiarism"
)

// analyzePlagiarism 相似代码检查：抽样文件 -> 签名/片段/混淆检测 -> 落库
func (s *TaskService) analyzePlagiarism(ctx context.Context, repo *model.Repository, task *model.AnalysisTask, snapshot *RepoSnapshot) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sampled := plagiarism.SampleFiles(snapshot.Entries, s.cfg.Analysis.PlagiarismMax, rng)

	files, err := s.github.FetchFiles(ctx, repo.Owner, repo.Name, sampled)
	if err != nil {
		return fmt.Errorf("拉取抽样文件失败: %w", err)
	}

	result := plagiarism.Check(files)

	// 每轮检查替换上一轮的命中记录
	if err := s.findingRepo.DeleteByRepositoryID(repo.ID); err != nil {
		return fmt.Errorf("清理历史查重结果失败: %w", err)
	}
	findings := make([]model.Finding, 0, len(result.SuspiciousFiles))
	for _, sf := range result.SuspiciousFiles {
		findings = append(findings, model.Finding{
			RepositoryID: repo.ID,
			TaskID:       task.ID,
			File:         sf.File,
			MatchType:    sf.MatchType,
			Confidence:   sf.Confidence,
			Source:       sf.PotentialSource,
			Snippet:      sf.Snippet,
		})
	}
	if err := s.findingRepo.CreateBatch(findings); err != nil {
		return fmt.Errorf("保存查重结果失败: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Plagiarism Check\n\n")
	sb.WriteString(result.Summary + "\n\n")
	sb.WriteString(fmt.Sprintf("- **Files checked:** %d\n", result.CheckedFiles))
	sb.WriteString(fmt.Sprintf("- **Suspicious files:** %d\n", len(result.SuspiciousFiles)))
	if len(result.SuspiciousFiles) > 0 {
		sb.WriteString("\n## Suspicious Files\n\n")
		for _, sf := range result.SuspiciousFiles {
			sb.WriteString(fmt.Sprintf("### `%s`\n\n", sf.File))
			sb.WriteString(fmt.Sprintf("- **Match type:** %s\n", sf.MatchType))
			sb.WriteString(fmt.Sprintf("- **Confidence:** %.2f\n", sf.Confidence))
			if sf.PotentialSource != "" {
				sb.WriteString(fmt.Sprintf("- **Potential source:** %s\n", sf.PotentialSource))
			}
			if sf.Snippet != "" {
				sb.WriteString("\n```\n" + sf.Snippet + "\n```\n")
			}
			sb.WriteString("\n")
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化查重结果失败: %w", err)
	}

	report := &model.Report{
		RepositoryID: repo.ID,
		TaskID:       task.ID,
		Type:         model.TaskTypePlagiarism,
		Title:        task.Title,
		Content:      sb.String(),
		Payload:      string(payload),
	}
	if err := s.reportRepo.CreateVersioned(report); err != nil {
		return fmt.Errorf("保存查重报告失败: %w", err)
	}

	klog.V(6).Infof("查重完成: repoID=%d, checked=%d, suspicious=%d",
		repo.ID, result.CheckedFiles, len(result.SuspiciousFiles))
	return nil
}
