package service

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/internal/depgraph"
	"github.com/gitlens/backend/internal/model"
)

// analyzeDependencies 依赖关系分析：文件级依赖图、关键文件与 DOT 导出
func (s *TaskService) analyzeDependencies(ctx context.Context, repo *model.Repository, task *model.AnalysisTask, snapshot *RepoSnapshot) error {
	analysis := depgraph.Analyze(snapshot.Files)
	content := depgraph.Summary(analysis)

	dot, err := depgraph.ExportDOT(analysis, 0)
	if err != nil {
		klog.Warningf("依赖图DOT导出失败: repoID=%d, error=%v", repo.ID, err)
		dot = ""
	}

	payload, err := json.Marshal(map[string]any{
		"analysis": analysis,
		"dot":      dot,
	})
	if err != nil {
		return fmt.Errorf("序列化依赖分析结果失败: %w", err)
	}

	report := &model.Report{
		RepositoryID: repo.ID,
		TaskID:       task.ID,
		Type:         model.TaskTypeDependencies,
		Title:        task.Title,
		Content:      content,
		Payload:      string(payload),
	}
	if err := s.reportRepo.CreateVersioned(report); err != nil {
		return fmt.Errorf("保存依赖分析报告失败: %w", err)
	}

	klog.V(6).Infof("依赖分析完成: repoID=%d, files=%d, keyFiles=%d",
		repo.ID, analysis.Metrics.TotalFiles, len(analysis.KeyFiles))
	return nil
}
