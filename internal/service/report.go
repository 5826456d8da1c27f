package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/repository"
)

var ErrReportNotReady = errors.New("report not generated yet")

// GetReports 仓库各类型的最新报告
func (s *RepositoryService) GetReports(repoID uint) ([]model.Report, error) {
	return s.reportRepo.GetByRepository(repoID)
}

// GetLatestReport 指定类型的最新报告
func (s *RepositoryService) GetLatestReport(repoID uint, reportType string) (*model.Report, error) {
	report, err := s.reportRepo.GetLatestByType(repoID, reportType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotReady
		}
		return nil, err
	}
	return report, nil
}

// GetFindings 查重命中记录，按置信度降序
func (s *RepositoryService) GetFindings(repoID uint) ([]model.Finding, error) {
	return s.findingRepo.GetByRepository(repoID)
}

// DependencyDOT 依赖图的 Graphviz DOT 文本
func (s *RepositoryService) DependencyDOT(repoID uint) (string, error) {
	report, err := s.GetLatestReport(repoID, model.TaskTypeDependencies)
	if err != nil {
		return "", err
	}

	var payload depsPayload
	if err := json.Unmarshal([]byte(report.Payload), &payload); err != nil {
		return "", fmt.Errorf("依赖报告负载解析失败: %w", err)
	}
	if payload.Dot == "" {
		return "", ErrReportNotReady
	}
	return payload.Dot, nil
}
