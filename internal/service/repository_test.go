package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/repository"
	"github.com/gitlens/backend/internal/service/statemachine"
)

func newTestRepositoryService(repoRepo *mockRepoRepo, taskRepo *mockTaskRepo) *RepositoryService {
	cfg := &config.Config{}
	return NewRepositoryService(cfg, repoRepo, taskRepo,
		&mockReportRepo{}, &mockFindingRepo{}, &mockChatRepo{},
		nil, NewSnapshotService(cfg, nil))
}

func TestRepositoryServiceCreateInvalidURL(t *testing.T) {
	repoRepo := &mockRepoRepo{
		CreateFunc: func(repo *model.Repository) error {
			t.Fatalf("unexpected create called")
			return nil
		},
	}
	service := newTestRepositoryService(repoRepo, &mockTaskRepo{})

	_, err := service.Create(CreateRepoRequest{URL: "git@github.com:owner/repo.git"})
	if !errors.Is(err, ErrInvalidRepositoryURL) {
		t.Fatalf("期望 ErrInvalidRepositoryURL, 实际: %v", err)
	}
}

func TestRepositoryServiceCreateDuplicateURL(t *testing.T) {
	repoRepo := &mockRepoRepo{
		GetByURLFunc: func(url string) (*model.Repository, error) {
			return &model.Repository{ID: 1, URL: url}, nil
		},
		CreateFunc: func(repo *model.Repository) error {
			t.Fatalf("unexpected create called")
			return nil
		},
	}
	service := newTestRepositoryService(repoRepo, &mockTaskRepo{})

	_, err := service.Create(CreateRepoRequest{URL: "https://github.com/owner/repo"})
	if !errors.Is(err, ErrRepositoryAlreadyExists) {
		t.Fatalf("期望 ErrRepositoryAlreadyExists, 实际: %v", err)
	}
}

func TestRepositoryServiceCreateCanonicalizesURL(t *testing.T) {
	var created *model.Repository
	repoRepo := &mockRepoRepo{
		CreateFunc: func(repo *model.Repository) error {
			repo.ID = 1
			created = repo
			return nil
		},
	}
	service := newTestRepositoryService(repoRepo, &mockTaskRepo{})

	repo, err := service.Create(CreateRepoRequest{URL: "https://github.com/Owner/Repo.git"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatalf("仓库未创建")
	}
	if repo.URL != "https://github.com/Owner/Repo" {
		t.Fatalf("URL 未规范化: %s", repo.URL)
	}
	if repo.Owner != "Owner" || repo.Name != "Repo" {
		t.Fatalf("owner/name 解析错误: %s/%s", repo.Owner, repo.Name)
	}
	if repo.Status != string(statemachine.RepoStatusPending) {
		t.Fatalf("初始状态应为 pending, 实际: %s", repo.Status)
	}
}

func TestRepositoryServiceDeleteAnalyzingStatus(t *testing.T) {
	repoRepo := &mockRepoRepo{
		GetBasicFunc: func(id uint) (*model.Repository, error) {
			return &model.Repository{ID: id, Status: string(statemachine.RepoStatusAnalyzing)}, nil
		},
		DeleteFunc: func(id uint) error {
			t.Fatalf("unexpected delete called")
			return nil
		},
	}
	service := newTestRepositoryService(repoRepo, &mockTaskRepo{})

	if err := service.Delete(1); !errors.Is(err, ErrCannotDeleteRepoInvalidStatus) {
		t.Fatalf("期望 ErrCannotDeleteRepoInvalidStatus, 实际: %v", err)
	}
}

func TestRepositoryServiceDeleteCascades(t *testing.T) {
	deleted := map[string]bool{}
	repoRepo := &mockRepoRepo{
		GetBasicFunc: func(id uint) (*model.Repository, error) {
			return &model.Repository{ID: id, Status: string(statemachine.RepoStatusCompleted)}, nil
		},
		DeleteFunc: func(id uint) error {
			deleted["repo"] = true
			return nil
		},
	}
	taskRepo := &mockTaskRepo{
		DeleteByRepositoryFunc: func(repoID uint) error {
			deleted["tasks"] = true
			return nil
		},
	}
	cfg := &config.Config{}
	service := NewRepositoryService(cfg, repoRepo, taskRepo,
		&mockReportRepo{DeleteByRepositoryFunc: func(repoID uint) error {
			deleted["reports"] = true
			return nil
		}},
		&mockFindingRepo{DeleteByRepositoryFunc: func(repoID uint) error {
			deleted["findings"] = true
			return nil
		}},
		&mockChatRepo{DeleteByRepositoryFunc: func(repoID uint) error {
			deleted["chat"] = true
			return nil
		}},
		nil, NewSnapshotService(cfg, nil))

	if err := service.Delete(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"chat", "findings", "reports", "tasks", "repo"} {
		if !deleted[key] {
			t.Fatalf("%s 未被级联删除", key)
		}
	}
}

func TestRefreshRepositoryStatusAggregates(t *testing.T) {
	var saved *model.Repository
	repoRepo := &mockRepoRepo{
		GetBasicFunc: func(id uint) (*model.Repository, error) {
			return &model.Repository{ID: id, Status: string(statemachine.RepoStatusAnalyzing)}, nil
		},
		SaveFunc: func(repo *model.Repository) error {
			saved = repo
			return nil
		},
	}
	taskRepo := &mockTaskRepo{
		GetTaskStatsFunc: func(repoID uint) (map[string]int64, error) {
			return map[string]int64{
				model.TaskStatusSucceeded: 4,
			}, nil
		},
	}
	service := newTestRepositoryService(repoRepo, taskRepo)

	if err := service.RefreshRepositoryStatus(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || saved.Status != string(statemachine.RepoStatusCompleted) {
		t.Fatalf("全部成功后仓库状态应为 completed, 实际: %+v", saved)
	}
}

func TestRefreshRepositoryStatusKeepsFetching(t *testing.T) {
	repoRepo := &mockRepoRepo{
		GetBasicFunc: func(id uint) (*model.Repository, error) {
			return &model.Repository{ID: id, Status: string(statemachine.RepoStatusFetching)}, nil
		},
		SaveFunc: func(repo *model.Repository) error {
			t.Fatalf("fetching 状态不应被聚合修改")
			return nil
		},
	}
	service := newTestRepositoryService(repoRepo, &mockTaskRepo{})

	if err := service.RefreshRepositoryStatus(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildTaskSummary(t *testing.T) {
	summary := buildTaskSummary(map[string]int64{
		model.TaskStatusPending:   1,
		model.TaskStatusRunning:   2,
		model.TaskStatusSucceeded: 3,
		model.TaskStatusFailed:    1,
	})
	if summary.Total != 7 {
		t.Fatalf("Total 计算错误: %d", summary.Total)
	}
	if summary.Pending != 1 || summary.Running != 2 || summary.Succeeded != 3 || summary.Failed != 1 {
		t.Fatalf("汇总错误: %+v", summary)
	}
}

func TestRepositoryServiceGetNotFound(t *testing.T) {
	service := newTestRepositoryService(&mockRepoRepo{}, &mockTaskRepo{})
	if _, err := service.Get(99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("期望 ErrNotFound, 实际: %v", err)
	}
}
