package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/model"
	"github.com/gitlens/backend/internal/pkg/github"
)

// RepoSnapshot 一次分析期间拉取的仓库内容，各任务和对话共用，
// 避免对 GitHub API 的重复请求。
// 快照发布后不可变：补拉文件时生成新快照替换缓存，
// 持有旧快照的读者可以继续无锁遍历 Entries/Files。
type RepoSnapshot struct {
	Entries   []github.TreeEntry
	Files     []github.RepoFile
	FetchedAt time.Time
}

// FindFile 精确路径命中
func (s *RepoSnapshot) FindFile(path string) (*github.RepoFile, bool) {
	for i := range s.Files {
		if s.Files[i].Path == path {
			return &s.Files[i], true
		}
	}
	return nil, false
}

// SnapshotService 仓库内容快照缓存
type SnapshotService struct {
	cfg    *config.Config
	github *github.Client

	mutex sync.Mutex
	cache map[uint]*RepoSnapshot
}

func NewSnapshotService(cfg *config.Config, githubClient *github.Client) *SnapshotService {
	return &SnapshotService{
		cfg:    cfg,
		github: githubClient,
		cache:  make(map[uint]*RepoSnapshot),
	}
}

// Get 返回缓存的快照，没有则从 GitHub 拉取文件树和抽样文件内容。
// fileLimit 为 0 时取配置默认值。
func (s *SnapshotService) Get(ctx context.Context, repo *model.Repository, fileLimit int) (*RepoSnapshot, error) {
	s.mutex.Lock()
	if snapshot, ok := s.cache[repo.ID]; ok {
		s.mutex.Unlock()
		return snapshot, nil
	}
	s.mutex.Unlock()

	snapshot, err := s.fetch(ctx, repo, fileLimit)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.cache[repo.ID] = snapshot
	s.mutex.Unlock()
	return snapshot, nil
}

// Invalidate 丢弃缓存，下次访问时重新拉取
func (s *SnapshotService) Invalidate(repoID uint) {
	s.mutex.Lock()
	delete(s.cache, repoID)
	s.mutex.Unlock()
}

func (s *SnapshotService) fetch(ctx context.Context, repo *model.Repository, fileLimit int) (*RepoSnapshot, error) {
	klog.V(6).Infof("拉取仓库快照: repoID=%d, owner=%s, name=%s, ref=%s", repo.ID, repo.Owner, repo.Name, repo.Branch)

	entries, err := s.github.Tree(ctx, repo.Owner, repo.Name, repo.Branch)
	if err != nil {
		return nil, fmt.Errorf("获取文件树失败: %w", err)
	}

	if fileLimit <= 0 {
		fileLimit = s.cfg.GitHub.FileLimit
	}
	selected := github.SelectFiles(entries, fileLimit, int(s.cfg.GitHub.MaxFileSize))
	files, err := s.github.FetchFiles(ctx, repo.Owner, repo.Name, selected)
	if err != nil {
		return nil, fmt.Errorf("拉取文件内容失败: %w", err)
	}

	klog.V(6).Infof("仓库快照就绪: repoID=%d, entries=%d, files=%d", repo.ID, len(entries), len(files))
	return &RepoSnapshot{
		Entries:   entries,
		Files:     files,
		FetchedAt: time.Now(),
	}, nil
}

// FetchSingle 拉取快照之外的单个文件内容。
// 不改动传入的快照，合并结果以新快照的形式写回缓存。
func (s *SnapshotService) FetchSingle(ctx context.Context, repo *model.Repository, snapshot *RepoSnapshot, path string) (*github.RepoFile, error) {
	var entry *github.TreeEntry
	for i := range snapshot.Entries {
		if snapshot.Entries[i].Path == path && snapshot.Entries[i].Type == "blob" {
			entry = &snapshot.Entries[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("文件不存在: %s", path)
	}

	files, err := s.github.FetchFiles(ctx, repo.Owner, repo.Name, []github.TreeEntry{*entry})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("文件内容不可读: %s", path)
	}
	file := files[0]

	s.mutex.Lock()
	if current, ok := s.cache[repo.ID]; ok {
		if _, exists := current.FindFile(path); !exists {
			merged := make([]github.RepoFile, len(current.Files), len(current.Files)+1)
			copy(merged, current.Files)
			s.cache[repo.ID] = &RepoSnapshot{
				Entries:   current.Entries,
				Files:     append(merged, file),
				FetchedAt: current.FetchedAt,
			}
		}
	}
	s.mutex.Unlock()
	return &file, nil
}
