// Package github 封装 GitHub REST API 访问，带限流重试和并发文件拉取。
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
)

const (
	maxRetries       = 3
	maxRateLimitWait = 60 * time.Second
	fetchConcurrency = 8
)

// ErrRateLimited 重试次数耗尽后仍被限流。
// 文案会透出到仓库/任务的 ErrorMsg，提示用户配置 token。
var ErrRateLimited = errors.New("github api rate limit exceeded, please try again later or use a GitHub token")

// Metadata 仓库的基础元信息
type Metadata struct {
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Language      string     `json:"language"`
	Stars         int        `json:"stars"`
	Forks         int        `json:"forks"`
	OpenIssues    int        `json:"open_issues"`
	PushedAt      *time.Time `json:"pushed_at"`
	DefaultBranch string     `json:"default_branch"`
}

// TreeEntry git tree 中的一项
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // blob, tree
	Size int    `json:"size"`
	SHA  string `json:"sha"`
}

// RepoFile 拉取到本地的文件内容
type RepoFile struct {
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// Client GitHub API 客户端
type Client struct {
	gh        *gogithub.Client
	treeDepth int
	// 测试时替换为空实现，避免真实 sleep
	sleep func(time.Duration)
}

// NewClient 创建客户端。token 为空时走匿名访问（限流额度很低）。
func NewClient(cfg *config.GitHubConfig) (*Client, error) {
	httpClient := oauth2.NewClient(context.Background(), nil)
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	gh := gogithub.NewClient(httpClient)
	if cfg.APIURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", cfg.APIURL, err)
		}
	}

	depth := cfg.TreeDepth
	if depth <= 0 {
		depth = 4
	}
	return &Client{gh: gh, treeDepth: depth, sleep: time.Sleep}, nil
}

// ParseRepoURL 从 GitHub 仓库 URL 中解析 owner 和 repo 名。
// 支持 https://github.com/owner/repo 及带 .git 后缀、子路径的形式。
func ParseRepoURL(rawURL string) (owner, name string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", errors.New("repository url is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported url scheme %q, expected https://github.com/owner/repo", u.Scheme)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid repository url, expected https://github.com/owner/repo")
	}

	name = strings.TrimSuffix(parts[1], ".git")
	return parts[0], name, nil
}

// CanonicalURL 统一仓库 URL 形式，用作唯一键
func CanonicalURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, name)
}

// withRetry 执行 API 调用，被限流时等待重置后重试。
// 等待时长为 重置时间+10秒 缓冲，单次最长等一分钟。
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		wait, limited := rateLimitWait(err)
		if !limited {
			return err
		}
		if attempt == maxRetries-1 {
			break
		}

		klog.V(6).Infof("GitHub API 触发限流: op=%s, 等待%v后重试 %d/%d", op, wait, attempt+1, maxRetries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.sleep(wait)
	}
	return fmt.Errorf("%s: %w", op, ErrRateLimited)
}

func rateLimitWait(err error) (time.Duration, bool) {
	var rle *gogithub.RateLimitError
	if errors.As(err, &rle) {
		wait := time.Until(rle.Rate.Reset.Time) + 10*time.Second
		if wait < 10*time.Second {
			wait = 10 * time.Second
		}
		if wait > maxRateLimitWait {
			wait = maxRateLimitWait
		}
		return wait, true
	}
	var arle *gogithub.AbuseRateLimitError
	if errors.As(err, &arle) {
		wait := maxRateLimitWait
		if arle.RetryAfter != nil && *arle.RetryAfter < maxRateLimitWait {
			wait = *arle.RetryAfter
		}
		return wait, true
	}
	return 0, false
}

// RepoMetadata 获取仓库元信息
func (c *Client) RepoMetadata(ctx context.Context, owner, name string) (*Metadata, error) {
	var repo *gogithub.Repository
	err := c.withRetry(ctx, "get repository", func() error {
		var err error
		repo, _, err = c.gh.Repositories.Get(ctx, owner, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Owner:         owner,
		Name:          name,
		Description:   repo.GetDescription(),
		Language:      repo.GetLanguage(),
		Stars:         repo.GetStargazersCount(),
		Forks:         repo.GetForksCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		DefaultBranch: repo.GetDefaultBranch(),
	}
	if ts := repo.GetPushedAt(); !ts.IsZero() {
		t := ts.Time
		meta.PushedAt = &t
	}
	return meta, nil
}

// Tree 递归获取仓库文件树，超过深度上限或落在忽略目录里的条目被过滤掉
func (c *Client) Tree(ctx context.Context, owner, name, ref string) ([]TreeEntry, error) {
	var tree *gogithub.Tree
	err := c.withRetry(ctx, "get tree", func() error {
		var err error
		tree, _, err = c.gh.Git.GetTree(ctx, owner, name, ref, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tree.GetTruncated() {
		klog.Warningf("仓库 %s/%s 文件树被截断，分析结果可能不完整", owner, name)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		path := e.GetPath()
		if strings.Count(path, "/") >= c.treeDepth {
			continue
		}
		if inSkippedDir(path) {
			continue
		}
		entries = append(entries, TreeEntry{
			Path: path,
			Type: e.GetType(),
			Size: e.GetSize(),
			SHA:  e.GetSHA(),
		})
	}
	return entries, nil
}

// FetchFiles 并发拉取 blob 内容，按传入顺序返回。
// 二进制文件和拉取失败的文件被跳过（仅记日志）。
func (c *Client) FetchFiles(ctx context.Context, owner, name string, entries []TreeEntry) ([]RepoFile, error) {
	files := make([]*RepoFile, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			content, err := c.fetchBlob(gctx, owner, name, entry.SHA)
			if err != nil {
				if errors.Is(err, ErrRateLimited) || gctx.Err() != nil {
					return err
				}
				klog.V(6).Infof("拉取文件失败, 跳过: %s/%s %s: %v", owner, name, entry.Path, err)
				return nil
			}
			if content == "" {
				return nil
			}
			files[i] = &RepoFile{Path: entry.Path, Size: entry.Size, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]RepoFile, 0, len(files))
	for _, f := range files {
		if f != nil {
			result = append(result, *f)
		}
	}
	return result, nil
}

func (c *Client) fetchBlob(ctx context.Context, owner, name, sha string) (string, error) {
	var raw []byte
	err := c.withRetry(ctx, "get blob", func() error {
		var err error
		raw, _, err = c.gh.Git.GetBlobRaw(ctx, owner, name, sha)
		return err
	})
	if err != nil {
		return "", err
	}
	return decodeContent(raw)
}
