package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gitlens/backend/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(&config.GitHubConfig{APIURL: server.URL, TreeDepth: 4})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c, server
}

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in          string
		owner, name string
		wantErr     bool
	}{
		{"https://github.com/gin-gonic/gin", "gin-gonic", "gin", false},
		{"https://github.com/gin-gonic/gin.git", "gin-gonic", "gin", false},
		{"https://github.com/gin-gonic/gin/tree/master/examples", "gin-gonic", "gin", false},
		{"  https://github.com/a/b  ", "a", "b", false},
		{"https://github.com/onlyowner", "", "", true},
		{"git@github.com:a/b.git", "", "", true},
		{"", "", "", true},
	}
	for _, c := range cases {
		owner, name, err := ParseRepoURL(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q) 期望报错", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q) 失败: %v", c.in, err)
			continue
		}
		if owner != c.owner || name != c.name {
			t.Errorf("ParseRepoURL(%q) = %s/%s, 期望 %s/%s", c.in, owner, name, c.owner, c.name)
		}
	}
}

func TestRepoMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"description": "demo repo",
			"language": "Go",
			"stargazers_count": 42,
			"forks_count": 7,
			"open_issues_count": 3,
			"default_branch": "main",
			"pushed_at": "2024-01-02T03:04:05Z"
		}`)
	})
	c, _ := newTestClient(t, mux)

	meta, err := c.RepoMetadata(context.Background(), "octo", "hello")
	if err != nil {
		t.Fatalf("获取元信息失败: %v", err)
	}
	if meta.Description != "demo repo" || meta.Language != "Go" {
		t.Errorf("元信息不符: %+v", meta)
	}
	if meta.Stars != 42 || meta.Forks != 7 || meta.OpenIssues != 3 {
		t.Errorf("计数不符: %+v", meta)
	}
	if meta.DefaultBranch != "main" {
		t.Errorf("默认分支不符: %s", meta.DefaultBranch)
	}
	if meta.PushedAt == nil || meta.PushedAt.Year() != 2024 {
		t.Errorf("推送时间不符: %v", meta.PushedAt)
	}
}

func TestRepoMetadataRateLimitRetry(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(30*time.Second).Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, `{"language": "Go"}`)
	})

	c, _ := newTestClient(t, mux)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	meta, err := c.RepoMetadata(context.Background(), "octo", "hello")
	if err != nil {
		t.Fatalf("重试后应成功: %v", err)
	}
	if meta.Language != "Go" {
		t.Errorf("元信息不符: %+v", meta)
	}
	if calls != 2 {
		t.Errorf("期望请求2次, 实际%d次", calls)
	}
	if len(slept) != 1 {
		t.Fatalf("期望等待1次, 实际%d次", len(slept))
	}
	// 重置时间30秒 + 10秒缓冲，且不超过一分钟
	if slept[0] < 10*time.Second || slept[0] > maxRateLimitWait {
		t.Errorf("等待时长越界: %v", slept[0])
	}
}

func TestRepoMetadataRateLimitExhausted(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.RepoMetadata(context.Background(), "octo", "hello")
	if err == nil {
		t.Fatal("期望报错")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("期望 ErrRateLimited, 实际: %v", err)
	}
	if !strings.Contains(err.Error(), "use a GitHub token") {
		t.Errorf("报错文案应提示配置 token: %v", err)
	}
	if calls != maxRetries {
		t.Errorf("期望请求%d次, 实际%d次", maxRetries, calls)
	}
}

func TestTreeFiltersDepthAndSkippedDirs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octo/hello/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"sha": "abc",
			"truncated": false,
			"tree": [
				{"path": "README.md", "type": "blob", "size": 100, "sha": "s1"},
				{"path": "src", "type": "tree", "sha": "s2"},
				{"path": "src/main.go", "type": "blob", "size": 200, "sha": "s3"},
				{"path": "node_modules/left-pad/index.js", "type": "blob", "size": 50, "sha": "s4"},
				{"path": "a/b/c/d/e.go", "type": "blob", "size": 10, "sha": "s5"}
			]
		}`)
	})
	c, _ := newTestClient(t, mux)

	entries, err := c.Tree(context.Background(), "octo", "hello", "main")
	if err != nil {
		t.Fatalf("获取文件树失败: %v", err)
	}

	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = true
	}
	if !paths["README.md"] || !paths["src/main.go"] {
		t.Errorf("缺少期望条目: %v", paths)
	}
	if paths["node_modules/left-pad/index.js"] {
		t.Error("node_modules 下的文件应被过滤")
	}
	if paths["a/b/c/d/e.go"] {
		t.Error("超过深度上限的文件应被过滤")
	}
}

func TestFetchFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/octo/hello/git/blobs/s1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# Hello\n")
	})
	mux.HandleFunc("/api/v3/repos/octo/hello/git/blobs/s2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x7F, 'E', 'L', 'F', 0x00})
	})
	c, _ := newTestClient(t, mux)

	entries := []TreeEntry{
		{Path: "README.md", Size: 8, SHA: "s1"},
		{Path: "bin/tool", Size: 5, SHA: "s2"},
	}
	files, err := c.FetchFiles(context.Background(), "octo", "hello", entries)
	if err != nil {
		t.Fatalf("拉取文件失败: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("二进制文件应被跳过, 期望1个文件, 实际%d", len(files))
	}
	if files[0].Path != "README.md" || files[0].Content != "# Hello\n" {
		t.Errorf("文件内容不符: %+v", files[0])
	}
}

func TestSelectFiles(t *testing.T) {
	entries := []TreeEntry{
		{Path: "deep/nested/util.go", Type: "blob", Size: 100},
		{Path: "main.go", Type: "blob", Size: 100},
		{Path: "README.md", Type: "blob", Size: 100},
		{Path: "package.json", Type: "blob", Size: 100},
		{Path: "LICENSE", Type: "blob", Size: 100},
		{Path: "assets/logo.png", Type: "blob", Size: 100},
		{Path: "vendor.min.js", Type: "blob", Size: 100},
		{Path: "huge.go", Type: "blob", Size: 1 << 20},
		{Path: "src", Type: "tree"},
	}

	selected := SelectFiles(entries, 4, 100*1024)
	if len(selected) != 4 {
		t.Fatalf("期望4个文件, 实际%d", len(selected))
	}
	// README 和清单最优先，许可证次之
	if !isReadme(selected[0].Path) && !IsManifest(selected[0].Path) {
		t.Errorf("首位应为 README 或清单: %s", selected[0].Path)
	}
	for _, e := range selected {
		if e.Path == "assets/logo.png" || e.Path == "vendor.min.js" || e.Path == "huge.go" {
			t.Errorf("不应入选: %s", e.Path)
		}
	}
}
