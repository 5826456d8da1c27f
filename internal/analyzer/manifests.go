package analyzer

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

// Dependency 从依赖清单里解析出的一条声明
type Dependency struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Manifest string `json:"manifest"` // 来源清单文件路径
	Dev      bool   `json:"dev,omitempty"`
}

// ParseManifests 解析仓库中的依赖清单文件
func ParseManifests(files []github.RepoFile) []Dependency {
	var deps []Dependency
	for _, f := range files {
		switch strings.ToLower(path.Base(f.Path)) {
		case "package.json":
			deps = append(deps, parsePackageJSON(f)...)
		case "requirements.txt":
			deps = append(deps, parseRequirements(f)...)
		case "go.mod":
			deps = append(deps, parseGoMod(f)...)
		case "composer.json":
			deps = append(deps, parsePackageJSON(f)...) // require 块结构与 package.json 兼容处理
		}
	}
	sort.SliceStable(deps, func(i, j int) bool {
		if deps[i].Manifest != deps[j].Manifest {
			return deps[i].Manifest < deps[j].Manifest
		}
		return deps[i].Name < deps[j].Name
	})
	return deps
}

func parsePackageJSON(f github.RepoFile) []Dependency {
	var doc struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
		Require         map[string]string `json:"require"`
	}
	if err := json.Unmarshal([]byte(f.Content), &doc); err != nil {
		return nil
	}

	var deps []Dependency
	for name, version := range doc.Dependencies {
		deps = append(deps, Dependency{Name: name, Version: version, Manifest: f.Path})
	}
	for name, version := range doc.Require {
		if name == "php" {
			continue
		}
		deps = append(deps, Dependency{Name: name, Version: version, Manifest: f.Path})
	}
	for name, version := range doc.DevDependencies {
		deps = append(deps, Dependency{Name: name, Version: version, Manifest: f.Path, Dev: true})
	}
	return deps
}

func parseRequirements(f github.RepoFile) []Dependency {
	var deps []Dependency
	for _, line := range strings.Split(f.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name := line
		version := ""
		for _, sep := range []string{"==", ">=", "<=", "~=", ">", "<"} {
			if idx := strings.Index(line, sep); idx >= 0 {
				name = strings.TrimSpace(line[:idx])
				version = strings.TrimSpace(line[idx:])
				break
			}
		}
		// 去掉 extras 标记，如 requests[socks]
		if idx := strings.Index(name, "["); idx >= 0 {
			name = name[:idx]
		}
		if name != "" {
			deps = append(deps, Dependency{Name: name, Version: version, Manifest: f.Path})
		}
	}
	return deps
}

func parseGoMod(f github.RepoFile) []Dependency {
	var deps []Dependency
	inRequire := false
	for _, line := range strings.Split(f.Content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
			continue
		case inRequire && line == ")":
			inRequire = false
			continue
		}

		fields := strings.Fields(strings.TrimPrefix(line, "require "))
		if inRequire || strings.HasPrefix(line, "require ") {
			if len(fields) >= 2 && strings.Contains(fields[0], ".") {
				dev := strings.HasSuffix(line, "// indirect")
				deps = append(deps, Dependency{Name: fields[0], Version: fields[1], Manifest: f.Path, Dev: dev})
			}
		}
	}
	return deps
}

// 许可证文本的特征短语
var licenseMarkers = []struct {
	Name    string
	Markers []string
}{
	{"Apache-2.0", []string{"apache license", "version 2.0"}},
	{"GPL-3.0", []string{"gnu general public license", "version 3"}},
	{"GPL-2.0", []string{"gnu general public license", "version 2"}},
	{"LGPL-3.0", []string{"gnu lesser general public license", "version 3"}},
	{"AGPL-3.0", []string{"gnu affero general public license"}},
	{"MPL-2.0", []string{"mozilla public license", "2.0"}},
	{"BSD-3-Clause", []string{"redistribution and use", "neither the name"}},
	{"BSD-2-Clause", []string{"redistribution and use", "binary forms"}},
	{"MIT", []string{"mit license"}},
	{"MIT", []string{"permission is hereby granted, free of charge"}},
	{"Unlicense", []string{"this is free and unencumbered software"}},
}

// DetectLicense 根据 LICENSE 文件内容识别许可证类型，识别不出时返回空串
func DetectLicense(files []github.RepoFile) string {
	for _, f := range files {
		base := strings.ToLower(path.Base(f.Path))
		if !strings.HasPrefix(base, "license") && !strings.HasPrefix(base, "copying") {
			continue
		}
		content := strings.ToLower(f.Content)
		for _, lm := range licenseMarkers {
			matched := true
			for _, m := range lm.Markers {
				if !strings.Contains(content, m) {
					matched = false
					break
				}
			}
			if matched {
				return lm.Name
			}
		}
		return "Unknown"
	}
	return ""
}
