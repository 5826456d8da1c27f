package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

const defaultMaxNodes = 30

type fileNode struct {
	id   int64
	path string
}

func (n *fileNode) ID() int64 { return n.id }

func (n *fileNode) DOTID() string { return fmt.Sprintf("%q", n.path) }

// cleanPath 路径太长时只保留后三段
func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) > 3 {
		return strings.Join(append([]string{".."}, parts[len(parts)-3:]...), "/")
	}
	return p
}

// ExportDOT 把依赖图导出为 Graphviz DOT 文本，前端负责渲染。
// 节点太多时优先保留关键文件、入口文件和连接数最多的文件。
func ExportDOT(a *Analysis, maxNodes int) (string, error) {
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	selected := selectNodes(a, maxNodes)

	g := simple.NewDirectedGraph()
	nodes := make(map[string]*fileNode, len(selected))
	for i, p := range selected {
		n := &fileNode{id: int64(i), path: cleanPath(p)}
		nodes[p] = n
		g.AddNode(n)
	}

	for _, source := range selected {
		for _, imp := range a.Imports[source] {
			for _, target := range selected {
				if target == source {
					continue
				}
				if strings.Contains(target, imp) {
					g.SetEdge(g.NewEdge(nodes[source], nodes[target]))
				}
			}
		}
	}

	data, err := dot.Marshal(g, "dependencies", "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal dot: %w", err)
	}
	return string(data), nil
}

// selectNodes 挑选进图的文件，返回确定性顺序
func selectNodes(a *Analysis, maxNodes int) []string {
	connected := make(map[string]bool)
	for file, deps := range a.Imports {
		if len(deps) > 0 {
			connected[file] = true
		}
	}
	for file, deps := range a.ImportedBy {
		if len(deps) > 0 {
			connected[file] = true
			for _, d := range deps {
				connected[d] = true
			}
		}
	}

	all := make([]string, 0, len(connected))
	for f := range connected {
		all = append(all, f)
	}
	sort.Strings(all)

	if len(all) <= maxNodes {
		return all
	}

	priority := make(map[string]bool)
	var result []string
	add := func(f string) {
		if !priority[f] && connected[f] && len(result) < maxNodes {
			priority[f] = true
			result = append(result, f)
		}
	}

	for _, kf := range a.KeyFiles {
		add(kf.Path)
	}
	for _, ep := range a.EntryPoints {
		add(ep)
	}

	if len(result) < maxNodes {
		rest := make([]string, len(all))
		copy(rest, all)
		sort.SliceStable(rest, func(i, j int) bool {
			ci := len(a.Imports[rest[i]]) + len(a.ImportedBy[rest[i]])
			cj := len(a.Imports[rest[j]]) + len(a.ImportedBy[rest[j]])
			if ci != cj {
				return ci > cj
			}
			return rest[i] < rest[j]
		})
		for _, f := range rest {
			add(f)
		}
	}

	sort.Strings(result)
	return result
}
