package analyzer

import (
	"regexp"
	"strings"

	"github.com/gitlens/backend/internal/pkg/github"
)

// 框架识别规则表。顺序决定输出顺序。
var frameworkPatterns = []struct {
	Name     string
	Patterns []string
}{
	{"React", []string{`react`, `jsx`, `tsx`, `next\.js`, `next\.config\.js`}},
	{"Angular", []string{`angular`, `ng-`, `angular\.json`}},
	{"Vue.js", []string{`vue`, `nuxt`, `vuex`}},
	{"Node.js", []string{`node_modules`, `package\.json`, `npm`, `yarn`}},
	{"Django", []string{`django`, `wsgi\.py`, `asgi\.py`, `manage\.py`}},
	{"Flask", []string{`flask`, `app\.py`, `wsgi\.py`}},
	{"Ruby on Rails", []string{`rails`, `gemfile`, `ruby`}},
	{"Spring", []string{`spring`, `application\.properties`, `application\.yml`}},
	{"Laravel", []string{`laravel`, `artisan`, `blade\.php`}},
	{"Express", []string{`express`, `app\.js`, `routes`}},
	{"TensorFlow", []string{`tensorflow`, `tf\.`, `\.pb`}},
	{"PyTorch", []string{`torch`, `pytorch`}},
	{"Docker", []string{`dockerfile`, `docker-compose`}},
	{"Kubernetes", []string{`k8s`, `kubernetes`, `helm`}},
	{"GraphQL", []string{`graphql`, `gql`, `apollo`}},
	{"REST API", []string{`api`, `rest`, `swagger`, `openapi`}},
	{"jQuery", []string{`jquery`}},
	{"Bootstrap", []string{`bootstrap`}},
	{"Tailwind CSS", []string{`tailwind`}},
	{"Redux", []string{`redux`, `store\.js`, `actions`, `reducers`}},
	{"MongoDB", []string{`mongo`, `mongoose`}},
	{"PostgreSQL", []string{`postgres`, `pg`}},
	{"MySQL", []string{`mysql`, `sequelize`}},
	{"Redis", []string{`redis`}},
	{"Elasticsearch", []string{`elastic`, `elasticsearch`}},
	{".NET", []string{`\.csproj`, `\.cs`, `aspnet`}},
	{"C#", []string{`\.cs`}},
	{"Java", []string{`\.java`, `maven`, `gradle`}},
	{"Python", []string{`\.py`, `requirements\.txt`, `setup\.py`}},
	{"JavaScript", []string{`\.js`}},
	{"TypeScript", []string{`\.ts`}},
	{"Go", []string{`\.go`, `go\.mod`}},
	{"Rust", []string{`\.rs`, `cargo\.toml`}},
	{"PHP", []string{`\.php`, `composer\.json`}},
	{"Swift", []string{`\.swift`}},
	{"Kotlin", []string{`\.kt`}},
	{"R", []string{`\.r`, `\.rmd`, `\.rproj`}},
	{"MATLAB", []string{`\.m`}},
	{"C++", []string{`\.cpp`, `\.cxx`, `\.cc`}},
	{"C", []string{`\.c`, `\.h`}},
	{"Scala", []string{`\.scala`, `\.sbt`}},
	{"Clojure", []string{`\.clj`}},
	{"Haskell", []string{`\.hs`}},
	{"Elixir", []string{`\.ex`, `\.exs`}},
	{"Erlang", []string{`\.erl`}},
	{"Solidity", []string{`\.sol`}},
	{"WebAssembly", []string{`\.wasm`, `wasm`}},
}

var compiledFrameworkPatterns = compileFrameworkPatterns()

func compileFrameworkPatterns() []struct {
	Name     string
	Patterns []*regexp.Regexp
} {
	out := make([]struct {
		Name     string
		Patterns []*regexp.Regexp
	}, 0, len(frameworkPatterns))
	for _, fp := range frameworkPatterns {
		compiled := make([]*regexp.Regexp, 0, len(fp.Patterns))
		for _, p := range fp.Patterns {
			compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
		}
		out = append(out, struct {
			Name     string
			Patterns []*regexp.Regexp
		}{fp.Name, compiled})
	}
	return out
}

// IdentifyFrameworks 根据目录结构和文件内容识别仓库使用的框架和技术栈。
// files 可以为 nil，此时只根据目录结构文本匹配。
func IdentifyFrameworks(folderStructure string, files []github.RepoFile) []string {
	var sb strings.Builder
	sb.WriteString(folderStructure)
	for _, f := range files {
		// 只取文件的头部参与匹配，import 和依赖声明都在前面
		content := f.Content
		if len(content) > 2000 {
			content = content[:2000]
		}
		sb.WriteString("\n")
		sb.WriteString(f.Path)
		sb.WriteString("\n")
		sb.WriteString(content)
	}
	haystack := sb.String()

	var frameworks []string
	for _, fp := range compiledFrameworkPatterns {
		for _, re := range fp.Patterns {
			if re.MatchString(haystack) {
				frameworks = append(frameworks, fp.Name)
				break
			}
		}
	}
	return frameworks
}
