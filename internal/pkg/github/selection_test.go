package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 测试路径分类 - 清单文件识别
func TestIsManifest(t *testing.T) {
	assert.True(t, IsManifest("requirements.txt"), "应识别 requirements.txt")
	assert.True(t, IsManifest("backend/go.mod"), "子目录中的清单也应识别")
	assert.True(t, IsManifest("package.json"), "应识别 package.json")
	assert.False(t, IsManifest("main.go"), "源文件不是清单")
	assert.False(t, IsManifest("package.json.bak"), "备份文件不是清单")
}

// 测试路径分类 - 源码与文档
func TestPathClassification(t *testing.T) {
	assert.True(t, IsSourceFile("app/models.py"), "应识别 Python 源文件")
	assert.True(t, IsSourceFile("src/index.tsx"), "应识别 TSX 源文件")
	assert.False(t, IsSourceFile("logo.png"), "图片不是源文件")

	assert.True(t, isLicense("LICENSE"), "应识别 LICENSE")
	assert.True(t, isLicense("LICENSE.md"), "应识别 LICENSE.md")
	assert.False(t, isLicense("main.go"), "代码文件不是许可证")

	assert.True(t, isReadme("README.md"), "应识别 README.md")
	assert.False(t, isReadme("docs/guide.md"), "普通文档不是 README")
}

// 测试路径分类 - 跳过目录
func TestInSkippedDir(t *testing.T) {
	assert.True(t, inSkippedDir("node_modules/lodash/index.js"), "应跳过 node_modules")
	assert.True(t, inSkippedDir("src/vendor/lib.go"), "应跳过嵌套 vendor 目录")
	assert.True(t, inSkippedDir(".git/config"), "应跳过 .git")
	assert.False(t, inSkippedDir("src/app/main.go"), "普通目录不应跳过")
}
