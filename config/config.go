package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	GitHub   GitHubConfig   `yaml:"github"`
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type GitHubConfig struct {
	Token       string `yaml:"token"`
	APIURL      string `yaml:"api_url"` // 留空使用 api.github.com
	MaxFileSize int64  `yaml:"max_file_size"`
	FileLimit   int    `yaml:"file_limit"`
	TreeDepth   int    `yaml:"tree_depth"`
}

type LLMConfig struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type AnalysisConfig struct {
	Workers        int `yaml:"workers"`
	PlagiarismMax  int `yaml:"plagiarism_max"`   // 查重抽样文件数上限
	HistoryWindow  int `yaml:"history_window"`   // 对话上下文保留的轮数
	FilePreviewMax int `yaml:"file_preview_max"` // 注入对话的单文件内容上限（字符）
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	// .env 约定：密钥不入库、不入配置文件
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		GitHub: GitHubConfig{
			MaxFileSize: 100 * 1024,
			FileLimit:   50,
			TreeDepth:   4,
		},
		LLM: LLMConfig{
			APIURL:    "https://api.openai.com/v1",
			Model:     "gpt-4o",
			MaxTokens: 1000,
		},
		Analysis: AnalysisConfig{
			Workers:        2,
			PlagiarismMax:  10,
			HistoryWindow:  10,
			FilePreviewMax: 7000,
		},
	}

	data, err := os.ReadFile(Path())
	if err == nil {
		yaml.Unmarshal(data, config)
	}

	// 环境变量优先级高于配置文件
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}

	// GitHub 环境变量
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if apiURL := os.Getenv("GITHUB_API_URL"); apiURL != "" {
		config.GitHub.APIURL = apiURL
	}
	if limit := os.Getenv("FILE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			config.GitHub.FileLimit = n
		}
	}

	// 数据库环境变量
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	if config.Analysis.Workers <= 0 {
		config.Analysis.Workers = 2
	}

	return config
}

// Save 持久化配置。密钥只走环境变量，不落盘。
func (c *Config) Save(path string) error {
	clean := *c
	clean.GitHub.Token = ""
	clean.LLM.APIKey = ""

	data, err := yaml.Marshal(&clean)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Path 返回配置文件路径，与加载时的约定一致
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
