package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
)

type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Get 返回脱敏后的运行配置，密钥只报告是否已配置
func (h *ConfigHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"github": gin.H{
			"token_configured": h.cfg.GitHub.Token != "",
			"max_file_size":    h.cfg.GitHub.MaxFileSize,
			"file_limit":       h.cfg.GitHub.FileLimit,
		},
		"llm": gin.H{
			"api_key_configured": h.cfg.LLM.APIKey != "",
			"model":              h.cfg.LLM.Model,
			"max_tokens":         h.cfg.LLM.MaxTokens,
		},
		"analysis": gin.H{
			"workers":          h.cfg.Analysis.Workers,
			"plagiarism_max":   h.cfg.Analysis.PlagiarismMax,
			"history_window":   h.cfg.Analysis.HistoryWindow,
			"file_preview_max": h.cfg.Analysis.FilePreviewMax,
		},
	})
}

type updateConfigRequest struct {
	LLMModel      *string `json:"llm_model"`
	LLMMaxTokens  *int    `json:"llm_max_tokens"`
	FileLimit     *int    `json:"file_limit"`
	PlagiarismMax *int    `json:"plagiarism_max"`
}

// Update 允许运行时调整模型与抽样参数，不接受密钥
func (h *ConfigHandler) Update(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.LLMModel != nil && *req.LLMModel != "" {
		h.cfg.LLM.Model = *req.LLMModel
	}
	if req.LLMMaxTokens != nil && *req.LLMMaxTokens > 0 {
		h.cfg.LLM.MaxTokens = *req.LLMMaxTokens
	}
	if req.FileLimit != nil && *req.FileLimit > 0 {
		h.cfg.GitHub.FileLimit = *req.FileLimit
	}
	if req.PlagiarismMax != nil && *req.PlagiarismMax > 0 {
		h.cfg.Analysis.PlagiarismMax = *req.PlagiarismMax
	}

	// 落盘失败不影响本次生效，重启后回到文件里的值
	if err := h.cfg.Save(config.Path()); err != nil {
		klog.Warningf("配置持久化失败: path=%s, error=%v", config.Path(), err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "config updated"})
}
