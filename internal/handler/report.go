package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gitlens/backend/internal/service"
)

// GetReports 获取仓库的全部报告
func (h *RepositoryHandler) GetReports(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	reports, err := h.service.GetReports(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, reports)
}

// GetLatestReport 按类型获取最新版本的报告
func (h *RepositoryHandler) GetLatestReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	reportType := c.Param("type")
	report, err := h.service.GetLatestReport(id, reportType)
	if err != nil {
		if errors.Is(err, service.ErrReportNotReady) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not ready"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetDependencyGraph 导出依赖图的 DOT 文本
func (h *RepositoryHandler) GetDependencyGraph(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	dot, err := h.service.DependencyDOT(id)
	if err != nil {
		if errors.Is(err, service.ErrReportNotReady) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dependency graph not ready"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", []byte(dot))
}

func (h *RepositoryHandler) GetFindings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	findings, err := h.service.GetFindings(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, findings)
}
