package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/tasks"
)

func NewHandler(providers ProviderSource, runner FeedRunner, orderer cards.Orderer, version string) *Handler {
	return &Handler{
		providers: providers,
		runner:    runner,
		orderer:   orderer,
		version:   version,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	flags := cards.FlagNone
	if apps, err := strconv.ParseBool(c.DefaultQuery("apps", "false")); err == nil && apps {
		flags |= cards.FlagIncludeInstallableApps
	}

	handles := h.providers.Snapshot()
	start := time.Now()

	records, err := h.runner.Run(c.Request.Context(), handles)
	if err != nil {
		slog.Error("Feed aggregation failed", "providers", len(handles), "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, tasks.ErrPoolStopped) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "Feed aggregation failed"})
		return
	}

	ordered := h.orderer.Arrange(records, flags)
	responses := renderCards(ordered)

	slog.Debug("Feed served", "providers", len(handles), "cards", len(responses), "duration", time.Since(start))

	c.Header("X-Feed-Items", strconv.Itoa(len(responses)))
	c.JSON(http.StatusOK, FeedResponse{
		Cards:       responses,
		Total:       len(responses),
		GeneratedAt: time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"version":               h.version,
		"loaded_configurations": h.providers.DescriptorCount(),
		"provider_handles":      len(h.providers.Snapshot()),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListProviders(c *gin.Context) {
	descriptors := h.providers.Descriptors()

	providers := make([]map[string]interface{}, 0, len(descriptors))
	for _, desc := range descriptors {
		providers = append(providers, map[string]interface{}{
			"name":                  desc.Name,
			"endpoint":              desc.Endpoint,
			"interfaces":            desc.Interfaces,
			"enabled":               desc.Enabled,
			"knowledge_app_id":      desc.KnowledgeAppID,
			"knowledge_search_path": desc.KnowledgeSearchPath,
			"timeout":               (time.Duration(desc.Timeout) * time.Second).String(),
			"file":                  desc.File,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"providers": providers,
		"total":     len(providers),
	})
}

func (h *Handler) APIReloadProviders(c *gin.Context) {
	if err := h.providers.Run(); err != nil {
		slog.Error("Error reloading provider descriptors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload provider descriptors",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Provider descriptors reloaded successfully",
		"providers": h.providers.DescriptorCount(),
		"handles":   len(h.providers.Snapshot()),
	})
}
