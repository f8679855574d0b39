package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/services"
)

// ReleaseHandler serves the EMR release catalog
type ReleaseHandler struct {
	releases *services.ReleaseService
	logger   logger.Interface
}

// NewReleaseHandler creates a new release handler
func NewReleaseHandler(releases *services.ReleaseService, log logger.Interface) *ReleaseHandler {
	return &ReleaseHandler{
		releases: releases,
		logger:   log,
	}
}

// List returns catalog entries; inactive releases are hidden unless
// ?all=true is passed.
func (h *ReleaseHandler) List(c *gin.Context) {
	activeOnly := c.Query("all") != "true"

	releases, err := h.releases.List(activeOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list releases")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to retrieve releases",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"releases": releases,
		"count":    len(releases),
	})
}

// Get returns one catalog entry by version
func (h *ReleaseHandler) Get(c *gin.Context) {
	release, err := h.releases.Get(c.Param("version"))
	if err != nil {
		if services.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Release not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to get release")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to retrieve release",
		})
		return
	}
	c.JSON(http.StatusOK, release)
}
