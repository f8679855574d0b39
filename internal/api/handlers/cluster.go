package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dsyorkd/emr-controller/internal/api/middleware"
	"github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
	"github.com/dsyorkd/emr-controller/internal/services"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

// ClusterHandler maps the administrative surface onto the lifecycle
// orchestrator.
type ClusterHandler struct {
	clusters *services.ClusterService
	logger   logger.Interface
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(clusters *services.ClusterService, log logger.Interface) *ClusterHandler {
	return &ClusterHandler{
		clusters: clusters,
		logger:   log,
	}
}

// CreateClusterRequest represents the request to create a cluster
type CreateClusterRequest struct {
	Identifier   string `json:"identifier" binding:"required"`
	Size         int    `json:"size"`
	Lifetime     int    `json:"lifetime"`
	EMRRelease   string `json:"emr_release" binding:"required"`
	SSHPublicKey string `json:"ssh_public_key"`
	OwnerEmail   string `json:"owner_email"`
}

// ExtendClusterRequest represents the request to extend a cluster lifetime
type ExtendClusterRequest struct {
	Hours int `json:"hours" binding:"required"`
}

// List returns clusters matching the optional status/created_by filters
func (h *ClusterHandler) List(c *gin.Context) {
	opts := storage.ClusterListOptions{
		Status:    models.ClusterStatus(c.Query("status")),
		CreatedBy: c.Query("created_by"),
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}

	clusters, err := h.clusters.List(opts)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list clusters")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to retrieve clusters",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// Create creates a new cluster
func (h *ClusterHandler) Create(c *gin.Context) {
	var req CreateClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	cluster, err := h.clusters.Create(c.Request.Context(), services.CreateClusterRequest{
		Identifier:   req.Identifier,
		Size:         req.Size,
		Lifetime:     req.Lifetime,
		EMRRelease:   req.EMRRelease,
		SSHPublicKey: req.SSHPublicKey,
		CreatedBy:    middleware.GetUser(c),
		OwnerEmail:   req.OwnerEmail,
	})
	if err != nil {
		h.respondError(c, err, "Failed to create cluster")
		return
	}

	h.logger.WithField("cluster_id", cluster.ID).Info("Created new cluster")
	c.JSON(http.StatusCreated, cluster)
}

// Get returns a specific cluster by ID
func (h *ClusterHandler) Get(c *gin.Context) {
	id, ok := h.clusterID(c)
	if !ok {
		return
	}

	cluster, err := h.clusters.Get(id)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve cluster")
		return
	}
	c.JSON(http.StatusOK, cluster)
}

// Extend pushes out the cluster expiration by the requested hours
func (h *ClusterHandler) Extend(c *gin.Context) {
	id, ok := h.clusterID(c)
	if !ok {
		return
	}

	var req ExtendClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	cluster, err := h.clusters.Extend(c.Request.Context(), id, req.Hours)
	if err != nil {
		h.respondError(c, err, "Failed to extend cluster")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"cluster_id": id,
		"hours":      req.Hours,
	}).Info("Extended cluster lifetime")
	c.JSON(http.StatusOK, cluster)
}

// Terminate requests cluster shutdown
func (h *ClusterHandler) Terminate(c *gin.Context) {
	id, ok := h.clusterID(c)
	if !ok {
		return
	}

	cluster, err := h.clusters.Terminate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to terminate cluster")
		return
	}

	h.logger.WithField("cluster_id", id).Info("Requested cluster termination")
	c.JSON(http.StatusOK, cluster)
}

// Sync triggers an immediate status sync against the backend
func (h *ClusterHandler) Sync(c *gin.Context) {
	id, ok := h.clusterID(c)
	if !ok {
		return
	}

	cluster, err := h.clusters.Sync(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to sync cluster")
		return
	}
	c.JSON(http.StatusOK, cluster)
}

func (h *ClusterHandler) clusterID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid cluster ID",
		})
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors onto HTTP failure results.
func (h *ClusterHandler) respondError(c *gin.Context, err error, message string) {
	switch {
	case services.IsNotFound(err) || errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "Cluster not found",
		})
	case services.IsInvalidInput(err) || errors.Is(err, services.ErrReleaseNotEligible):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	case services.IsNotActive(err) || services.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": err.Error(),
		})
	case services.IsProvisioningFailed(err):
		h.logger.WithError(err).Error("Provisioning failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": "The provisioning backend rejected the request",
		})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": message,
		})
	}
}
