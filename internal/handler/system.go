package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pickeld/lucy/internal/config"
	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
)

// healthRollup is the narrow slice of *plugins.Registry Health needs.
type healthRollup interface {
	HealthRollup(ctx context.Context) map[string]plugins.HealthStatus
}

// SystemHandler serves operational metadata about the running
// instance: build info, which backends (vector store, object storage)
// are configured, and the aggregated health rollup a deployment's
// load balancer or dashboard polls.
type SystemHandler struct {
	cfg     *config.Config
	host    *host.Host
	plugins healthRollup
}

// NewSystemHandler creates a new system handler. plugins may be nil
// until cmd/lucyd finishes loading the plugin registry.
func NewSystemHandler(cfg *config.Config, h *host.Host, plugins healthRollup) *SystemHandler {
	return &SystemHandler{cfg: cfg, host: h, plugins: plugins}
}

// HealthResponse is the /health payload: an overall status plus one
// entry per dependency (the vector store and every loaded plugin).
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports vector-store reachability and plugin health
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	deps := map[string]string{"vectors": "healthy"}
	overall := "healthy"

	if err := h.host.Vectors.HealthCheck(ctx); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "system", "dep": "vectors"})
		deps["vectors"] = "down"
		overall = "degraded"
	}

	if h.plugins != nil {
		for name, status := range h.plugins.HealthRollup(ctx) {
			deps[name] = string(status)
			if status != plugins.HealthOK && overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	if deps["vectors"] == "down" {
		overall = "down"
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": HealthResponse{Status: overall, Dependencies: deps}})
}

// GetSystemInfoResponse defines the response structure for system info.
type GetSystemInfoResponse struct {
	Version           string `json:"version"`
	CommitID          string `json:"commit_id,omitempty"`
	BuildTime         string `json:"build_time,omitempty"`
	GoVersion         string `json:"go_version,omitempty"`
	VectorStoreEngine string `json:"vector_store_engine,omitempty"`
	MinioEnabled      bool   `json:"minio_enabled,omitempty"`
}

// Version info is injected at link time via -ldflags.
var (
	Version   = "unknown"
	CommitID  = "unknown"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

// GetSystemInfo godoc
// @Summary      System info
// @Description  Returns build and backend configuration metadata
// @Tags         system
// @Produce      json
// @Success      200  {object}  GetSystemInfoResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	response := GetSystemInfoResponse{
		Version:           Version,
		CommitID:          CommitID,
		BuildTime:         BuildTime,
		GoVersion:         GoVersion,
		VectorStoreEngine: h.getVectorStoreEngine(),
		MinioEnabled:      h.isMinioEnabled(),
	}

	logger.Info(ctx, "System info retrieved successfully")
	c.JSON(200, gin.H{
		"code": 0,
		"msg":  "success",
		"data": response,
	})
}

func (h *SystemHandler) getVectorStoreEngine() string {
	if h.cfg != nil && h.cfg.VectorDatabase != nil && h.cfg.VectorDatabase.Driver != "" {
		return h.cfg.VectorDatabase.Driver
	}
	return "not configured"
}

func (h *SystemHandler) isMinioEnabled() bool {
	if h.cfg != nil && h.cfg.Minio.Endpoint != "" {
		return true
	}
	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKeyID := os.Getenv("MINIO_ACCESS_KEY_ID")
	secretAccessKey := os.Getenv("MINIO_SECRET_ACCESS_KEY")
	return endpoint != "" && accessKeyID != "" && secretAccessKey != ""
}

// MinioBucketInfo represents bucket information with access policy.
type MinioBucketInfo struct {
	Name      string `json:"name"`
	Policy    string `json:"policy"` // "public", "private", "custom"
	CreatedAt string `json:"created_at,omitempty"`
}

// ListMinioBucketsResponse defines the response structure for listing buckets.
type ListMinioBucketsResponse struct {
	Buckets []MinioBucketInfo `json:"buckets"`
}

// ListMinioBuckets godoc
// @Summary      List MinIO buckets
// @Description  Returns every bucket and its access policy
// @Tags         system
// @Produce      json
// @Success      200  {object}  ListMinioBucketsResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /system/minio/buckets [get]
func (h *SystemHandler) ListMinioBuckets(c *gin.Context) {
	ctx := logger.CloneContext(c.Request.Context())

	if !h.isMinioEnabled() {
		logger.Warn(ctx, "MinIO is not enabled")
		c.JSON(400, gin.H{"code": 400, "msg": "MinIO is not enabled", "success": false})
		return
	}

	endpoint := h.cfg.Minio.Endpoint
	accessKeyID := h.cfg.Minio.AccessKeyID
	secretAccessKey := h.cfg.Minio.SecretAccessKey
	useSSL := h.cfg.Minio.UseSSL

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		logger.Errorf(ctx, "Failed to create MinIO client: %v", err)
		c.JSON(500, gin.H{"code": 500, "msg": "Failed to connect to MinIO", "success": false})
		return
	}

	buckets, err := minioClient.ListBuckets(context.Background())
	if err != nil {
		logger.Errorf(ctx, "Failed to list MinIO buckets: %v", err)
		c.JSON(500, gin.H{"code": 500, "msg": "Failed to list buckets", "success": false})
		return
	}

	bucketInfos := make([]MinioBucketInfo, 0, len(buckets))
	for _, bucket := range buckets {
		policy := "private"
		policyStr, err := minioClient.GetBucketPolicy(context.Background(), bucket.Name)
		if err == nil && policyStr != "" {
			policy = parseBucketPolicy(policyStr)
		}
		bucketInfos = append(bucketInfos, MinioBucketInfo{
			Name:      bucket.Name,
			Policy:    policy,
			CreatedAt: bucket.CreationDate.Format("2006-01-02 15:04:05"),
		})
	}

	logger.Infof(ctx, "Listed MinIO buckets successfully, count: %d", len(bucketInfos))
	c.JSON(200, gin.H{
		"code": 0, "msg": "success", "success": true,
		"data": ListMinioBucketsResponse{Buckets: bucketInfos},
	})
}

// BucketPolicy represents the S3 bucket policy structure.
type BucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

// PolicyStatement represents a single statement in the bucket policy.
type PolicyStatement struct {
	Effect    string      `json:"Effect"`
	Principal interface{} `json:"Principal"`
	Action    interface{} `json:"Action"`
	Resource  interface{} `json:"Resource"`
}

func parseBucketPolicy(policyStr string) string {
	var policy BucketPolicy
	if err := json.Unmarshal([]byte(policyStr), &policy); err != nil {
		return "custom"
	}

	hasPublicRead := false
	for _, stmt := range policy.Statement {
		if stmt.Effect != "Allow" {
			continue
		}
		if !isPrincipalPublic(stmt.Principal) {
			continue
		}
		if !hasGetObjectAction(stmt.Action) {
			continue
		}
		hasPublicRead = true
		break
	}

	if hasPublicRead {
		return "public"
	}
	return "custom"
}

func isPrincipalPublic(principal interface{}) bool {
	switch p := principal.(type) {
	case string:
		return p == "*"
	case map[string]interface{}:
		if aws, ok := p["AWS"]; ok {
			switch a := aws.(type) {
			case string:
				return a == "*"
			case []interface{}:
				for _, v := range a {
					if s, ok := v.(string); ok && s == "*" {
						return true
					}
				}
			}
		}
	}
	return false
}

func hasGetObjectAction(action interface{}) bool {
	checkAction := func(a string) bool {
		a = strings.ToLower(a)
		return a == "s3:getobject" || a == "s3:*" || a == "*"
	}

	switch act := action.(type) {
	case string:
		return checkAction(act)
	case []interface{}:
		for _, v := range act {
			if s, ok := v.(string); ok && checkAction(s) {
				return true
			}
		}
	}
	return false
}
