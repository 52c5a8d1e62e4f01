package review

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bugsort/internal/clusterstore"
	"bugsort/internal/logging"
	"bugsort/internal/report"
	"bugsort/internal/services"
	"bugsort/internal/textutil"
)

const keywordCount = 5

// Sample is the reviewer-facing view of one item.
type Sample struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	OCRText    string  `json:"ocrText"`
	ScreenID   string  `json:"screenId,omitempty"`
	Confidence float64 `json:"screenConfidence"`
	Category   string  `json:"category"`
	Comment    string  `json:"comment,omitempty"`
}

// Cluster is a cluster with a bounded list of sample items. Keywords are the
// OCR terms that set it apart from the rest of the store.
type Cluster struct {
	ID       string   `json:"id"`
	Label    string   `json:"label,omitempty"`
	Size     int      `json:"size"`
	Keywords []string `json:"keywords,omitempty"`
	Samples  []Sample `json:"samples"`
}

// ClusterListResponse is returned by GET /api/clusters.
type ClusterListResponse struct {
	Clusters []Cluster `json:"clusters"`
}

// ClusterResponse is returned by single-cluster endpoints.
type ClusterResponse struct {
	Cluster Cluster `json:"cluster"`
}

// LabelRequest is the body of POST /api/clusters/:id/label.
type LabelRequest struct {
	Label string `json:"label"`
}

// MergeRequest is the body of POST /api/merge.
type MergeRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// ErrorResponse carries a failure message and its classification.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clusters": len(s.store.Clusters())})
}

func (s *Server) listClusters(c *gin.Context) {
	summaries := s.store.Clusters()
	corpus := s.corpus()
	out := make([]Cluster, 0, len(summaries))
	for _, summary := range summaries {
		detail, err := s.store.Cluster(summary.ID)
		if err != nil {
			// Merged away between the two reads.
			continue
		}
		out = append(out, toCluster(detail, corpus, s.sampleSize))
	}
	c.JSON(http.StatusOK, ClusterListResponse{Clusters: out})
}

func (s *Server) getCluster(c *gin.Context) {
	detail, err := s.store.Cluster(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClusterResponse{Cluster: toCluster(detail, s.corpus(), 0)})
}

func (s *Server) labelCluster(c *gin.Context) {
	var req LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrInput, "review", "label", "invalid request body", err))
		return
	}
	id := c.Param("id")
	if err := s.store.AssignLabel(c.Request.Context(), id, req.Label); err != nil {
		s.writeError(c, err)
		return
	}
	detail, err := s.store.Cluster(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	logging.WithContext(c.Request.Context(), s.logger).Info("cluster labeled",
		logging.String(logging.FieldClusterID, detail.ID),
		logging.String("label", detail.Label),
	)
	c.JSON(http.StatusOK, ClusterResponse{Cluster: toCluster(detail, s.corpus(), s.sampleSize)})
}

func (s *Server) mergeClusters(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrInput, "review", "merge", "invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Destination) == "" {
		s.writeError(c, services.Wrap(services.ErrInput, "review", "merge", "source and destination are required", nil))
		return
	}
	if err := s.store.Merge(c.Request.Context(), req.Source, req.Destination); err != nil {
		s.writeError(c, err)
		return
	}
	detail, err := s.store.Cluster(req.Destination)
	if err != nil {
		s.writeError(c, err)
		return
	}
	logging.WithContext(c.Request.Context(), s.logger).Info("clusters merged",
		logging.String("source", req.Source),
		logging.String(logging.FieldClusterID, detail.ID),
		logging.Int("size", detail.Size),
	)
	c.JSON(http.StatusOK, ClusterResponse{Cluster: toCluster(detail, s.corpus(), s.sampleSize)})
}

// corpus is the OCR text of every item in the store.
func (s *Server) corpus() []string {
	items := s.store.Items()
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.OCRText)
	}
	return texts
}

// toCluster converts detail, keeping at most limit samples. A limit of zero
// keeps every item.
func toCluster(detail clusterstore.ClusterDetail, corpus []string, limit int) Cluster {
	group := make([]string, 0, len(detail.Items))
	for _, item := range detail.Items {
		group = append(group, item.OCRText)
	}
	items := detail.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	samples := make([]Sample, 0, len(items))
	for _, item := range items {
		samples = append(samples, toSample(item))
	}
	return Cluster{
		ID:       detail.ID,
		Label:    detail.Label,
		Size:     detail.Size,
		Keywords: textutil.Keywords(corpus, group, keywordCount),
		Samples:  samples,
	}
}

func toSample(item report.Item) Sample {
	return Sample{
		ID:         item.ID,
		Filename:   item.Filename,
		OCRText:    item.OCRText,
		ScreenID:   item.PredictedScreenID,
		Confidence: item.ScreenConfidence,
		Category:   item.Category,
		Comment:    item.Comment,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConsistency):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), "review request failed", "review_error",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: services.Kind(err)})
}
