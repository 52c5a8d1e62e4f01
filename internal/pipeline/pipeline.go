package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bugsort/internal/clusterstore"
	"bugsort/internal/config"
	"bugsort/internal/journal"
	"bugsort/internal/logging"
	"bugsort/internal/metrics"
	"bugsort/internal/report"
	"bugsort/internal/rules"
	"bugsort/internal/screens"
	"bugsort/internal/services"
	"bugsort/internal/textnorm"
	"bugsort/internal/visual"
)

// ScreenClusterPrefix namespaces the per-screen groups of resolved items.
const ScreenClusterPrefix = "screen_"

// Dependencies are the collaborators a Pipeline runs with. Embedder may be
// nil, in which case uncertain items stay unclustered.
type Dependencies struct {
	OCR       services.TextExtractor
	Embedder  services.ImageEmbedder
	Matcher   *screens.Matcher
	Rules     *rules.Engine
	Clusterer visual.Clusterer
	Journal   clusterstore.Recorder
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Pipeline turns a directory of screenshots into a report and clusters.
type Pipeline struct {
	cfg  *config.Config
	deps Dependencies
	idOf func(string) (string, error)
	log  *slog.Logger
}

// New validates dependencies and builds a pipeline.
func New(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config required")
	}
	if deps.OCR == nil {
		return nil, errors.New("pipeline: text extractor required")
	}
	if j, ok := deps.Journal.(*journal.Journal); ok && j == nil {
		deps.Journal = nil
	}
	if deps.Matcher == nil {
		deps.Matcher = screens.NewMatcher(screens.DefaultRegistry(), screens.DefaultPolicy())
	}
	if deps.Rules == nil {
		deps.Rules = rules.Default()
	}
	if deps.Clusterer == nil {
		clusterer, err := visual.FromConfig(cfg.Clustering)
		if err != nil {
			return nil, err
		}
		deps.Clusterer = clusterer
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:  cfg,
		deps: deps,
		idOf: report.IDFunc(cfg.Pipeline.IDSource),
		log:  logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Summary reports the outcome of one run.
type Summary struct {
	RunID       string         `json:"runId"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Degraded    int            `json:"degraded"`
	Failed      int            `json:"failed"`
	Duplicates  int            `json:"duplicates"`
	Resolved    int            `json:"resolved"`
	Clustered   int            `json:"clustered"`
	Unclustered int            `json:"unclustered"`
	Clusters    int            `json:"clusters"`
	Categories  map[string]int `json:"categories"`
	Duration    time.Duration  `json:"durationNs"`
}

// processed is one source after OCR, matching and categorization.
type processed struct {
	item     report.Item
	ok       bool
	degraded bool
}

// Run processes sources and persists the report and clusters. A cancelled
// run returns the context error and leaves previously persisted files
// untouched.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.log)
	summary := Summary{RunID: runID, Total: len(sources), Categories: make(map[string]int)}

	logger.Info("pipeline run started", logging.Int("sources", len(sources)))

	results, err := p.processAll(ctx, sources)
	if err != nil {
		return summary, err
	}

	items := make([]report.Item, 0, len(results))
	degraded := make(map[string]bool)
	seen := make(map[string]bool)
	for _, r := range results {
		if !r.ok {
			summary.Failed++
			p.deps.Metrics.ItemOutcome(metrics.OutcomeFailed)
			continue
		}
		if seen[r.item.ID] {
			summary.Duplicates++
			p.deps.Metrics.ItemOutcome(metrics.OutcomeDuplicate)
			logger.Info("duplicate screenshot skipped",
				logging.String(logging.FieldItemID, r.item.ID),
				logging.String("filename", r.item.Filename))
			continue
		}
		seen[r.item.ID] = true
		degraded[r.item.ID] = r.degraded
		items = append(items, r.item)
	}

	vectors, err := p.embedUncertain(ctx, items)
	if err != nil {
		return summary, err
	}
	clusters, err := p.cluster(items, vectors)
	if err != nil {
		return summary, err
	}

	for i := range items {
		id := items[i].ID
		if items[i].Resolved() {
			summary.Resolved++
		} else if _, ok := vectors[id]; ok {
			summary.Clustered++
		} else {
			summary.Unclustered++
			if p.deps.Embedder != nil {
				degraded[id] = true
			}
		}
		summary.Categories[items[i].Category]++
		if degraded[id] {
			summary.Degraded++
			p.deps.Metrics.ItemOutcome(metrics.OutcomeDegraded)
		} else {
			summary.Succeeded++
			p.deps.Metrics.ItemOutcome(metrics.OutcomeSucceeded)
		}
	}
	summary.Clusters = len(clusters)

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	store, err := clusterstore.New(items, clusters,
		clusterstore.WithPaths(clusterstore.Paths{
			ReportsCSV:   p.cfg.Paths.ReportsCSV,
			ClustersJSON: p.cfg.Paths.ClustersJSON,
		}),
		clusterstore.WithLogger(p.deps.Logger),
		clusterstore.WithMetrics(p.deps.Metrics),
	)
	if err != nil {
		return summary, err
	}
	if err := store.Persist(ctx); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	p.deps.Metrics.ObservePipeline(summary.Duration)
	p.recordRun(ctx, summary)

	logger.Info("pipeline run complete",
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("degraded", summary.Degraded),
		logging.Int("failed", summary.Failed),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("resolved", summary.Resolved),
		logging.Int("clustered", summary.Clustered),
		logging.Int("clusters", summary.Clusters),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (p *Pipeline) processAll(ctx context.Context, sources []Source) ([]processed, error) {
	results := make([]processed, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Pipeline.Workers))
	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.processOne(gctx, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) processOne(ctx context.Context, src Source) processed {
	logger := logging.WithContext(ctx, p.log).With(logging.String("filename", src.Filename))

	id, err := p.idOf(src.Path)
	if err != nil {
		logging.WarnWithContext(logger, "screenshot unreadable", "item_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "screenshot left out of the report"))
		return processed{}
	}
	ctx = services.WithItemID(ctx, id)
	logger = logger.With(logging.String(logging.FieldItemID, id))

	out := processed{ok: true}
	text, confidence, err := p.deps.OCR.ExtractText(ctx, src.Path)
	if err != nil {
		p.deps.Metrics.ExternalFailure("ocr")
		logging.WarnWithContext(logger, "ocr failed", "ocr_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the tesseract install and timeout"),
			logging.String(logging.FieldImpact, "item matched without on-screen text"))
		text, confidence = "", 0
		out.degraded = true
	}

	match := p.deps.Matcher.Match(text, confidence)
	decision := p.deps.Rules.Decide(rules.Input{
		Comment:  src.Comment,
		OCRText:  text,
		Filename: src.Filename,
		Prior:    src.Prior,
	})

	out.item = report.Item{
		ID:                id,
		Filename:          src.Filename,
		OCRText:           text,
		OCRConfidence:     confidence,
		NormalizedText:    textnorm.Normalize(text),
		PredictedScreenID: match.ScreenID,
		ScreenConfidence:  match.Confidence,
		Category:          string(decision.Category),
		Comment:           src.Comment,
		UserTag:           src.UserTag,
		PriorCategory:     src.Prior,
		SourcePath:        src.Path,
	}
	logger.Debug("item processed",
		logging.String("screen", match.ScreenID),
		logging.String("method", match.Method),
		logging.Float64("screen_confidence", match.Confidence),
		logging.String("category", string(decision.Category)),
		logging.String("rule", decision.Rule),
	)
	return out
}

// embedUncertain embeds every unresolved item. Items whose embedding fails
// are left out of the returned map and therefore out of clustering.
func (p *Pipeline) embedUncertain(ctx context.Context, items []report.Item) (map[string][]float64, error) {
	vectors := make(map[string][]float64)
	if p.deps.Embedder == nil {
		return vectors, nil
	}
	var pending []report.Item
	for _, item := range items {
		if !item.Resolved() {
			pending = append(pending, item)
		}
	}
	found := make([][]float64, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Pipeline.Workers))
	for i, item := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := p.deps.Embedder.EmbedImage(services.WithItemID(gctx, item.ID), item.SourcePath)
			if err != nil {
				p.deps.Metrics.ExternalFailure("embedding")
				logging.WarnWithContext(logging.WithContext(gctx, p.log), "embedding failed", "embedding_failed",
					logging.String(logging.FieldItemID, item.ID),
					logging.Error(err),
					logging.String(logging.FieldImpact, "item left unclustered"))
				return nil
			}
			found[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dim := 0
	for i, vec := range found {
		if vec == nil {
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			logging.WarnWithContext(p.log, "embedding dimension mismatch", "embedding_failed",
				logging.String(logging.FieldItemID, pending[i].ID),
				logging.Int("want", dim),
				logging.Int("got", len(vec)),
				logging.String(logging.FieldImpact, "item left unclustered"))
			continue
		}
		vectors[pending[i].ID] = vec
	}
	return vectors, nil
}

// cluster groups resolved items per screen and partitions embedded
// uncertain items. Visual cluster IDs are seeded from the previous clusters
// file so re-runs keep existing IDs.
func (p *Pipeline) cluster(items []report.Item, vectors map[string][]float64) (report.ClusterMap, error) {
	clusters := make(report.ClusterMap)
	var inputs []visual.Input
	for i := range items {
		item := &items[i]
		if item.Resolved() {
			id := ScreenClusterPrefix + item.PredictedScreenID
			clusters[id] = append(clusters[id], report.StringMember(item.ID))
			continue
		}
		if vec, ok := vectors[item.ID]; ok {
			inputs = append(inputs, visual.Input{ItemID: item.ID, Vector: vec})
		}
	}
	if len(inputs) == 0 {
		return clusters, nil
	}

	prior, err := p.priorClusters()
	if err != nil {
		return nil, err
	}
	namer := visual.NewNamer(p.cfg.Clustering.Prefix, prior)
	assignment, err := visual.Assign(p.deps.Clusterer, namer, inputs)
	if err != nil {
		return nil, fmt.Errorf("cluster uncertain items: %w", err)
	}
	ids := make([]string, 0, len(assignment.Clusters))
	for id := range assignment.Clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, member := range assignment.Clusters[id] {
			clusters[id] = append(clusters[id], report.StringMember(member))
		}
	}
	return clusters, nil
}

func (p *Pipeline) priorClusters() (map[string][]string, error) {
	if _, err := os.Stat(p.cfg.Paths.ClustersJSON); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	prior, err := report.ReadClustersFile(p.cfg.Paths.ClustersJSON)
	if err != nil {
		logging.WarnWithContext(p.log, "previous clusters unreadable", "prior_clusters_ignored",
			logging.Error(err),
			logging.String(logging.FieldImpact, "visual cluster ids restart from 1"))
		return nil, nil
	}
	return prior.Strings(), nil
}

func (p *Pipeline) recordRun(ctx context.Context, summary Summary) {
	if p.deps.Journal == nil {
		return
	}
	detail := fmt.Sprintf("succeeded=%d degraded=%d failed=%d duplicates=%d resolved=%d clustered=%d clusters=%d",
		summary.Succeeded, summary.Degraded, summary.Failed, summary.Duplicates,
		summary.Resolved, summary.Clustered, summary.Clusters)
	if _, err := p.deps.Journal.Record(ctx, journal.Entry{
		Op:      journal.OpRun,
		RunID:   summary.RunID,
		Members: summary.Total,
		Detail:  detail,
	}); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.log), "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"))
	}
}
