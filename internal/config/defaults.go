package config

const (
	defaultInputDir           = "~/bugsort/screenshots"
	defaultOutputDir          = "~/bugsort/arranged"
	defaultReportsCSV         = "~/.local/share/bugsort/reports.csv"
	defaultClustersJSON       = "~/.local/share/bugsort/clusters.json"
	defaultJournalDB          = "~/.local/share/bugsort/journal.db"
	defaultLogDir             = "~/.local/share/bugsort/logs"
	defaultMinSimilarity      = 0.80
	defaultOCRConfidenceFloor = 0.30
	defaultFuzzyCeiling       = 0.99
	defaultClusterBackend     = "agglomerative"
	defaultClusterLinkage     = "average"
	defaultClusterMetric      = "cosine"
	defaultDistanceThreshold  = 0.5
	defaultANNTables          = 8
	defaultANNBits            = 12
	defaultANNSeed            = 1
	defaultClusterPrefix      = "vc_"
	defaultOCRBinary          = "tesseract"
	defaultOCRLanguages       = "eng+tam"
	defaultOCRPSM             = 6
	defaultOCRTimeout         = 60
	defaultEmbeddingTimeout   = 30
	defaultEmbeddingCacheMins = 60
	defaultEmbeddingModel     = "clip-vit-b-32"
	defaultWorkers            = 4
	defaultIDSource           = "content"
	defaultUnassignedDir      = "_unassigned"
	defaultReviewBind         = "127.0.0.1:7510"
	defaultReviewSampleSize   = 6
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

var defaultExtensions = []string{"jpg", "jpeg", "png"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			OutputDir:    defaultOutputDir,
			ReportsCSV:   defaultReportsCSV,
			ClustersJSON: defaultClustersJSON,
			JournalDB:    defaultJournalDB,
			LogDir:       defaultLogDir,
		},
		Matching: Matching{
			MinSimilarity:      defaultMinSimilarity,
			OCRConfidenceFloor: defaultOCRConfidenceFloor,
			FuzzyCeiling:       defaultFuzzyCeiling,
		},
		Clustering: Clustering{
			Backend:           defaultClusterBackend,
			Linkage:           defaultClusterLinkage,
			Metric:            defaultClusterMetric,
			DistanceThreshold: defaultDistanceThreshold,
			ANNTables:         defaultANNTables,
			ANNBits:           defaultANNBits,
			ANNSeed:           defaultANNSeed,
			Prefix:            defaultClusterPrefix,
		},
		OCR: OCR{
			Binary:         defaultOCRBinary,
			Languages:      defaultOCRLanguages,
			PSM:            defaultOCRPSM,
			TimeoutSeconds: defaultOCRTimeout,
		},
		Embedding: Embedding{
			Model:          defaultEmbeddingModel,
			TimeoutSeconds: defaultEmbeddingTimeout,
			CacheMinutes:   defaultEmbeddingCacheMins,
		},
		Pipeline: Pipeline{
			Workers:    defaultWorkers,
			IDSource:   defaultIDSource,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Arrange: Arrange{
			UnassignedDir: defaultUnassignedDir,
			Extensions:    append([]string(nil), defaultExtensions...),
		},
		Review: Review{
			Bind:       defaultReviewBind,
			SampleSize: defaultReviewSampleSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
