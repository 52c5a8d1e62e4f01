package arrange

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bugsort/internal/fileutil"
	"bugsort/internal/logging"
	"bugsort/internal/services"
	"bugsort/internal/textutil"
)

// Mode selects copy or move.
type Mode int

const (
	ModeCopy Mode = iota
	ModeMove
)

func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

// ScanDir lists regular files in dir whose extension is allowed. Names are
// returned sorted.
func ScanDir(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "arrange", "scan", "read "+dir, err)
	}
	allowed := extensionSet(exts)
	var out []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if allowed.has(entry.Name()) {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Placement is one source file and every folder it belongs in.
type Placement struct {
	Source       string
	Destinations []string
}

// Plan is the full set of placements for one arrangement.
type Plan struct {
	Placements []Placement
}

// Files returns the number of source files in the plan.
func (p Plan) Files() int {
	return len(p.Placements)
}

// BuildPlan turns a Result into placements under outputDir. A file matched
// by several clusters is placed in each; unmatched files go to the
// unassigned folder.
func BuildPlan(result Result, inputDir, outputDir, unassignedName string) Plan {
	dests := make(map[string][]string)
	add := func(file, folder string) {
		target := filepath.Join(outputDir, folder, file)
		for _, existing := range dests[file] {
			if existing == target {
				return
			}
		}
		dests[file] = append(dests[file], target)
	}
	for _, m := range result.Matches {
		folder := folderName(m.ClusterID)
		for _, f := range m.Files {
			add(f, folder)
		}
	}
	unassigned := folderName(unassignedName)
	for _, f := range result.Unassigned {
		add(f, unassigned)
	}

	files := make([]string, 0, len(dests))
	for f := range dests {
		files = append(files, f)
	}
	sort.Strings(files)

	plan := Plan{Placements: make([]Placement, 0, len(files))}
	for _, f := range files {
		plan.Placements = append(plan.Placements, Placement{
			Source:       filepath.Join(inputDir, f),
			Destinations: dests[f],
		})
	}
	return plan
}

func folderName(id string) string {
	name := textutil.SanitizeFileName(id)
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, "..") {
		return textutil.SanitizeToken(id)
	}
	return name
}

// Options controls Execute.
type Options struct {
	Mode   Mode
	DryRun bool
	Logger *slog.Logger
}

// Stats counts what Execute did.
type Stats struct {
	Files  int
	Copies int
	Moved  int
}

// Execute carries out a plan. Copy never touches sources. Move places the
// file in every destination and then removes the source once.
func Execute(ctx context.Context, plan Plan, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "arrange")

	var stats Stats
	for _, p := range plan.Placements {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if len(p.Destinations) == 0 {
			continue
		}
		stats.Files++
		if opts.DryRun {
			for _, dst := range p.Destinations {
				logger.Info("dry run", logging.String("action", opts.Mode.String()),
					logging.String("source", p.Source), logging.String("destination", dst))
			}
			continue
		}

		if opts.Mode == ModeMove {
			if err := place(p, true); err != nil {
				return stats, err
			}
			stats.Copies += len(p.Destinations) - 1
			stats.Moved++
		} else {
			if err := place(p, false); err != nil {
				return stats, err
			}
			stats.Copies += len(p.Destinations)
		}
	}
	logger.Info("arrangement complete",
		logging.String("mode", opts.Mode.String()),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("files", stats.Files),
		logging.Int("copies", stats.Copies),
		logging.Int("moved", stats.Moved),
	)
	return stats, nil
}

// place copies to every destination, moving into the last one when move is
// set.
func place(p Placement, move bool) error {
	last := len(p.Destinations) - 1
	for i, dst := range p.Destinations {
		if move && i == last {
			if err := fileutil.MoveFile(p.Source, dst); err != nil {
				return fmt.Errorf("move %s: %w", p.Source, err)
			}
			continue
		}
		if err := fileutil.CopyFile(p.Source, dst); err != nil {
			return fmt.Errorf("copy %s: %w", p.Source, err)
		}
	}
	return nil
}
