// Package importer loads plans, programs and workout trees from JSON dataset
// files into the local store.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/repflow/internal/localstore"
	"github.com/claude/repflow/internal/models"
)

// Target is where imported entities are written. *localstore.DB satisfies it.
type Target interface {
	SavePlan(ctx context.Context, p models.Plan) error
	SaveProgram(ctx context.Context, p models.Program) error
	SaveTree(ctx context.Context, t models.WorkoutTree) error
	Plan(ctx context.Context, id string) (models.Plan, error)
	Program(ctx context.Context, id string) (models.Program, error)
	Workout(ctx context.Context, id string) (models.Workout, error)
}

// Dataset is the on-disk seed format. Instances and sets reference their
// parents by id.
type Dataset struct {
	Plans     []models.Plan             `json:"plans"`
	Programs  []models.Program          `json:"programs"`
	Workouts  []models.Workout          `json:"workouts"`
	Instances []models.ExerciseInstance `json:"instances"`
	Sets      []models.ExerciseSet      `json:"sets"`
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	PlansImported     int
	ProgramsImported  int
	WorkoutsImported  int
	EntitiesSkipped   int
	InstancesImported int
	SetsImported      int
	SetsNormalized    int
	OrphanedInstances int
	OrphanedSets      int
}

// Importer reads dataset files and writes them to a Target.
type Importer struct {
	db        Target
	log       *slog.Logger
	dryRun    bool
	overwrite bool
	stats     Stats
}

// New creates a new Importer. Plans, programs and workouts already in the
// store are skipped unless overwrite is set, so a re-seed never regresses
// progress recorded since.
func New(db Target, log *slog.Logger, dryRun, overwrite bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun, overwrite: overwrite}
}

// Import loads a single dataset file, or every *.json and *.json.gz file
// in a directory in name order.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		if err := imp.importFile(ctx, path); err != nil {
			return &imp.stats, err
		}
		return &imp.stats, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && (strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			files = append(files, filepath.Join(path, name))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		if err := imp.importFile(ctx, f); err != nil {
			if ctx.Err() != nil {
				return &imp.stats, ctx.Err()
			}
			imp.log.Warn("import failed", "file", f, "error", err)
			imp.stats.FilesErrored++
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) error {
	data, err := readDataset(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := imp.ImportDataset(ctx, ds); err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	imp.stats.FilesProcessed++
	imp.log.Info("imported file", "file", filepath.Base(path),
		"workouts", len(ds.Workouts), "sets", len(ds.Sets))
	return nil
}

// ImportDataset writes one dataset: plans, then programs, then one tree per
// workout.
func (imp *Importer) ImportDataset(ctx context.Context, ds Dataset) error {
	for _, p := range ds.Plans {
		if p.Status == "" {
			p.Status = models.PhaseScheduled
		}
		ok, err := imp.shouldWrite("plan", p.ID, func() error {
			_, err := imp.db.Plan(ctx, p.ID)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !imp.dryRun {
			if err := imp.db.SavePlan(ctx, p); err != nil {
				return err
			}
		}
		imp.stats.PlansImported++
	}

	for _, p := range ds.Programs {
		if p.Status == "" {
			p.Status = models.PhaseScheduled
		}
		ok, err := imp.shouldWrite("program", p.ID, func() error {
			_, err := imp.db.Program(ctx, p.ID)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !imp.dryRun {
			if err := imp.db.SaveProgram(ctx, p); err != nil {
				return err
			}
		}
		imp.stats.ProgramsImported++
	}

	for _, t := range imp.buildTrees(ds) {
		ok, err := imp.shouldWrite("workout", t.Workout.ID, func() error {
			_, err := imp.db.Workout(ctx, t.Workout.ID)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !imp.dryRun {
			if err := imp.db.SaveTree(ctx, t); err != nil {
				return err
			}
		}
		imp.stats.WorkoutsImported++
		imp.stats.InstancesImported += len(t.Instances)
		imp.stats.SetsImported += len(t.Sets)
	}
	return nil
}

// shouldWrite reports whether an entity may be written. lookup returns nil
// when the entity already exists.
func (imp *Importer) shouldWrite(kind, id string, lookup func() error) (bool, error) {
	if imp.overwrite {
		return true, nil
	}
	err := lookup()
	switch {
	case err == nil:
		imp.log.Debug("already stored, skipping", "kind", kind, "id", id)
		imp.stats.EntitiesSkipped++
		return false, nil
	case errors.Is(err, localstore.ErrNotFound):
		return true, nil
	default:
		return false, fmt.Errorf("looking up %s %s: %w", kind, id, err)
	}
}

// buildTrees groups instances and sets under their workouts. Children whose
// parent is not in the dataset are counted and dropped.
func (imp *Importer) buildTrees(ds Dataset) []models.WorkoutTree {
	trees := make([]models.WorkoutTree, len(ds.Workouts))
	byWorkout := make(map[string]int, len(ds.Workouts))
	for i, w := range ds.Workouts {
		if w.Status == "" {
			w.Status = models.StatusScheduled
		}
		trees[i].Workout = w
		byWorkout[w.ID] = i
	}

	byInstance := make(map[string]int, len(ds.Instances))
	for _, in := range ds.Instances {
		i, ok := byWorkout[in.WorkoutID]
		if !ok {
			imp.log.Warn("instance references unknown workout", "instance_id", in.ID, "workout_id", in.WorkoutID)
			imp.stats.OrphanedInstances++
			continue
		}
		if in.Status == "" {
			in.Status = models.StatusScheduled
		}
		trees[i].Instances = append(trees[i].Instances, in)
		byInstance[in.ID] = i
	}

	for _, s := range ds.Sets {
		i, ok := byInstance[s.InstanceID]
		if !ok {
			imp.log.Warn("set references unknown instance", "set_id", s.ID, "instance_id", s.InstanceID)
			imp.stats.OrphanedSets++
			continue
		}
		if normalizeCompletion(&s) {
			imp.stats.SetsNormalized++
		}
		trees[i].Sets = append(trees[i].Sets, s)
	}

	for i := range trees {
		linkTree(&trees[i])
	}
	return trees
}

// normalizeCompletion maps legacy completion values onto the three-valued
// model. Older exports mark untouched sets "scheduled" or leave the field
// empty; both become pending with no actual values. Reports whether the
// value changed.
func normalizeCompletion(s *models.ExerciseSet) bool {
	switch s.Completion {
	case models.CompletionPending, models.CompletionCompleted, models.CompletionSkipped:
		return false
	}
	s.Completion = models.CompletionPending
	s.ClearActuals()
	return true
}
