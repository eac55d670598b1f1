// Package release applies pending changesets to a workspace: versions are bumped
// in dependency order, dependents' constraints follow, changelogs are written and
// the consumed changesets are removed.
package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kingrea/mol/internal/bump"
	"github.com/kingrea/mol/internal/changeset"
	"github.com/kingrea/mol/internal/graph"
	"github.com/kingrea/mol/internal/logging"
	"github.com/kingrea/mol/internal/version"
)

// ManifestWriter persists version changes to package manifests.
type ManifestWriter interface {
	WriteVersion(path, version string) error
	WriteDependency(path, name, constraint string) error
}

// ChangelogSink renders and stores release notes.
type ChangelogSink[V version.Versioned[V]] interface {
	Path(manifestPath string) string
	Render(name, next string, changesets []changeset.Changeset[V]) string
	Write(path, name, entry string) error
}

// Plan is the pending release of one package.
type Plan struct {
	Name       string
	Path       string
	From       string
	To         string
	Magnitude  string
	Explicit   bool
	Changesets int
}

// Result summarizes a Version run.
type Result struct {
	Plans   []Plan
	Removed []string
}

// Releaser runs the apply loop.
type Releaser[V version.Versioned[V]] struct {
	Writer    ManifestWriter
	Changelog ChangelogSink[V]
	Reporter  *Reporter
	Logger    logging.Logger
	DryRun    bool
}

// Status computes what Version would do without touching the filesystem.
func (r *Releaser[V]) Status(g *graph.Graph[V], dir changeset.Directory) ([]Plan, error) {
	_, b, err := bump.Consume(dir, g)
	if err != nil {
		return nil, err
	}
	return plan(g, b)
}

// Version applies every pending changeset in dir. Packages are processed one at
// a time in update order; a failure stops the run and leaves earlier packages
// written.
func (r *Releaser[V]) Version(ctx context.Context, g *graph.Graph[V], dir changeset.Directory) (Result, error) {
	if r.Writer == nil || r.Changelog == nil {
		return Result{}, errors.New("release: writer and changelog are required")
	}
	paths, b, err := bump.Consume(dir, g)
	if err != nil {
		return Result{}, err
	}
	if b.IsEmpty() {
		r.reporter().NothingToDo()
		return Result{}, nil
	}

	plans, err := plan(g, b)
	if err != nil {
		return Result{}, err
	}
	logger := r.logger()
	logger.Info("releasing", "packages", len(plans), "changesets", len(paths), "dry_run", r.DryRun)

	var zero V
	next := make(map[string]string, len(plans))
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return Result{Plans: plans}, err
		}
		pkg, _ := g.Package(p.Name)
		next[p.Name] = p.To

		r.reporter().Action(r.DryRun, "bump %s: %s -> %s", p.Name, p.From, p.To)
		if !r.DryRun {
			if err := r.Writer.WriteVersion(pkg.Path, p.To); err != nil {
				return Result{Plans: plans}, fmt.Errorf("release: %s: %w", p.Name, err)
			}
		}

		for _, dep := range pkg.Dependencies {
			depVersion, ok := next[dep.Name]
			if !ok || zero.Match(dep.Constraint, depVersion) {
				continue
			}
			constraint := zero.Mask(dep.Constraint, depVersion)
			r.reporter().Action(r.DryRun, "update %s dependency %s: %s -> %s", p.Name, dep.Name, dep.Constraint, constraint)
			if r.DryRun {
				continue
			}
			if err := r.Writer.WriteDependency(pkg.Path, dep.Name, constraint); err != nil {
				return Result{Plans: plans}, fmt.Errorf("release: %s: dependency %s: %w", p.Name, dep.Name, err)
			}
		}

		changesets := b.Package(p.Name).Changesets()
		if len(changesets) == 0 {
			continue
		}
		path := r.Changelog.Path(pkg.Path)
		entry := r.Changelog.Render(p.Name, p.To, changesets)
		r.reporter().Action(r.DryRun, "update changelog %s", path)
		if r.DryRun {
			r.reporter().Block(entry)
			continue
		}
		if err := r.Changelog.Write(path, p.Name, entry); err != nil {
			return Result{Plans: plans}, fmt.Errorf("release: %s: %w", p.Name, err)
		}
	}

	result := Result{Plans: plans}
	for _, path := range paths {
		r.reporter().Action(r.DryRun, "delete %s", path)
		if r.DryRun {
			continue
		}
		if err := os.Remove(path); err != nil {
			return result, fmt.Errorf("release: remove %s: %w", path, err)
		}
		result.Removed = append(result.Removed, path)
	}
	logger.Info("release complete", "packages", len(plans), "removed", len(result.Removed))
	return result, nil
}

// plan resolves the next version of every package with a decided magnitude, in
// update order. Bump failures are reported before anything is written.
func plan[V version.Versioned[V]](g *graph.Graph[V], b *bump.Bump[V]) ([]Plan, error) {
	var plans []Plan
	for _, pkg := range g.UpdateOrder() {
		pb := b.Package(pkg.Name)
		magnitude, ok := pb.Version()
		if !ok {
			continue
		}
		to, err := pkg.NextVersion(magnitude)
		if err != nil {
			return nil, fmt.Errorf("release: %w", err)
		}
		plans = append(plans, Plan{
			Name:       pkg.Name,
			Path:       pkg.Path,
			From:       pkg.Version,
			To:         to,
			Magnitude:  magnitude.String(),
			Explicit:   pb.Explicit(),
			Changesets: len(pb.Changesets()),
		})
	}
	return plans, nil
}

func (r *Releaser[V]) reporter() *Reporter {
	if r.Reporter == nil {
		r.Reporter = NewReporter(io.Discard)
	}
	return r.Reporter
}

func (r *Releaser[V]) logger() logging.Logger {
	return logging.OrNop(r.Logger)
}
