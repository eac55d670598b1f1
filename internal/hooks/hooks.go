// Package hooks runs user Go scripts around mol commands. Scripts live in the
// hooks directory of the changeset folder and are interpreted with yaegi, so
// no toolchain is needed at release time.
//
// A script is a main package that may define any of:
//
//	func Name() string
//	func CoreVersion() string
//	func PreCommand(command string, ctx map[string]any) error
//	func PostCommand(command string, ctx map[string]any) error
package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/kingrea/mol/internal/logging"
	"github.com/kingrea/mol/internal/version"
)

// CoreVersion is the hook API version. Scripts declaring a CoreVersion must
// agree on major.minor.
const CoreVersion = "0.3.0"

const (
	nameFunc        = "Name"
	coreVersionFunc = "CoreVersion"
	preFunc         = "PreCommand"
	postFunc        = "PostCommand"
)

// ErrIncompatible indicates a script targets another hook API version.
var ErrIncompatible = errors.New("hooks: incompatible core version")

// Context is the read-only view handed to scripts.
type Context struct {
	Root       string
	Changesets string
	DryRun     bool
}

func (c Context) values() map[string]any {
	return map[string]any{
		"root":       c.Root,
		"changesets": c.Changesets,
		"dry_run":    c.DryRun,
	}
}

// Hook is one loaded script.
type Hook struct {
	Name string
	Path string
	pre  reflect.Value
	post reflect.Value
}

// Runner invokes every loaded hook in file name order.
type Runner struct {
	hooks  []*Hook
	logger logging.Logger
}

// Load interprets every .go file in dir. A missing directory yields an empty
// runner.
func Load(dir string, logger logging.Logger) (*Runner, error) {
	runner := &Runner{logger: logging.OrNop(logger)}
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return runner, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return runner, nil
		}
		return nil, fmt.Errorf("hooks: read %s: %w", trimmed, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		hook, err := loadFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		runner.logger.Debug("loaded hook", "name", hook.Name, "path", hook.Path)
		runner.hooks = append(runner.hooks, hook)
	}
	sort.Slice(runner.hooks, func(i, j int) bool { return runner.hooks[i].Path < runner.hooks[j].Path })
	return runner, nil
}

func loadFile(path string) (*Hook, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hooks: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("hooks: %s is empty", path)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("hooks: %s: %w", path, err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("hooks: interpret %s: %w", path, err)
	}

	hook := &Hook{
		Name: strings.TrimSuffix(filepath.Base(path), ".go"),
		Path: path,
		pre:  lookup(i, preFunc),
		post: lookup(i, postFunc),
	}
	if fn := lookup(i, nameFunc); fn.IsValid() {
		name, err := callString(fn)
		if err != nil {
			return nil, fmt.Errorf("hooks: %s: %s: %w", path, nameFunc, err)
		}
		hook.Name = name
	}
	if fn := lookup(i, coreVersionFunc); fn.IsValid() {
		target, err := callString(fn)
		if err != nil {
			return nil, fmt.Errorf("hooks: %s: %s: %w", path, coreVersionFunc, err)
		}
		var semantic version.Semantic
		if semantic.Mask("*.*", target) != semantic.Mask("*.*", CoreVersion) {
			return nil, fmt.Errorf("%w: %s wants %s, running %s", ErrIncompatible, path, target, CoreVersion)
		}
	}
	if !hook.pre.IsValid() && !hook.post.IsValid() {
		return nil, fmt.Errorf("hooks: %s defines neither %s nor %s", path, preFunc, postFunc)
	}
	return hook, nil
}

// lookup returns the function value of name, or an invalid value when the
// script does not define it.
func lookup(i *interp.Interpreter, name string) reflect.Value {
	value, err := i.Eval(name)
	if err != nil || !value.IsValid() || value.Kind() != reflect.Func {
		return reflect.Value{}
	}
	return value
}

// Len returns the number of loaded hooks.
func (r *Runner) Len() int {
	return len(r.hooks)
}

// Hooks returns the loaded hooks.
func (r *Runner) Hooks() []*Hook {
	return append([]*Hook(nil), r.hooks...)
}

// Pre runs every PreCommand. The first failure stops the command.
func (r *Runner) Pre(command string, ctx Context) error {
	return r.run(preFunc, command, ctx, func(h *Hook) reflect.Value { return h.pre })
}

// Post runs every PostCommand. The first failure is returned.
func (r *Runner) Post(command string, ctx Context) error {
	return r.run(postFunc, command, ctx, func(h *Hook) reflect.Value { return h.post })
}

func (r *Runner) run(kind, command string, ctx Context, pick func(*Hook) reflect.Value) error {
	if r == nil {
		return nil
	}
	for _, hook := range r.hooks {
		fn := pick(hook)
		if !fn.IsValid() {
			continue
		}
		r.logger.Debug("running hook", "hook", hook.Name, "stage", kind, "command", command)
		if err := callHook(fn, command, ctx.values()); err != nil {
			return fmt.Errorf("hooks: %s %s(%s): %w", hook.Name, kind, command, err)
		}
	}
	return nil
}

func callHook(fn reflect.Value, command string, values map[string]any) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	if fn.Type().NumIn() != 2 {
		return errors.New("must accept (string, map[string]any)")
	}
	results := fn.Call([]reflect.Value{reflect.ValueOf(command), reflect.ValueOf(values)})
	if len(results) == 0 {
		return nil
	}
	if len(results) > 1 {
		return errors.New("must return at most an error")
	}
	last := results[0]
	if last.Kind() == reflect.Interface && last.IsNil() {
		return nil
	}
	if e, ok := last.Interface().(error); ok {
		return e
	}
	return fmt.Errorf("returned non-error value %v", last.Interface())
}

func callString(fn reflect.Value) (string, error) {
	if fn.Type().NumIn() != 0 {
		return "", errors.New("must take no arguments")
	}
	results := fn.Call(nil)
	if len(results) != 1 {
		return "", errors.New("must return a string")
	}
	s, ok := results[0].Interface().(string)
	if !ok {
		return "", errors.New("must return a string")
	}
	return s, nil
}
