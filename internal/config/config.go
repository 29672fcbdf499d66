// Package config loads the optional detest.cue project file.
//
// The file is plain CUE validated against an embedded schema that also
// supplies the defaults. A missing file is not an error: Load returns
// Defaults().
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/detest/internal/engine"
)

// DefaultFile is the file name looked up when no path is given.
const DefaultFile = "detest.cue"

//go:embed schema.cue
var schemaCUE string

// Config holds the settings a run can be configured with.
type Config struct {
	Debug   bool
	Format  string
	History string
	Filter  string
	Color   bool
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{Format: "yaml", Color: true}
}

// Error codes for configuration failures.
const (
	ErrCodeRead          = "C001" // file could not be read
	ErrCodeSyntax        = "C002" // file is not valid CUE
	ErrCodeUnknownField  = "C003" // field not in schema
	ErrCodeInvalidValue  = "C004" // value violates schema
	ErrCodeInvalidFilter = "C005" // filter is not a valid glob
)

// Error reports a configuration problem, with the CUE position when known.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var fields = []string{"debug", "format", "history", "filter", "color"}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, &Error{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse validates configuration source. filename is used in positions.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, cueError(ErrCodeSyntax, err)
	}

	iter, err := file.Fields()
	if err != nil {
		return Config{}, cueError(ErrCodeSyntax, err)
	}
	for iter.Next() {
		if !known(iter.Label()) {
			return Config{}, &Error{
				Code:    ErrCodeUnknownField,
				Message: fmt.Sprintf("unknown field %q", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
	}

	v := schema.Unify(file)
	if err := v.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}

	var cfg Config
	if cfg.Debug, err = lookup(v, "debug").Bool(); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}
	if cfg.Format, err = lookup(v, "format").String(); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}
	if cfg.History, err = lookup(v, "history").String(); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}
	if cfg.Filter, err = lookup(v, "filter").String(); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}
	if cfg.Color, err = lookup(v, "color").Bool(); err != nil {
		return Config{}, cueError(ErrCodeInvalidValue, err)
	}

	if cfg.Filter != "" {
		if err := engine.ValidateFilter(cfg.Filter); err != nil {
			return Config{}, &Error{
				Code:    ErrCodeInvalidFilter,
				Message: err.Error(),
				Pos:     lookup(file, "filter").Pos(),
			}
		}
	}

	return cfg, nil
}

// lookup returns the field's default when it has one.
func lookup(v cue.Value, field string) cue.Value {
	fv, _ := v.LookupPath(cue.ParsePath(field)).Default()
	return fv
}

func known(label string) bool {
	for _, f := range fields {
		if f == label {
			return true
		}
	}
	return false
}

// cueError converts a CUE error, keeping the first error's position.
func cueError(code string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}

	first := errs[0]
	out := &Error{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
