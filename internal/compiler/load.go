package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/seqcheck/internal/ir"
)

// SpecExtensions lists the file extensions LoadPath understands.
var SpecExtensions = []string{".cue", ".json", ".yaml", ".yml"}

// LoadPath loads every sequence from a spec file or a directory of spec
// files. A directory's .cue files are unified as one CUE package; .json and
// .yaml files are compiled one by one in name order.
func LoadPath(path string) ([]ir.SequenceSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return LoadFile(path)
	}
	return loadDir(path)
}

// LoadFile compiles a single spec file.
func LoadFile(path string) ([]ir.SequenceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return CompileBytes(path, data)
}

// CompileBytes compiles an in-memory spec document. The file name selects
// the decoder: YAML for .yaml/.yml, CUE (which includes JSON) otherwise.
func CompileBytes(filename string, data []byte) ([]ir.SequenceSpec, error) {
	ctx := cuecontext.New()

	var v cue.Value
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, data)
		if err != nil {
			return nil, formatCUEError(err)
		}
		v = ctx.BuildFile(f)
	default:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileDocument(v)
}

// CompileDocument extracts sequences from a document value. The document is
// either a single sequence (has steps) or holds a sequences list.
func CompileDocument(v cue.Value) ([]ir.SequenceSpec, error) {
	if seqs := v.LookupPath(cue.ParsePath("sequences")); seqs.Exists() {
		iter, err := seqs.List()
		if err != nil {
			return nil, &CompileError{
				Field:   "sequences",
				Message: "must be a list of sequences",
				Pos:     seqs.Pos(),
			}
		}
		var specs []ir.SequenceSpec
		for i := 0; iter.Next(); i++ {
			spec, err := compileSequence(iter.Value(), fmt.Sprintf("sequences[%d].", i))
			if err != nil {
				return nil, err
			}
			specs = append(specs, *spec)
		}
		return specs, nil
	}

	if v.LookupPath(cue.ParsePath("steps")).Exists() {
		spec, err := CompileSequence(v)
		if err != nil {
			return nil, err
		}
		return []ir.SequenceSpec{*spec}, nil
	}

	return nil, &CompileError{
		Field:   "sequences",
		Message: "document holds neither a sequence nor a sequences list",
		Pos:     v.Pos(),
	}
}

func loadDir(dir string) ([]ir.SequenceSpec, error) {
	files, err := FindSpecFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var specs []ir.SequenceSpec
	hasCUE := false
	for _, f := range files {
		if filepath.Ext(f) == ".cue" {
			hasCUE = true
			continue
		}
		loaded, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loaded...)
	}

	if hasCUE {
		ctx := cuecontext.New()
		instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
		}
		if err := instances[0].Err; err != nil {
			return nil, formatCUEError(err)
		}
		v := ctx.BuildInstance(instances[0])
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		loaded, err := CompileDocument(v)
		if err != nil {
			return nil, err
		}
		specs = append(loaded, specs...)
	}

	return specs, nil
}

// FindSpecFiles returns the spec files directly inside dir, sorted by name.
func FindSpecFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range SpecExtensions {
			if ext == known {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
