package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/seqcheck/internal/compiler"
	"github.com/roach88/seqcheck/internal/engine"
	"github.com/roach88/seqcheck/internal/ir"
)

// LoadError represents an error that occurred while loading specs or
// message files.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No spec files or sequences found
	ErrCodeLoadFailed  = "E004" // Spec or message file does not decode
	ErrCodeNotFound    = "E005" // Path or sequence not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadSequences compiles every sequence in a spec file or directory.
// All failures are returned as *LoadError.
func LoadSequences(path string) ([]ir.SequenceSpec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing spec path: %v", err)}
	}

	if info.IsDir() {
		files, err := compiler.FindSpecFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no spec files found in %s", path)}
		}
	}

	specs, err := compiler.LoadPath(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	if len(specs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no sequences found in %s", path)}
	}
	return specs, nil
}

// SelectSequences narrows specs to the sequence called name. An empty name
// selects all of them.
func SelectSequences(specs []ir.SequenceSpec, name string) ([]ir.SequenceSpec, error) {
	if name == "" {
		return specs, nil
	}
	for _, spec := range specs {
		if spec.Name == name {
			return []ir.SequenceSpec{spec}, nil
		}
	}
	return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("sequence %q not found", name)}
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeLoadFailed
		if compileErr.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// LoadMessages reads a message file. The extension selects the format:
// .yaml/.yml hold a YAML list, .jsonl one JSON object per line and anything
// else a JSON array. Messages without an index are numbered in file order.
func LoadMessages(path string) ([]ir.Message, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("message file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading message file: %v", err)}
	}

	msgs, err := decodeMessages(filepath.Ext(path), data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}

	engine.NewClock().Stamp(msgs)
	return msgs, nil
}

func decodeMessages(ext string, data []byte) ([]ir.Message, error) {
	msgs := []ir.Message{}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&msgs); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case ".jsonl":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		for {
			var msg ir.Message
			err := decoder.Decode(&msg)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", len(msgs)+1, err)
			}
			msgs = append(msgs, msg)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&msgs); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}
