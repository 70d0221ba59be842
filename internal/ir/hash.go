package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSpec   = "seqcheck/spec/v1"
	DomainResult = "seqcheck/result/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes the content hash of a sequence spec.
// Canonical JSON sorts object keys, so the declaration order of failures,
// which decides the recorded failure, is hashed alongside.
func SpecHash(spec SequenceSpec) (string, error) {
	plain, err := toPlain(spec)
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	canonical, err := marshalCanonical(map[string]any{
		"spec":          plain,
		"failure_order": failureOrder(&spec, "", nil),
	})
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// failureOrder lists "path:name" for every failure, depth first.
func failureOrder(spec *SequenceSpec, path string, out []any) []any {
	for _, name := range spec.Failures.Names() {
		out = append(out, path+":"+name)
	}
	var walk func(steps []StepSpec, prefix string)
	walk = func(steps []StepSpec, prefix string) {
		for i := range steps {
			key := fmt.Sprintf("%s%d", prefix, i+1)
			if steps[i].Sequence != nil {
				out = failureOrder(steps[i].Sequence, key, out)
			}
			walk(steps[i].Alt, key+".a")
			walk(steps[i].Par, key+".p")
		}
	}
	walk(spec.Steps, path+".")
	if out == nil {
		out = []any{}
	}
	return out
}

// ResultDigest computes the content hash of a result tree.
// The diagnostic log list is excluded.
func ResultDigest(result SequenceResult) (string, error) {
	result.Logs = nil
	canonical, err := MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("ResultDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// MustSpecHash is like SpecHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSpecHash(spec SequenceSpec) string {
	hash, err := SpecHash(spec)
	if err != nil {
		panic(err)
	}
	return hash
}
