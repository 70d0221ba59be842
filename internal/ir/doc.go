// Package ir provides the plain record types shared by every seqcheck package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Sequence specs are immutable once compiled
//   - Result trees are plain, serializable records keyed by stable step paths
//   - Context is an ordered pair list, never a map
//   - Result JSON tags use snake_case, spec tags follow the DLT sequence format
package ir
