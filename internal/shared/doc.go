// Package shared holds cross-cutting helpers that belong to no single
// layer. Its testutil subpackage provides CSV fixtures, snapshot
// builders and a capturing slog handler used by tests throughout the
// codebase.
package shared
