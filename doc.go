// Package mend is the Composition Root for the mend maintenance tool.
//
// It connects the document model and repair logic (pkg/core, pkg/repair)
// with the storage adapters (Sanity HTTP API, a directory of JSON/YAML
// files, a SQLite mirror) using the Hexagonal Architecture pattern.
//
// Features:
//
//   - **Key Normalization**: every object inside an array gets a unique `_key`,
//     existing keys are kept, so a second pass changes nothing.
//   - **Change Detection**: documents are only written when a fix changed them.
//   - **Backups**: JSON snapshots of a dataset with rotation and restore.
//   - **Adapters**: `sanity`, `fs` and `sqlite`, selected by configuration.
//
// Usage:
//
//	store, err := mend.Open(mend.Config{
//		ProjectID: "abc123",
//		Dataset:   "production",
//	}, mend.WithLogger(logger))
//
//	report, err := mend.Repair(ctx, store, `*[_type == "page"]`)
package mend
