// Package catalog turns raw compatibility spreadsheets into catalog records.
//
// This package is the ingestion half of the compatibility catalog. It has no
// storage or transport dependencies and can be used by the web server, the
// CLI, or tests without modification.
//
// # Pipeline
//
// An import flows through three stages:
//
//  1. [Rows] streams CSV rows from an io.Reader (BOM stripped, UTF-8
//     sanitized, gzip transparently decompressed)
//  2. [NormalizeRow] turns one row into a [Record] or rejects it with
//     [ErrMalformedRow]
//  3. [Ingest] accumulates accepted records, dropping repeated model names
//     (first occurrence wins)
//
// Compatibility text is split by [Tokenize], which strips markup and
// recognizes the VIP sentinel. A VIP record never carries a compatibility
// list.
//
// # Error Handling
//
// Row-level problems are tolerated and counted in [Batch.Rejected]. Only a
// failure to read the stream itself aborts ingestion, reported as a
// [*ReadError] matching [ErrRead].
package catalog
