// Package pkg provides the libraries behind iterenrich, a gene set
// enrichment engine with an iterative peeling mode.
//
// # Overview
//
// A gene set is tested against libraries of annotated terms. Regular
// enrichment ranks every term by its p-value. Iterative enrichment
// repeatedly removes the genes of the most significant term and re-tests
// what remains, so that weaker signals masked by a dominant term surface.
//
// # Data Flow
//
//	gene set + background + libraries
//	         ↓
//	    [geneset] package (normalize, validate, intersect)
//	         ↓
//	    [enrichment] package (contingency tables, p-values, FDR)
//	         ↓
//	    [iterative] package (peeling loop, stop reasons)
//	         ↓
//	    [report] package (TSV, JSON snapshots, DOT networks, prompt)
//
// [pipeline] ties these together per library, with caching, and is what the
// CLI and HTTP API call.
//
// # Main Packages
//
// [stats] - Fisher's exact, hypergeometric and chi-squared tests and
// Benjamini-Hochberg correction.
//
// [geneset] - Gene sets, backgrounds, libraries and their JSON documents.
//
// [enrichment] - Single-pass enrichment of one gene set against one library.
//
// [iterative] - The iterative controller and its run records.
//
// [report] - Result serialization: combined tables, snapshots, term-gene
// networks and the analysis prompt.
//
// [pipeline] - Orchestration across libraries with result caching.
//
// ## Infrastructure
//
// [cache] - Result caches backed by a directory, Redis or MongoDB.
//
// [catalog] - Named libraries and backgrounds stored in a TOML file.
//
// [config] - Layered configuration from defaults, files, environment and flags.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for pipeline and HTTP instrumentation.
//
// [buildinfo] - Version information injected at build time.
package pkg
