// Package report serializes enrichment results and iterative runs.
//
// Outputs come in three families:
//
//   - Tables: [WriteEnrichmentTSV], [WriteIterationTSV] and their combined
//     multi-library variants, plus JSON equivalents.
//   - Networks: [BuildNetwork] and [MergeNetworks] turn iteration records into
//     a gene–term graph, written as Graphviz DOT by [Network.WriteDOT] and read
//     back by [ParseDOT].
//   - Snapshots: a [Snapshot] records the inputs, parameters and results of one
//     analysis for later inspection.
//
// All writers are deterministic: the same records always produce the same
// bytes.
package report
