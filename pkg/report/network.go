package report

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/iterenrich/pkg/iterative"
)

// NodeType distinguishes the kinds of network nodes.
type NodeType string

const (
	NodeTerm   NodeType = "term"
	NodeGene   NodeType = "gene"
	NodeLegend NodeType = "legend"
)

// Node is a vertex of the gene–term network.
type Node struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Type      NodeType `json:"type"`
	Library   string   `json:"library,omitempty"`
	Iteration int      `json:"iteration,omitempty"`
	Color     string   `json:"color,omitempty"`
}

// Edge links a gene node to a term node.
type Edge struct {
	Gene string `json:"gene"`
	Term string `json:"term"`
}

// Network is a bipartite gene–term graph built from iteration records.
// Nodes and edges are keyed by ID, so adding the same gene or the same
// gene–term pair twice keeps a single copy.
type Network struct {
	nodes map[string]Node
	edges map[Edge]struct{}
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes: make(map[string]Node),
		edges: make(map[Edge]struct{}),
	}
}

// LibraryPalette colours term nodes of merged networks, one colour per
// library in the order libraries are added. It wraps around when exhausted.
var LibraryPalette = []string{
	"#1f77b4", "#d62728", "#2ca02c", "#9467bd", "#ff7f0e",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// BuildNetwork converts the records of one iterative run into a network.
// Each iteration contributes a term node with ID "term_<iteration>_<term>"
// and a gene node "gene_<gene>" per removed gene, both sanitized.
func BuildNetwork(records []iterative.Record) *Network {
	n := NewNetwork()
	for _, rec := range records {
		n.addRecord(Sanitize(fmt.Sprintf("term_%d_%s", rec.Iteration, rec.Term)), rec, "")
	}
	return n
}

// MergeNetworks combines several runs, typically one per library, into one
// network. Term IDs include the library name so equal terms from different
// libraries stay apart; gene nodes are shared. Term nodes are coloured per
// library and a legend node is added for each library.
func MergeNetworks(runs []*iterative.Run) *Network {
	n := NewNetwork()
	for i, run := range runs {
		color := LibraryPalette[i%len(LibraryPalette)]
		n.addNode(Node{
			ID:      Sanitize("legend_" + run.Library),
			Label:   run.Library,
			Type:    NodeLegend,
			Library: run.Library,
			Color:   color,
		})
		for _, rec := range run.Records {
			id := Sanitize(fmt.Sprintf("term_%d_%s_%s", rec.Iteration, run.Library, rec.Term))
			n.addRecord(id, rec, color)
		}
	}
	return n
}

func (n *Network) addRecord(termID string, rec iterative.Record, color string) {
	term := Node{
		ID:        termID,
		Label:     fmt.Sprintf("%s (it %d)", rec.Term, rec.Iteration),
		Type:      NodeTerm,
		Iteration: rec.Iteration,
		Color:     color,
	}
	if color != "" {
		term.Library = rec.Library
	}
	n.addNode(term)
	for _, g := range rec.Genes {
		geneID := Sanitize("gene_" + g)
		n.addNode(Node{ID: geneID, Label: g, Type: NodeGene})
		n.AddEdge(geneID, termID)
	}
}

func (n *Network) addNode(node Node) {
	if _, ok := n.nodes[node.ID]; !ok {
		n.nodes[node.ID] = node
	}
}

// AddNode adds node unless a node with the same ID exists.
func (n *Network) AddNode(node Node) { n.addNode(node) }

// AddEdge links a gene and a term. Repeated pairs collapse.
func (n *Network) AddEdge(gene, term string) {
	n.edges[Edge{Gene: gene, Term: term}] = struct{}{}
}

// Nodes returns all nodes sorted by ID.
func (n *Network) Nodes() []Node {
	out := make([]Node, 0, len(n.nodes))
	for _, id := range slices.Sorted(maps.Keys(n.nodes)) {
		out = append(out, n.nodes[id])
	}
	return out
}

// Edges returns all edges sorted by gene, then term.
func (n *Network) Edges() []Edge {
	out := slices.Collect(maps.Keys(n.edges))
	slices.SortFunc(out, func(a, b Edge) int {
		if c := strings.Compare(a.Gene, b.Gene); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})
	return out
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int { return len(n.edges) }

// Hubs returns gene labels connected to at least minTerms terms, most
// connected first, ties broken by label.
func (n *Network) Hubs(minTerms int) []string {
	degree := make(map[string]int)
	for e := range n.edges {
		degree[e.Gene]++
	}
	var hubs []string
	for id, d := range degree {
		if d >= minTerms {
			hubs = append(hubs, id)
		}
	}
	slices.SortFunc(hubs, func(a, b string) int {
		if degree[a] != degree[b] {
			return degree[b] - degree[a]
		}
		return strings.Compare(a, b)
	})
	for i, id := range hubs {
		hubs[i] = n.nodes[id].Label
	}
	return hubs
}

// =============================================================================
// DOT Output
// =============================================================================

// WriteDOT writes the network as an undirected Graphviz graph. Nodes are
// emitted before edges, each group in sorted order, so equal networks
// always produce identical output.
func (n *Network) WriteDOT(w io.Writer) error {
	_, err := w.Write(n.DOT())
	return err
}

// DOT returns the network in Graphviz DOT format.
func (n *Network) DOT() []byte {
	var buf bytes.Buffer
	buf.WriteString("graph iterative_enrichment {\n")
	buf.WriteString("  graph [layout=neato];\n")
	buf.WriteString("  node [shape=ellipse];\n")

	for _, node := range n.Nodes() {
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(node.ID), strings.Join(nodeAttrs(node), ", "))
	}
	for _, e := range n.Edges() {
		fmt.Fprintf(&buf, "  %s -- %s;\n", quote(e.Gene), quote(e.Term))
	}

	buf.WriteString("}\n")
	return buf.Bytes()
}

func nodeAttrs(node Node) []string {
	attrs := []string{"label=" + quote(node.Label)}
	switch node.Type {
	case NodeTerm:
		attrs = append(attrs, "style=filled")
		if node.Color != "" {
			attrs = append(attrs, "fillcolor="+quote(node.Color))
		}
		attrs = append(attrs, `fontcolor="white"`)
	case NodeLegend:
		attrs = append(attrs, "shape=box", "style=filled", "fillcolor="+quote(node.Color), `fontcolor="white"`)
	}
	attrs = append(attrs, "type="+quote(string(node.Type)))
	if node.Library != "" {
		attrs = append(attrs, "library="+quote(node.Library))
	}
	return attrs
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// =============================================================================
// Identifiers
// =============================================================================

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// Sanitize turns a raw label into a node identifier: every run of characters
// other than letters, digits and underscores becomes one underscore, repeated
// underscores collapse, and leading or trailing underscores are removed.
func Sanitize(raw string) string {
	s := nonWordRe.ReplaceAllString(raw, "_")
	s = underscoreRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
