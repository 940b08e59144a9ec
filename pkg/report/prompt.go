package report

import (
	"fmt"
	"strings"
)

// AnalysisPrompt builds a text prompt asking a language model to interpret
// the network n. The DOT source is embedded verbatim, followed by a short
// guide to the node and edge conventions and the questions to answer.
func AnalysisPrompt(n *Network) string {
	var b strings.Builder

	b.WriteString("The graph below was produced by iterative gene set enrichment. ")
	b.WriteString("At each iteration the most significant term was selected and the genes ")
	b.WriteString("it explained were removed before testing again, so every gene is ")
	b.WriteString("attributed to the first term that claimed it.\n\n")

	b.WriteString("```dot\n")
	b.Write(n.DOT())
	b.WriteString("```\n\n")

	b.WriteString("How to read it:\n")
	b.WriteString("- Nodes with type=\"term\" are enriched terms; the label ends with the iteration that selected them.\n")
	b.WriteString("- Nodes with type=\"gene\" are input genes.\n")
	b.WriteString("- An edge joins a gene to the term whose selection removed it.\n")
	if hasLegend(n) {
		b.WriteString("- Nodes with type=\"legend\" name the libraries; term colours match their library.\n")
	}
	if hubs := n.Hubs(2); len(hubs) > 0 {
		fmt.Fprintf(&b, "- Genes linked to more than one term: %s.\n", strings.Join(hubs, ", "))
	}
	fmt.Fprintf(&b, "\nThe network has %d nodes and %d edges.\n\n", n.NodeCount(), n.EdgeCount())

	b.WriteString("Please provide:\n")
	b.WriteString("1. A summary of the main biological themes, in iteration order.\n")
	b.WriteString("2. Notable structure: central terms, hub genes and isolated groups.\n")
	b.WriteString("3. One or two testable hypotheses that tie the themes together.\n")
	b.WriteString("4. Experimental or clinical settings where this gene set could arise.\n\n")
	b.WriteString("Answer with a heading per point and keep each section brief.\n")

	return b.String()
}

func hasLegend(n *Network) bool {
	for _, node := range n.nodes {
		if node.Type == NodeLegend {
			return true
		}
	}
	return false
}
