package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/iterenrich/pkg/errors"
)

var (
	nodeLineRe = regexp.MustCompile(`^"((?:[^"\\]|\\.)*)"\s*\[(.*)\];$`)
	edgeLineRe = regexp.MustCompile(`^"((?:[^"\\]|\\.)*)"\s*--\s*"((?:[^"\\]|\\.)*)";$`)
	attrRe     = regexp.MustCompile(`(\w+)=("(?:[^"\\]|\\.)*"|[^,\s]+)`)
	iterRe     = regexp.MustCompile(`\(it (\d+)\)$`)
	dotUnescp  = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\n`, "\n")
)

// ParseDOT reads a network written by [Network.WriteDOT]. It understands
// that dialect only: one statement per line, quoted IDs, gene -- term edges.
// Re-serializing the result reproduces the input byte for byte.
func ParseDOT(r io.Reader) (*Network, error) {
	n := NewNetwork()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", line == "}", strings.HasPrefix(line, "//"):
			continue
		case strings.HasPrefix(line, "graph ") && strings.HasSuffix(line, "{"):
			continue
		case strings.HasPrefix(line, "graph ["), strings.HasPrefix(line, "node ["), strings.HasPrefix(line, "edge ["):
			continue
		}

		if m := edgeLineRe.FindStringSubmatch(line); m != nil {
			n.AddEdge(dotUnescp.Replace(m[1]), dotUnescp.Replace(m[2]))
			continue
		}
		if m := nodeLineRe.FindStringSubmatch(line); m != nil {
			n.AddNode(parseNode(dotUnescp.Replace(m[1]), m[2]))
			continue
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: unrecognized DOT statement: %q", lineNo, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read DOT: %w", err)
	}
	return n, nil
}

func parseNode(id, attrList string) Node {
	node := Node{ID: id}
	for _, m := range attrRe.FindAllStringSubmatch(attrList, -1) {
		value := m[2]
		if strings.HasPrefix(value, `"`) {
			value = dotUnescp.Replace(value[1 : len(value)-1])
		}
		switch m[1] {
		case "label":
			node.Label = value
		case "type":
			node.Type = NodeType(value)
		case "library":
			node.Library = value
		case "fillcolor":
			node.Color = value
		}
	}
	if node.Type == NodeTerm {
		if m := iterRe.FindStringSubmatch(node.Label); m != nil {
			node.Iteration, _ = strconv.Atoi(m[1])
		}
	}
	return node
}

// DOTStats summarizes a graph parsed by Graphviz.
type DOTStats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// ValidateDOT parses data with Graphviz and reports its size. It checks
// syntax only; nothing is laid out or rendered.
func ValidateDOT(ctx context.Context, data []byte) (DOTStats, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return DOTStats{}, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(data)
	if err != nil {
		return DOTStats{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	if g == nil {
		return DOTStats{}, errors.New(errors.ErrCodeInvalidFormat, "parse DOT: no graph")
	}
	defer g.Close()

	nodes, err := g.NodeNum()
	if err != nil {
		return DOTStats{}, fmt.Errorf("count nodes: %w", err)
	}
	edges, err := g.EdgeNum()
	if err != nil {
		return DOTStats{}, fmt.Errorf("count edges: %w", err)
	}
	return DOTStats{Nodes: nodes, Edges: edges}, nil
}
