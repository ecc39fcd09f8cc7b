package rdf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// WriteTurtle serializes the graph. Consecutive triples sharing a subject
// are grouped into one statement with ";" separators.
func WriteTurtle(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)

	for _, c := range g.Comments {
		for _, line := range strings.Split(c, "\n") {
			fmt.Fprintf(bw, "# %s\n", line)
		}
	}
	if len(g.Comments) > 0 {
		bw.WriteString("\n")
	}

	for _, p := range g.Prefixes {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p.Name, escapeIRI(p.IRI))
	}

	var current *Term
	for i := range g.Triples {
		t := g.Triples[i]
		if current != nil && *current == t.Subject {
			fmt.Fprintf(bw, " ;\n    %s %s", t.Predicate, t.Object)
			continue
		}
		if current != nil {
			bw.WriteString(" .\n")
		}
		fmt.Fprintf(bw, "\n%s %s %s", t.Subject, t.Predicate, t.Object)
		current = &g.Triples[i].Subject
	}
	if current != nil {
		bw.WriteString(" .\n")
	}

	return bw.Flush()
}

// Turtle returns the serialized graph as a string.
func Turtle(g *Graph) string {
	var buf bytes.Buffer
	_ = WriteTurtle(&buf, g)
	return buf.String()
}
