package rdf

type Prefix struct {
	Name string
	IRI  string
}

type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Graph keeps triples in insertion order so serialization is deterministic.
type Graph struct {
	Prefixes []Prefix
	Comments []string
	Triples  []Triple
}

// DefaultPrefixes is the vocabulary every exported document declares.
var DefaultPrefixes = []Prefix{
	{Name: "pol", IRI: NSPol},
	{Name: "rdfs", IRI: NSRDFS},
	{Name: "xsd", IRI: NSXSD},
	{Name: "dct", IRI: NSDCT},
}

func NewGraph() *Graph {
	prefixes := make([]Prefix, len(DefaultPrefixes))
	copy(prefixes, DefaultPrefixes)
	return &Graph{Prefixes: prefixes}
}

func (g *Graph) Add(s, p, o Term) {
	g.Triples = append(g.Triples, Triple{Subject: s, Predicate: p, Object: o})
}

func (g *Graph) Comment(line string) {
	g.Comments = append(g.Comments, line)
}

func (g *Graph) Len() int { return len(g.Triples) }
