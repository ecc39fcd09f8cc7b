package rdf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	NSPol  = "http://politics.kg/ontology#"
	NSRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NSXSD  = "http://www.w3.org/2001/XMLSchema#"
	NSDCT  = "http://purl.org/dc/terms/"
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	ResourceBase = "http://politics.kg/"
)

type TermKind int

const (
	KindIRI TermKind = iota
	KindPrefixed
	KindLiteral
	KindTyped
	KindNumber
)

// Term is a node or predicate in a triple.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string // prefixed name, only for KindTyped
}

var RDFType = IRI(NSRDF + "type")

func IRI(iri string) Term { return Term{Kind: KindIRI, Value: iri} }

// Name builds a prefixed name such as pol:Video.
func Name(prefix, local string) Term { return Term{Kind: KindPrefixed, Value: prefix + ":" + local} }

func Literal(s string) Term { return Term{Kind: KindLiteral, Value: s} }

func Typed(lexical, datatype string) Term {
	return Term{Kind: KindTyped, Value: lexical, Datatype: datatype}
}

func Integer(n int) Term { return Term{Kind: KindNumber, Value: strconv.Itoa(n)} }

// Decimal always carries a fractional part so Turtle reads it as xsd:decimal.
func Decimal(f float64) Term {
	switch {
	case math.IsNaN(f):
		return Typed("NaN", "xsd:double")
	case math.IsInf(f, 1):
		return Typed("INF", "xsd:double")
	case math.IsInf(f, -1):
		return Typed("-INF", "xsd:double")
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return Term{Kind: KindNumber, Value: s}
}

// String renders the term in Turtle syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		if t == RDFType {
			return "a"
		}
		return "<" + escapeIRI(t.Value) + ">"
	case KindPrefixed, KindNumber:
		return t.Value
	case KindTyped:
		return `"` + EscapeLiteral(t.Value) + `"^^` + t.Datatype
	default:
		return `"` + EscapeLiteral(t.Value) + `"`
	}
}

// escapeIRI percent-encodes characters that may not appear in an IRIREF.
func escapeIRI(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&b, "%%%02X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
