// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strconv"
)

// Datatype is the literal type of a fact object. The empty Datatype marks
// the object as a resource reference rather than a literal.
type Datatype string

const (
	DatatypeResource Datatype = ""
	DatatypeString   Datatype = "string"
	DatatypeFloat    Datatype = "float"
)

// Fact is one subject-predicate-object triple of the fact graph.
type Fact struct {
	Subject   string   `json:"subject" yaml:"subject"`
	Predicate string   `json:"predicate" yaml:"predicate"`
	Object    string   `json:"object" yaml:"object"`
	Datatype  Datatype `json:"datatype,omitempty" yaml:"datatype,omitempty"`

	// Operation names the extraction operation that produced the fact.
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
}

// IsLiteral reports whether the object is a typed literal.
func (f Fact) IsLiteral() bool {
	return f.Datatype != DatatypeResource
}

// Float parses a float literal object.
func (f Fact) Float() (float64, error) {
	return strconv.ParseFloat(f.Object, 64)
}

// ResourceFact builds a fact whose object references another resource.
func ResourceFact(subject, predicate, object string) Fact {
	return Fact{Subject: subject, Predicate: predicate, Object: object}
}

// StringFact builds a fact with a string literal object.
func StringFact(subject, predicate, value string) Fact {
	return Fact{Subject: subject, Predicate: predicate, Object: value, Datatype: DatatypeString}
}

// FloatFact builds a fact with a float literal object. The value is
// formatted with the shortest representation that round-trips.
func FloatFact(subject, predicate string, value float64) Fact {
	return Fact{
		Subject:   subject,
		Predicate: predicate,
		Object:    strconv.FormatFloat(value, 'g', -1, 64),
		Datatype:  DatatypeFloat,
	}
}
