// Package gedcomx turns the loosely structured genealogical JSON produced by
// the extraction model into GedcomX-shaped records that record viewers can
// render without falling back to their own defaults.
package gedcomx

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Namespace prefixes every GedcomX type URI.
const Namespace = "http://gedcomx.org/"

const (
	GenderMale    = Namespace + "Male"
	GenderFemale  = Namespace + "Female"
	GenderUnknown = Namespace + "Unknown"

	RelationshipCouple      = Namespace + "Couple"
	RelationshipParentChild = Namespace + "ParentChild"
	RelationshipGrandparent = Namespace + "Grandparent"
	RelationshipGodparent   = Namespace + "Godparent"
	RelationshipOther       = Namespace + "Other"

	NamePartGiven   = Namespace + "Given"
	NamePartSurname = Namespace + "Surname"

	// TypeUnknown is used for facts and records whose type was not extracted.
	TypeUnknown = Namespace + "Unknown"

	ResourceTypeRecord = Namespace + "Record"
)

// UnknownRelationshipType is emitted verbatim for relationships without a type.
const UnknownRelationshipType = "Unknown"

// Text is a raw scalar field of the extraction output. Models occasionally
// emit numbers or booleans where a string is expected; those keep their JSON
// text form. Null, objects and arrays become empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	value := gjson.ParseBytes(data)
	switch value.Type {
	case gjson.Null:
		*t = ""
	case gjson.String:
		*t = Text(value.Str)
	case gjson.Number, gjson.True, gjson.False:
		*t = Text(value.Raw)
	default:
		*t = ""
	}
	return nil
}

// RawRecord is one untrusted extraction result.
type RawRecord struct {
	Persons       []RawPerson       `json:"persons"`
	Relationships []RawRelationship `json:"relationships"`
	RecordFact    *RawFact          `json:"recordFact"`
}

// RawPerson is a person as the model described it. Every field is optional.
type RawPerson struct {
	ID      Text      `json:"id"`
	Given   Text      `json:"given"`
	Surname Text      `json:"surname"`
	Gender  Text      `json:"gender"`
	Facts   []RawFact `json:"facts"`
}

// RawFact is a life event or, for RawRecord.RecordFact, the event that caused
// the source document to be created.
type RawFact struct {
	Type  Text `json:"type"`
	Date  Text `json:"date"`
	Place Text `json:"place"`
}

// RawRelationship links two persons by id. By prompt convention Person1 is the
// older person, which is never enforced.
type RawRelationship struct {
	Type    Text `json:"type"`
	Person1 Text `json:"person1"`
	Person2 Text `json:"person2"`
}

// Record is a normalized record. The three lists are always present.
type Record struct {
	Persons            []Person            `json:"persons"`
	Relationships      []Relationship      `json:"relationships"`
	SourceDescriptions []SourceDescription `json:"sourceDescriptions"`
}

// Person is a normalized person.
type Person struct {
	ID     string `json:"id"`
	Gender Gender `json:"gender"`
	Facts  []Fact `json:"facts,omitempty"`
	Names  []Name `json:"names,omitempty"`
}

// MarshalJSON omits facts only when they are nil, so an explicit empty list
// survives as "facts": [].
func (p Person) MarshalJSON() ([]byte, error) {
	type person Person
	out := struct {
		person
		Facts *[]Fact `json:"facts,omitempty"`
	}{person: person(p)}
	if p.Facts != nil {
		out.Facts = &p.Facts
	}
	return json.Marshal(out)
}

type Gender struct {
	Type string `json:"type"`
}

type Fact struct {
	Type  string     `json:"type"`
	Date  *TextValue `json:"date,omitempty"`
	Place *TextValue `json:"place,omitempty"`
}

// TextValue carries unparsed text as extracted.
type TextValue struct {
	Original string `json:"original"`
}

type Name struct {
	NameForms []NameForm `json:"nameForms"`
}

type NameForm struct {
	FullText string     `json:"fullText"`
	Parts    []NamePart `json:"parts"`
}

type NamePart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Relationship is a validated edge between two persons of the same record.
type Relationship struct {
	Type    string            `json:"type"`
	Person1 ResourceReference `json:"person1"`
	Person2 ResourceReference `json:"person2"`
}

type ResourceReference struct {
	Resource   string `json:"resource"`
	ResourceID string `json:"resourceId"`
}

// NewResourceReference points at a person id in the same record.
func NewResourceReference(id string) ResourceReference {
	return ResourceReference{Resource: "#" + id, ResourceID: id}
}

type SourceDescription struct {
	ResourceType string     `json:"resourceType"`
	Coverage     []Coverage `json:"coverage"`
}

type Coverage struct {
	RecordType string     `json:"recordType"`
	Spatial    *TextValue `json:"spatial,omitempty"`
	Temporal   *TextValue `json:"temporal,omitempty"`
}

// FullName returns the display text of the person's first name form.
func (p Person) FullName() string {
	if len(p.Names) == 0 || len(p.Names[0].NameForms) == 0 {
		return ""
	}
	return p.Names[0].NameForms[0].FullText
}

// NamePart returns the value of the first name part of the given type.
func (p Person) NamePart(partType string) string {
	for _, name := range p.Names {
		for _, form := range name.NameForms {
			for _, part := range form.Parts {
				if part.Type == partType {
					return part.Value
				}
			}
		}
	}
	return ""
}
