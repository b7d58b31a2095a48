// Package gedcom exports normalized GedcomX records as a GEDCOM 5.5 file.
package gedcom

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cacack/gedcom-go/encoder"
	"github.com/cacack/gedcom-go/gedcom"

	"github.com/satriahrh/interviewer/internal/gedcomx"
)

// eventTags maps GedcomX fact types to GEDCOM individual events
var eventTags = map[string]string{
	"Birth":       "BIRT",
	"Death":       "DEAT",
	"Baptism":     "BAPM",
	"Christening": "CHR",
	"Burial":      "BURI",
	"Residence":   "RESI",
	"Immigration": "IMMI",
	"Emigration":  "EMIG",
	"Census":      "CENS",
}

const marriage = "Marriage"

type exporter struct {
	doc      *gedcom.Document
	nextID   map[string]int
	persons  map[personKey]*gedcom.Record
	sexes    map[string]string
	families map[string]*gedcom.Record
	byXRef   map[string]*gedcom.Record
}

type personKey struct {
	record int
	id     string
}

// Export builds a GEDCOM document. Every record gets its own individuals,
// so ids never collide across records.
func Export(records []gedcomx.Record) *gedcom.Document {
	e := &exporter{
		doc: &gedcom.Document{
			Header: &gedcom.Header{
				Version:  "5.5",
				Encoding: "UTF-8",
			},
		},
		nextID:   make(map[string]int),
		persons:  make(map[personKey]*gedcom.Record),
		sexes:    make(map[string]string),
		families: make(map[string]*gedcom.Record),
		byXRef:   make(map[string]*gedcom.Record),
	}
	e.doc.XRefMap = e.byXRef

	for i, record := range records {
		e.exportRecord(i, record)
	}
	return e.doc
}

// Encode writes records to w as GEDCOM
func Encode(w io.Writer, records []gedcomx.Record) error {
	if err := encoder.Encode(w, Export(records)); err != nil {
		return fmt.Errorf("failed to encode gedcom: %w", err)
	}
	return nil
}

func (e *exporter) xref(prefix string) string {
	e.nextID[prefix]++
	return fmt.Sprintf("@%s%d@", prefix, e.nextID[prefix])
}

func (e *exporter) add(xref string, recordType gedcom.RecordType, tags ...*gedcom.Tag) *gedcom.Record {
	record := &gedcom.Record{XRef: xref, Type: recordType, Tags: tags}
	e.doc.Records = append(e.doc.Records, record)
	e.byXRef[xref] = record
	return record
}

func (e *exporter) exportRecord(index int, record gedcomx.Record) {
	var sources []string
	for _, sd := range record.SourceDescriptions {
		sources = append(sources, e.exportSource(index, sd))
	}

	for _, person := range record.Persons {
		indi := e.exportPerson(person)
		for _, source := range sources {
			indi.Tags = append(indi.Tags, tag(1, "SOUR", source))
		}
		e.persons[personKey{index, person.ID}] = indi
	}

	children := make(map[string][]string)
	var order []string
	for _, rel := range record.Relationships {
		p1, ok1 := e.persons[personKey{index, rel.Person1.ResourceID}]
		p2, ok2 := e.persons[personKey{index, rel.Person2.ResourceID}]
		if !ok1 || !ok2 {
			continue
		}
		switch rel.Type {
		case gedcomx.RelationshipCouple:
			fam := e.family(p1.XRef, p2.XRef)
			if fact, ok := findFact(record.Persons, rel.Person1.ResourceID, marriage); ok {
				fam.Tags = append(fam.Tags, eventWithDetails("MARR", fact)...)
			}
		case gedcomx.RelationshipParentChild:
			if _, seen := children[p2.XRef]; !seen {
				order = append(order, p2.XRef)
			}
			children[p2.XRef] = append(children[p2.XRef], p1.XRef)
		}
	}

	for _, child := range order {
		parents := children[child]
		for len(parents) > 0 {
			n := min(2, len(parents))
			fam := e.family(parents[:n]...)
			fam.Tags = append(fam.Tags, tag(1, "CHIL", child))
			e.link(child, "FAMC", fam.XRef)
			parents = parents[n:]
		}
	}
}

func (e *exporter) exportSource(index int, sd gedcomx.SourceDescription) string {
	xref := e.xref("S")

	tags := []*gedcom.Tag{tag(1, "TITL", fmt.Sprintf("Oral history interview, record %d", index+1))}
	for _, coverage := range sd.Coverage {
		tags = append(tags, tag(1, "NOTE", coverageNote(coverage)))
	}

	e.add(xref, gedcom.RecordTypeSource, tags...)
	return xref
}

// coverageNote renders a coverage as "Type, date, place"
func coverageNote(coverage gedcomx.Coverage) string {
	note := []string{strings.TrimPrefix(coverage.RecordType, gedcomx.Namespace)}
	if coverage.Temporal != nil && coverage.Temporal.Original != "" {
		note = append(note, coverage.Temporal.Original)
	}
	if coverage.Spatial != nil && coverage.Spatial.Original != "" {
		note = append(note, coverage.Spatial.Original)
	}
	return strings.Join(note, ", ")
}

func (e *exporter) exportPerson(person gedcomx.Person) *gedcom.Record {
	xref := e.xref("I")
	var tags []*gedcom.Tag

	given := person.NamePart(gedcomx.NamePartGiven)
	surname := person.NamePart(gedcomx.NamePartSurname)
	if given != "" || surname != "" {
		tags = append(tags, tag(1, "NAME", strings.TrimSpace(given+" /"+surname+"/")))
		if given != "" {
			tags = append(tags, tag(2, "GIVN", given))
		}
		if surname != "" {
			tags = append(tags, tag(2, "SURN", surname))
		}
	}

	sex := sexOf(person.Gender.Type)
	tags = append(tags, tag(1, "SEX", sex))
	e.sexes[xref] = sex

	for _, fact := range person.Facts {
		name := strings.TrimPrefix(fact.Type, gedcomx.Namespace)
		if t, ok := eventTags[name]; ok {
			tags = append(tags, eventWithDetails(t, fact)...)
			continue
		}
		tags = append(tags, tag(1, "EVEN", ""), tag(2, "TYPE", name))
		tags = append(tags, factDetails(fact)...)
	}

	return e.add(xref, gedcom.RecordTypeIndividual, tags...)
}

// family finds or creates the family of the given spouses
func (e *exporter) family(spouses ...string) *gedcom.Record {
	key := append([]string(nil), spouses...)
	sort.Strings(key)
	id := strings.Join(key, "+")
	if fam, ok := e.families[id]; ok {
		return fam
	}

	husband, wife := "", ""
	for _, spouse := range spouses {
		switch {
		case e.sexes[spouse] == "F" && wife == "":
			wife = spouse
		case husband == "":
			husband = spouse
		default:
			wife = spouse
		}
	}

	fam := e.add(e.xref("F"), gedcom.RecordTypeFamily)
	if husband != "" {
		fam.Tags = append(fam.Tags, tag(1, "HUSB", husband))
		e.link(husband, "FAMS", fam.XRef)
	}
	if wife != "" {
		fam.Tags = append(fam.Tags, tag(1, "WIFE", wife))
		e.link(wife, "FAMS", fam.XRef)
	}
	e.families[id] = fam
	return fam
}

func (e *exporter) link(person, kind, family string) {
	if record, ok := e.byXRef[person]; ok {
		record.Tags = append(record.Tags, tag(1, kind, family))
	}
}

func eventWithDetails(name string, fact gedcomx.Fact) []*gedcom.Tag {
	value := ""
	if fact.Date == nil && fact.Place == nil {
		value = "Y"
	}
	return append([]*gedcom.Tag{tag(1, name, value)}, factDetails(fact)...)
}

func factDetails(fact gedcomx.Fact) []*gedcom.Tag {
	var tags []*gedcom.Tag
	if fact.Date != nil && fact.Date.Original != "" {
		tags = append(tags, tag(2, "DATE", fact.Date.Original))
	}
	if fact.Place != nil && fact.Place.Original != "" {
		tags = append(tags, tag(2, "PLAC", fact.Place.Original))
	}
	return tags
}

func findFact(persons []gedcomx.Person, id, factType string) (gedcomx.Fact, bool) {
	for _, p := range persons {
		if p.ID != id {
			continue
		}
		for _, f := range p.Facts {
			if f.Type == gedcomx.Namespace+factType {
				return f, true
			}
		}
	}
	return gedcomx.Fact{}, false
}

func sexOf(genderType string) string {
	switch genderType {
	case gedcomx.GenderMale:
		return "M"
	case gedcomx.GenderFemale:
		return "F"
	default:
		return "U"
	}
}

func tag(level int, name, value string) *gedcom.Tag {
	return &gedcom.Tag{Level: level, Tag: name, Value: value}
}
