package gedcomx

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 7
)

// genderTypes maps the single-character gender codes of the extraction
// prompt. Matching is exact: "m" or "male" fall back to GenderUnknown.
var genderTypes = map[string]string{
	"M": GenderMale,
	"F": GenderFemale,
	"U": GenderUnknown,
}

// relationshipTypes is keyed by the trimmed, lowercased raw type.
var relationshipTypes = map[string]string{
	"couple":       RelationshipCouple,
	"married":      RelationshipCouple,
	"spouse":       RelationshipCouple,
	"parent":       RelationshipParentChild,
	"father":       RelationshipParentChild,
	"mother":       RelationshipParentChild,
	"parent-child": RelationshipParentChild,
	"parentchild":  RelationshipParentChild,
	"grandparent":  RelationshipGrandparent,
	"godparent":    RelationshipGodparent,
	"other":        RelationshipOther,
}

var titleWord = regexp.MustCompile(`\w\S*`)

// IDGenerator produces ids for persons that were extracted without one.
type IDGenerator func() string

// RandomID returns a random lowercase base-36 string of seven characters.
// Uniqueness is not checked; collisions within one record are unlikely enough
// to be accepted.
func RandomID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}

// UUIDGenerator returns a random UUID. It trades the short ids of RandomID for
// a practical uniqueness guarantee.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Normalizer converts raw extraction records into GedcomX records. It holds no
// mutable state and is safe for concurrent use.
type Normalizer struct {
	newID IDGenerator
}

type Option func(*Normalizer)

// WithIDGenerator replaces RandomID as the source of generated person ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(n *Normalizer) {
		if gen != nil {
			n.newID = gen
		}
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{newID: RandomID}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize converts records with the default normalizer.
func Normalize(records []RawRecord) []Record {
	return defaultNormalizer.Normalize(records)
}

// Normalize maps every raw record independently. A nil input yields nil so
// callers can tell "nothing extracted" from "extracted nothing".
func (n *Normalizer) Normalize(records []RawRecord) []Record {
	if records == nil {
		return nil
	}

	normalized := make([]Record, 0, len(records))
	for _, raw := range records {
		normalized = append(normalized, n.NormalizeRecord(raw))
	}
	return normalized
}

// NormalizeRecord maps one raw record. It never fails: missing fields take
// their defaults and relationships with unknown endpoints are dropped.
func (n *Normalizer) NormalizeRecord(raw RawRecord) Record {
	persons := n.mapPersons(raw.Persons)
	relationships := mapRelationships(raw.Relationships, persons)

	return Record{
		Persons:            orEmpty(persons),
		Relationships:      orEmpty(relationships),
		SourceDescriptions: orEmpty(mapSourceDescriptions(raw.RecordFact)),
	}
}

func (n *Normalizer) mapPersons(raw []RawPerson) []Person {
	if raw == nil {
		return nil
	}

	persons := make([]Person, 0, len(raw))
	for _, p := range raw {
		id := string(p.ID)
		if id == "" {
			id = n.newID()
		}
		persons = append(persons, Person{
			ID:     id,
			Gender: Gender{Type: genderType(string(p.Gender))},
			Facts:  mapFacts(p.Facts),
			Names:  mapNames(string(p.Given), string(p.Surname)),
		})
	}
	return persons
}

func genderType(code string) string {
	if uri, ok := genderTypes[code]; ok {
		return uri
	}
	return GenderUnknown
}

func mapFacts(raw []RawFact) []Fact {
	if raw == nil {
		return nil
	}

	facts := make([]Fact, 0, len(raw))
	for _, f := range raw {
		facts = append(facts, Fact{
			Type:  typeURI(string(f.Type)),
			Date:  original(string(f.Date)),
			Place: original(string(f.Place)),
		})
	}
	return facts
}

// mapNames returns nil when neither part is present so the person carries no
// name block at all.
func mapNames(given, surname string) []Name {
	var (
		parts    []NamePart
		fullText []string
	)
	if given != "" {
		parts = append(parts, NamePart{Type: NamePartGiven, Value: given})
		fullText = append(fullText, given)
	}
	if surname != "" {
		parts = append(parts, NamePart{Type: NamePartSurname, Value: surname})
		fullText = append(fullText, surname)
	}
	if len(parts) == 0 {
		return nil
	}

	return []Name{{
		NameForms: []NameForm{{
			FullText: strings.Join(fullText, " "),
			Parts:    parts,
		}},
	}}
}

func mapRelationships(raw []RawRelationship, persons []Person) []Relationship {
	if raw == nil {
		return nil
	}

	ids := make(map[string]struct{}, len(persons))
	for _, p := range persons {
		ids[p.ID] = struct{}{}
	}
	known := func(id string) bool {
		if id == "" {
			return false
		}
		_, ok := ids[id]
		return ok
	}

	relationships := make([]Relationship, 0, len(raw))
	for _, rel := range raw {
		p1, p2 := string(rel.Person1), string(rel.Person2)
		if !known(p1) || !known(p2) {
			continue
		}
		relationships = append(relationships, Relationship{
			Type:    relationshipType(string(rel.Type)),
			Person1: NewResourceReference(p1),
			Person2: NewResourceReference(p2),
		})
	}
	return relationships
}

// relationshipType maps synonyms case-insensitively. Unrecognized labels are
// passed through unchanged.
func relationshipType(raw string) string {
	if raw == "" {
		return UnknownRelationshipType
	}
	if uri, ok := relationshipTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return uri
	}
	return raw
}

func mapSourceDescriptions(fact *RawFact) []SourceDescription {
	coverage := Coverage{RecordType: TypeUnknown}
	if fact != nil {
		coverage.RecordType = typeURI(string(fact.Type))
		coverage.Spatial = original(string(fact.Place))
		coverage.Temporal = original(string(fact.Date))
	}

	return []SourceDescription{{
		ResourceType: ResourceTypeRecord,
		Coverage:     []Coverage{coverage},
	}}
}

func typeURI(raw string) string {
	if raw == "" {
		return TypeUnknown
	}
	return Namespace + TitleCase(raw)
}

func original(text string) *TextValue {
	if text == "" {
		return nil
	}
	return &TextValue{Original: text}
}

// TitleCase upper-cases the first character of every word and lower-cases the
// rest of it. Separators are kept, so "Military Service" stays two words.
func TitleCase(s string) string {
	return titleWord.ReplaceAllStringFunc(s, func(word string) string {
		return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	})
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
