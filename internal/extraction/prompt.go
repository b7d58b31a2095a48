package extraction

import (
	"strings"

	"github.com/satriahrh/interviewer/domain/repositories"
)

const recordExample = `{
  persons: [
    {
      id: "an id, like p1, p2, ...",
      given: "given name",
      surname: "surname",
      gender: "M, F, U",
      facts: [
        {
          type: "fact type for a life event, like birth, death, baptism, marriage, ...",
          date: "date of fact if present, can be inferred from age or other facts",
          place: "where fact happened if present"
        },
        ...
      ]
    },
    ...
  ],
  relationships: [
    {
      type: "Should be: couple, parent, grandparent, godparent, other",
      person1: "id of person1, using the id from a person object. person1 is the older person, like the parent, grandparent or godparent",
      person2: "id of person2, using the id from a person object. person2 is the younger person, like child, grandchild or godchild"
    },
    ...
  ],
  recordFact: {
    type: "the type of fact that caused the document to be created, like birth, death, burial, marriage, baptism, ...",
    date: "date of the fact that caused the document to be created, if present",
    place: "place of the fact that caused the document to be created, if present"
  }
}`

// IndexingPrompt asks the model to turn a conversation into raw records
const IndexingPrompt = "The following is a conversation containing an oral family history. Extract the vital data into JSON. Format the JSON like\n" +
	recordExample +
	"\n\nDo not add explanations. Format dates like '3 July 1840'"

// ConversationText renders the dialogue as "role: content" lines. System
// messages are left out.
func ConversationText(messages []repositories.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == repositories.SystemRole {
			continue
		}
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// Request builds the single message sent to the model for extraction
func Request(messages []repositories.ChatMessage) []repositories.ChatMessage {
	return []repositories.ChatMessage{{
		Role:    repositories.UserRole,
		Content: IndexingPrompt + "\n\n" + ConversationText(messages),
	}}
}
