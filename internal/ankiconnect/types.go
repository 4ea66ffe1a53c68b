package ankiconnect

// FieldValue is one field of a note as reported by notesInfo and cardsInfo.
type FieldValue struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// NoteInfo is one entry of a notesInfo result. Missing notes come back as
// empty objects with a zero NoteID.
type NoteInfo struct {
	NoteID    int64                 `json:"noteId"`
	ModelName string                `json:"modelName"`
	Tags      []string              `json:"tags"`
	Fields    map[string]FieldValue `json:"fields"`
	Cards     []int64               `json:"cards"`
}

// Field returns the value of the named field and whether the note has it.
func (n NoteInfo) Field(name string) (string, bool) {
	f, ok := n.Fields[name]
	return f.Value, ok
}

// Queue value of a suspended card in cardsInfo.
const QueueSuspended = -1

// CardInfo is one entry of a cardsInfo result.
type CardInfo struct {
	CardID    int64                 `json:"cardId"`
	NoteID    int64                 `json:"note"`
	ModelName string                `json:"modelName"`
	DeckName  string                `json:"deckName"`
	Fields    map[string]FieldValue `json:"fields"`
	Interval  int                   `json:"interval"`
	Queue     int                   `json:"queue"`
}

// Suspended reports whether the card is out of the study rotation.
func (c CardInfo) Suspended() bool {
	return c.Queue == QueueSuspended
}

// Note is the payload of addNote.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags,omitempty"`
	Options   *NoteOptions      `json:"options,omitempty"`
}

// NoteOptions controls duplicate handling in addNote.
type NoteOptions struct {
	AllowDuplicate bool   `json:"allowDuplicate"`
	DuplicateScope string `json:"duplicateScope,omitempty"`
}
