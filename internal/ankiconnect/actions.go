package ankiconnect

import (
	"context"
	"strings"
)

// Version returns the AnkiConnect API version of the endpoint.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.Invoke(ctx, "version", nil, &v)
	return v, err
}

// FindNotes returns the ids of notes matching q.
func (c *Client) FindNotes(ctx context.Context, q Query) ([]int64, error) {
	var ids []int64
	err := c.Invoke(ctx, "findNotes", map[string]any{"query": q.String()}, &ids)
	return ids, err
}

// FindCards returns the ids of cards matching q.
func (c *Client) FindCards(ctx context.Context, q Query) ([]int64, error) {
	var ids []int64
	err := c.Invoke(ctx, "findCards", map[string]any{"query": q.String()}, &ids)
	return ids, err
}

// NotesInfo returns note data for ids, positionally.
func (c *Client) NotesInfo(ctx context.Context, ids []int64) ([]NoteInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var notes []NoteInfo
	if err := c.Invoke(ctx, "notesInfo", map[string]any{"notes": ids}, &notes); err != nil {
		return nil, err
	}
	if len(notes) != len(ids) {
		return nil, &Error{Kind: KindMalformed, Action: "notesInfo", Message: "result length does not match request"}
	}
	return notes, nil
}

// CardsInfo returns card data for ids, positionally.
func (c *Client) CardsInfo(ctx context.Context, ids []int64) ([]CardInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cards []CardInfo
	if err := c.Invoke(ctx, "cardsInfo", map[string]any{"cards": ids}, &cards); err != nil {
		return nil, err
	}
	if len(cards) != len(ids) {
		return nil, &Error{Kind: KindMalformed, Action: "cardsInfo", Message: "result length does not match request"}
	}
	return cards, nil
}

// CardsToNotes returns the distinct note ids owning the given cards.
func (c *Client) CardsToNotes(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var notes []int64
	err := c.Invoke(ctx, "cardsToNotes", map[string]any{"cards": ids}, &notes)
	return notes, err
}

// AddNote creates a note and returns its id.
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	var id *int64
	if err := c.Invoke(ctx, "addNote", map[string]any{"note": note}, &id); err != nil {
		return 0, err
	}
	if id == nil {
		return 0, &Error{Kind: KindMalformed, Action: "addNote", Message: "no note id returned"}
	}
	return *id, nil
}

// UpdateNoteFields replaces the given fields of a note.
func (c *Client) UpdateNoteFields(ctx context.Context, noteID int64, fields map[string]string) error {
	params := map[string]any{"note": map[string]any{"id": noteID, "fields": fields}}
	return c.Invoke(ctx, "updateNoteFields", params, nil)
}

// AddTags adds tags to notes.
func (c *Client) AddTags(ctx context.Context, noteIDs []int64, tags ...string) error {
	if len(noteIDs) == 0 || len(tags) == 0 {
		return nil
	}
	params := map[string]any{"notes": noteIDs, "tags": strings.Join(tags, " ")}
	return c.Invoke(ctx, "addTags", params, nil)
}

// ReplaceTags replaces one tag with another on notes.
func (c *Client) ReplaceTags(ctx context.Context, noteIDs []int64, tagToReplace, replaceWith string) error {
	if len(noteIDs) == 0 {
		return nil
	}
	params := map[string]any{
		"notes":            noteIDs,
		"tag_to_replace":   tagToReplace,
		"replace_with_tag": replaceWith,
	}
	return c.Invoke(ctx, "replaceTags", params, nil)
}

// Suspend suspends cards. It reports whether any card changed.
func (c *Client) Suspend(ctx context.Context, cardIDs []int64) (bool, error) {
	if len(cardIDs) == 0 {
		return false, nil
	}
	var changed bool
	err := c.Invoke(ctx, "suspend", map[string]any{"cards": cardIDs}, &changed)
	return changed, err
}

// Unsuspend unsuspends cards. It reports whether any card changed.
func (c *Client) Unsuspend(ctx context.Context, cardIDs []int64) (bool, error) {
	if len(cardIDs) == 0 {
		return false, nil
	}
	var changed bool
	err := c.Invoke(ctx, "unsuspend", map[string]any{"cards": cardIDs}, &changed)
	return changed, err
}

// GetIntervals returns the current interval of each card, positionally.
// Positive values are days; negative values are learning steps in seconds.
func (c *Client) GetIntervals(ctx context.Context, cardIDs []int64) ([]int, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	var intervals []int
	if err := c.Invoke(ctx, "getIntervals", map[string]any{"cards": cardIDs, "complete": false}, &intervals); err != nil {
		return nil, err
	}
	if len(intervals) != len(cardIDs) {
		return nil, &Error{Kind: KindMalformed, Action: "getIntervals", Message: "result length does not match request"}
	}
	return intervals, nil
}
