package curriculum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// JLPTLevels lists the JLPT levels from easiest to hardest.
var JLPTLevels = []string{"n5", "n4", "n3", "n2", "n1"}

// VocabWord is one row of a JLPT vocabulary list.
type VocabWord struct {
	Kanji      string
	Kana       string
	Definition string
}

// LoadVocabList reads "<level>.csv" from dir.
func LoadVocabList(dir, level string) ([]VocabWord, error) {
	path := filepath.Join(dir, strings.ToLower(level)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary list: %w", err)
	}
	defer func() { _ = f.Close() }()

	words, err := ParseVocabList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// ParseVocabList reads a CSV vocabulary list with kanji, kana and
// waller_definition columns, in any order.
func ParseVocabList(r io.Reader) ([]VocabWord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrMalformedVocabList, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"kanji", "kana", "waller_definition"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedVocabList, required)
		}
	}

	field := func(record []string, name string) string {
		if i := columns[name]; i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var words []VocabWord
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedVocabList, err)
		}
		words = append(words, VocabWord{
			Kanji:      field(record, "kanji"),
			Kana:       field(record, "kana"),
			Definition: field(record, "waller_definition"),
		})
	}
	return words, nil
}

// KnownVocabulary is the set of expressions and readings of known
// vocabulary cards.
type KnownVocabulary struct {
	forms map[string]struct{}
}

// NewKnownVocabulary indexes the identity and reading of every known
// vocabulary card, both as written and with non-Japanese characters removed.
func NewKnownVocabulary(cards []*domain.Card) *KnownVocabulary {
	k := &KnownVocabulary{forms: make(map[string]struct{})}
	for _, c := range cards {
		if c == nil || c.Tier != domain.TierVocabulary || c.State != domain.StateKnown {
			continue
		}
		k.add(c.Identity)
		k.add(c.Reading)
	}
	return k
}

func (k *KnownVocabulary) add(form string) {
	for _, f := range []string{strings.TrimSpace(form), normalizeJapanese(form)} {
		if f != "" {
			k.forms[f] = struct{}{}
		}
	}
}

// Len returns the number of indexed forms.
func (k *KnownVocabulary) Len() int {
	return len(k.forms)
}

// Has reports whether the word is known by its written or its kana form.
func (k *KnownVocabulary) Has(w VocabWord) bool {
	for _, form := range []string{w.Kanji, normalizeJapanese(w.Kanji), w.Kana, normalizeJapanese(w.Kana)} {
		if form == "" {
			continue
		}
		if _, ok := k.forms[form]; ok {
			return true
		}
	}
	return false
}

// Coverage is the share of a JLPT level's vocabulary that is known.
type Coverage struct {
	Level   string
	Known   int
	Total   int
	Missing []VocabWord
}

// Percent returns the known share in percent, zero for an empty list.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Known) / float64(c.Total) * 100
}

// CheckCoverage compares a level's vocabulary list with the known set.
func CheckCoverage(level string, words []VocabWord, known *KnownVocabulary) Coverage {
	c := Coverage{Level: strings.ToLower(level), Total: len(words)}
	for _, w := range words {
		if known.Has(w) {
			c.Known++
			continue
		}
		c.Missing = append(c.Missing, w)
	}
	return c
}

// Overall sums the coverage of several levels.
func Overall(levels []Coverage) Coverage {
	total := Coverage{Level: "overall"}
	for _, c := range levels {
		total.Known += c.Known
		total.Total += c.Total
	}
	return total
}

// MissingFileName returns the report file name for a level.
func MissingFileName(level string) string {
	return fmt.Sprintf("missing_jlpt_%s_vocab.txt", strings.ToLower(level))
}

// WriteMissing writes the missing words of c, one per line as
// "kanji [kana] - definition".
func WriteMissing(w io.Writer, c Coverage) error {
	if _, err := fmt.Fprintf(w, "Missing JLPT %s Vocabulary (%d words):\n\n", strings.ToUpper(c.Level), len(c.Missing)); err != nil {
		return err
	}
	for _, word := range c.Missing {
		prefix := ""
		if word.Kanji != "" {
			prefix = word.Kanji + " "
		}
		if _, err := fmt.Fprintf(w, "%s[%s] - %s\n", prefix, word.Kana, word.Definition); err != nil {
			return err
		}
	}
	return nil
}

// normalizeJapanese drops everything except kana and Han characters.
func normalizeJapanese(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return r
		}
		return -1
	}, s)
}
