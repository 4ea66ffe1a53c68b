package curriculum

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/kanjigate/internal/domain"
)

// gradeEasy is the review grade that marks an item as already known.
const gradeEasy = "easy"

type exportReview struct {
	Grade string `json:"grade"`
}

type exportVocabulary struct {
	Spelling string         `json:"spelling"`
	Reviews  []exportReview `json:"reviews"`
}

type exportKanji struct {
	Character string         `json:"character"`
	Reviews   []exportReview `json:"reviews"`
}

type reviewExport struct {
	Vocabulary []exportVocabulary `json:"cards_vocabulary_jp_en"`
	Kanji      []exportKanji      `json:"cards_kanji_keyword_char"`
}

// LoadReviewExport reads a jpdb.io review history export from path.
func LoadReviewExport(path string) ([]domain.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open review export: %w", err)
	}
	defer func() { _ = f.Close() }()

	targets, err := ParseReviewExport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}

// ParseReviewExport turns a jpdb.io review history export into targets.
// Vocabulary cards become vocabulary targets and kanji keyword cards become
// character targets, in export order. An item with any review graded easy
// carries the known hint.
func ParseReviewExport(r io.Reader) ([]domain.Target, error) {
	var export reviewExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	targets := make([]domain.Target, 0, len(export.Vocabulary)+len(export.Kanji))
	for _, v := range export.Vocabulary {
		if text := strings.TrimSpace(v.Spelling); text != "" {
			targets = append(targets, domain.Target{Text: text, Tier: domain.TierVocabulary, Known: anyEasy(v.Reviews)})
		}
	}
	for _, k := range export.Kanji {
		if text := strings.TrimSpace(k.Character); text != "" {
			targets = append(targets, domain.Target{Text: text, Tier: domain.TierCharacter, Known: anyEasy(k.Reviews)})
		}
	}
	return targets, nil
}

func anyEasy(reviews []exportReview) bool {
	for _, r := range reviews {
		if r.Grade == gradeEasy {
			return true
		}
	}
	return false
}
