package curriculum

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// LoadTable reads a decomposition table from path. Files ending in .json
// hold a {"component": ["prerequisite", ...]} object; anything else is read
// as KRADFILE text.
func LoadTable(path string) (decomp.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return decomp.Table{}, fmt.Errorf("failed to read decomposition table: %w", err)
	}

	var mapping map[string][]string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		mapping, err = ParseTableJSON(bytes.NewReader(data))
	} else {
		mapping, err = ParseKRADFILE(bytes.NewReader(data))
	}
	if err != nil {
		return decomp.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return decomp.NewTable(mapping), nil
}

// ParseTableJSON reads a JSON decomposition table.
func ParseTableJSON(r io.Reader) (map[string][]string, error) {
	var mapping map[string][]string
	if err := json.NewDecoder(r).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	return mapping, nil
}

// ParseKRADFILE reads KRADFILE text: one "kanji : radical radical ..." entry
// per line, "#" comments. The original EUC-JP encoding is detected and
// converted; UTF-8 input is read as is.
func ParseKRADFILE(r io.Reader) (map[string][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read KRADFILE: %w", err)
	}
	if !utf8.Valid(data) {
		data, _, err = transform.Bytes(japanese.EUCJP.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("%w: not UTF-8 or EUC-JP: %v", ErrMalformedTable, err)
		}
	}

	mapping := make(map[string][]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		kanji, radicals, ok := strings.Cut(text, ":")
		kanji = strings.TrimSpace(kanji)
		if !ok || kanji == "" {
			return nil, fmt.Errorf("%w: line %d: expected \"kanji : radicals\"", ErrMalformedTable, line)
		}
		mapping[kanji] = strings.Fields(radicals)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read KRADFILE: %w", err)
	}
	return mapping, nil
}

// WriteTableJSON writes mapping as indented JSON with sorted keys and
// unescaped characters.
func WriteTableJSON(w io.Writer, mapping map[string][]string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(mapping); err != nil {
		return fmt.Errorf("failed to encode decomposition table: %w", err)
	}
	return nil
}

// ConvertKRADFILE converts the KRADFILE at src into a JSON table at dst and
// returns the number of entries written.
func ConvertKRADFILE(src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open KRADFILE: %w", err)
	}
	defer func() { _ = in.Close() }()

	mapping, err := ParseKRADFILE(in)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}

	var buf bytes.Buffer
	if err := WriteTableJSON(&buf, mapping); err != nil {
		return 0, err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return len(mapping), nil
}
