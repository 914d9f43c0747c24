// Package hotels resolves free-text hotel names to 5-digit codes using a
// local name library (toyoko_hotel_names.json). The library is reloaded
// whenever the file's modification time changes.
package hotels

import (
	"encoding/json"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// entry is one row of the name library. Name fields vary by language
// (name_en, name_ja, ...), so the row is decoded loosely.
type entry struct {
	Code  string
	Names []string
}

type index struct {
	exact  map[string]string // normalized name -> code
	search []searchRow
}

type searchRow struct {
	code   string
	joined string
}

// Directory caches the parsed name library keyed by file mtime.
type Directory struct {
	path string
	log  zerolog.Logger

	mu    sync.Mutex
	idx   *index
	mtime time.Time
}

func NewDirectory(path string, log zerolog.Logger) *Directory {
	return &Directory{path: path, log: log}
}

var (
	punctRe  = regexp.MustCompile(`[\s\x{3000}\-_.·・,，。!！:：;；'"“”‘’()（）\[\]{}#@/\\]+`)
	tokenRe  = regexp.MustCompile(`[\n,;]+`)
	nonDigit = regexp.MustCompile(`\D`)
)

// normalizeName lowercases, strips the brand prefix and removes spacing and
// punctuation so matching survives formatting differences.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "toyoko inn", "")
	s = strings.ReplaceAll(s, "東横inn", "")
	s = strings.ReplaceAll(s, "東橫inn", "")
	return punctRe.ReplaceAllString(s, "")
}

func (d *Directory) load() *index {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := os.Stat(d.path)
	if err != nil {
		return &index{exact: map[string]string{}}
	}
	if d.idx != nil && info.ModTime().Equal(d.mtime) {
		return d.idx
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		d.log.Warn().Err(err).Str("path", d.path).Msg("failed to read hotel name library")
		return &index{exact: map[string]string{}}
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		d.log.Warn().Err(err).Str("path", d.path).Msg("hotel name library is not valid JSON")
		return &index{exact: map[string]string{}}
	}

	idx := &index{exact: make(map[string]string, len(rows))}
	for _, row := range rows {
		e := parseEntry(row)
		if e.Code == "" {
			continue
		}
		for _, n := range e.Names {
			if key := normalizeName(n); key != "" {
				if _, ok := idx.exact[key]; !ok {
					idx.exact[key] = e.Code
				}
			}
		}
		idx.search = append(idx.search, searchRow{
			code:   e.Code,
			joined: normalizeName(strings.Join(e.Names, "")),
		})
	}

	d.idx = idx
	d.mtime = info.ModTime()
	d.log.Debug().Int("hotels", len(idx.search)).Msg("hotel name library loaded")
	return idx
}

func parseEntry(row map[string]any) entry {
	var e entry
	switch code := row["code"].(type) {
	case string:
		e.Code = padCode(code)
	case float64:
		e.Code = padCode(strconv.Itoa(int(code)))
	}
	for k, v := range row {
		if strings.HasPrefix(k, "name_") {
			if s, ok := v.(string); ok && s != "" {
				e.Names = append(e.Names, s)
			}
		}
	}
	return e
}

func padCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 5 {
		code = "0" + code
	}
	return code
}

// ParseCodes turns free text mixing 5-digit codes and hotel names into a
// deduplicated code list, preserving input order. Name tokens try an exact
// match first, then a substring search across the full name library.
func (d *Directory) ParseCodes(text string) []string {
	idx := d.load()

	var out []string
	seen := make(map[string]bool)
	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}

	for _, raw := range tokenRe.Split(text, -1) {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		if len(token) == 5 && isDigits(token) {
			add(token)
			continue
		}
		if digits := nonDigit.ReplaceAllString(token, ""); len(digits) == 5 {
			add(digits)
			continue
		}

		key := normalizeName(token)
		if key == "" {
			continue
		}
		if code, ok := idx.exact[key]; ok {
			add(code)
			continue
		}
		for _, row := range idx.search {
			if strings.Contains(row.joined, key) {
				add(row.code)
			}
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
