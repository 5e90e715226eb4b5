package visits

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/five82/passport/internal/imagecomp"
)

// ErrInvalidCode is returned by ParseCode for anything but two ASCII letters.
var ErrInvalidCode = errors.New("invalid country code")

// Code is a two-letter country code in uppercase canonical form.
type Code string

// ParseCode trims and uppercases s, rejecting anything but two ASCII letters.
func ParseCode(s string) (Code, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if len(trimmed) != 2 || !isUpperASCII(trimmed[0]) || !isUpperASCII(trimmed[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return Code(trimmed), nil
}

// Lower returns the lowercase form used for asset filenames.
func (c Code) Lower() string { return strings.ToLower(string(c)) }

func (c Code) String() string { return string(c) }

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

// Record is the per-country visit state. The zero value means untouched.
type Record struct {
	Visited bool                     `json:"visited"`
	Date    string                   `json:"date,omitempty"`
	Photos  []imagecomp.EncodedImage `json:"photos,omitempty"`
}

// Snapshot is an immutable view of every touched country. Operations return
// a new Snapshot and leave the receiver untouched; an operation that changes
// nothing returns the receiver itself (same Version).
type Snapshot struct {
	version uint64
	records map[Code]Record
}

// NewSnapshot builds a snapshot from records, normalising keys and dropping
// photo entries that are not image data URLs.
func NewSnapshot(records map[Code]Record) Snapshot {
	out := make(map[Code]Record, len(records))
	for key, rec := range records {
		code, err := ParseCode(string(key))
		if err != nil {
			continue
		}
		rec.Photos = compactPhotos(rec.Photos)
		out[code] = rec
	}
	return Snapshot{records: out}
}

// Version increases by one with every effective change.
func (s Snapshot) Version() uint64 { return s.version }

// Len returns the number of touched countries.
func (s Snapshot) Len() int { return len(s.records) }

// Record returns the record for code, or the zero Record when untouched.
// The photo slice is a copy.
func (s Snapshot) Record(code Code) Record {
	rec := s.records[canonical(code)]
	rec.Photos = slices.Clone(rec.Photos)
	return rec
}

// Codes lists touched countries in ascending order.
func (s Snapshot) Codes() []Code {
	codes := make([]Code, 0, len(s.records))
	for code := range s.records {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// VisitedCount returns how many countries are marked visited.
func (s Snapshot) VisitedCount() int {
	n := 0
	for _, rec := range s.records {
		if rec.Visited {
			n++
		}
	}
	return n
}

// PhotoCount returns the total number of stored photos.
func (s Snapshot) PhotoCount() int {
	n := 0
	for _, rec := range s.records {
		n += len(rec.Photos)
	}
	return n
}

// ToggleVisited flips the visited flag, creating a visited record when none
// exists.
func (s Snapshot) ToggleVisited(code Code) Snapshot {
	code = canonical(code)
	if code == "" {
		return s
	}
	rec := s.records[code]
	rec.Visited = !rec.Visited
	return s.with(code, rec)
}

// SetDate stores date verbatim; validation belongs to the caller.
func (s Snapshot) SetDate(code Code, date string) Snapshot {
	code = canonical(code)
	if code == "" {
		return s
	}
	rec, ok := s.records[code]
	if ok && rec.Date == date {
		return s
	}
	rec.Date = date
	return s.with(code, rec)
}

// AddPhotos appends images after the existing photos in the given order.
// Entries that are not image data URLs are skipped; with nothing to add the receiver is returned.
func (s Snapshot) AddPhotos(code Code, images []imagecomp.EncodedImage) Snapshot {
	code = canonical(code)
	images = compactPhotos(images)
	if code == "" || len(images) == 0 {
		return s
	}
	rec := s.records[code]
	photos := make([]imagecomp.EncodedImage, 0, len(rec.Photos)+len(images))
	photos = append(photos, rec.Photos...)
	rec.Photos = append(photos, images...)
	return s.with(code, rec)
}

// RemovePhoto drops the photo at index. Out-of-range indexes are ignored.
func (s Snapshot) RemovePhoto(code Code, index int) Snapshot {
	code = canonical(code)
	rec, ok := s.records[code]
	if !ok || index < 0 || index >= len(rec.Photos) {
		return s
	}
	photos := make([]imagecomp.EncodedImage, 0, len(rec.Photos)-1)
	photos = append(photos, rec.Photos[:index]...)
	photos = append(photos, rec.Photos[index+1:]...)
	if len(photos) == 0 {
		photos = nil
	}
	rec.Photos = photos
	return s.with(code, rec)
}

// with copies the record map and stores rec. Photo slices are shared between
// snapshots since no operation writes into an existing slice.
func (s Snapshot) with(code Code, rec Record) Snapshot {
	records := make(map[Code]Record, len(s.records)+1)
	for k, v := range s.records {
		records[k] = v
	}
	records[code] = rec
	return Snapshot{version: s.version + 1, records: records}
}

// MarshalJSON encodes the snapshot as {"US": {...}}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.records == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.records)
}

// UnmarshalJSON decodes a stored snapshot. Invalid keys and malformed photos
// are dropped rather than failing the whole document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	records := make(map[Code]Record, len(raw))
	for key, rec := range raw {
		records[Code(key)] = rec
	}
	*s = NewSnapshot(records)
	return nil
}

func canonical(code Code) Code {
	parsed, err := ParseCode(string(code))
	if err != nil {
		return ""
	}
	return parsed
}

func compactPhotos(photos []imagecomp.EncodedImage) []imagecomp.EncodedImage {
	if len(photos) == 0 {
		return nil
	}
	out := make([]imagecomp.EncodedImage, 0, len(photos))
	for _, p := range photos {
		if p.Valid() {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
