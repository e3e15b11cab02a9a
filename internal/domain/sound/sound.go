// Package sound holds the authoritative sound record.
package sound

import (
	"fmt"
	"strings"
	"time"
)

// Record is the canonical sound entity read from the store.
type Record struct {
	ID           int64
	UserID       int64
	Username     string
	Name         string
	Description  string
	License      string
	Type         string
	Tags         []string
	Duration     float64
	Samplerate   int
	Bitrate      int
	Bitdepth     int
	Channels     int
	Filesize     int64
	NumDownloads int
	AvgRating    float64
	NumRatings   int
	PackID       int64
	PackName     string
	Created      time.Time
}

// HasPack reports whether the sound belongs to a pack.
func (r Record) HasPack() bool { return r.PackID > 0 }

// Path returns the site path of the sound page.
func (r Record) Path() string {
	return fmt.Sprintf("/people/%s/sounds/%d/", r.Username, r.ID)
}

// PreviewPath returns the site path of the high quality mp3 preview.
func (r Record) PreviewPath() string {
	return fmt.Sprintf("/data/previews/%d/%d_%d-hq.mp3", r.ID/1000, r.ID, r.UserID)
}

// PackPath returns the site path of the sound's pack, empty when there is none.
func (r Record) PackPath() string {
	if !r.HasPack() {
		return ""
	}
	return fmt.Sprintf("/people/%s/packs/%d/", r.Username, r.PackID)
}

// TagString joins the tags with single spaces.
func (r Record) TagString() string { return strings.Join(r.Tags, " ") }

// Set indexes records by id.
type Set map[int64]Record

// NewSet builds a Set from a slice.
func NewSet(records []Record) Set {
	s := make(Set, len(records))
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}
