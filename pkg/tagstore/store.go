// Package tagstore reads and writes song metadata embedded in media files.
// Reads go through dhowden/tag, which understands most common containers;
// writes are supported for MP3 (ID3v2) and FLAC (Vorbis comments).
package tagstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Tags is the subset of a file's metadata the daemon cares about.
type Tags struct {
	Artist string
	Title  string
	Lyrics string
}

// Store provides tag access for media files on disk.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Read returns the artist, title and lyrics tags of the file. A file without
// readable tags yields zero-value Tags and an error.
func (s *Store) Read(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to read tags: %w", err)
	}

	t := Tags{
		Artist: strings.TrimSpace(meta.Artist()),
		Title:  strings.TrimSpace(meta.Title()),
		Lyrics: meta.Lyrics(),
	}
	if t.Lyrics == "" {
		t.Lyrics = rawLyrics(meta)
	}
	return t, nil
}

// rawLyrics checks the raw tag map for lyric fields dhowden/tag does not map
// to its Lyrics accessor (USLT variants, Vorbis LYRICS and similar).
func rawLyrics(meta tag.Metadata) string {
	raw := meta.Raw()
	if raw == nil {
		return ""
	}
	for _, field := range []string{"LYRICS", "UNSYNCEDLYRICS", "USLT", "Lyrics", "UnsyncedLyrics"} {
		switch v := raw[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case []byte:
			if len(v) > 0 {
				return string(v)
			}
		}
	}
	return ""
}

// Write stores the given tags into the file. Empty fields are left untouched
// so existing metadata is never erased.
func (s *Store) Write(path string, t Tags) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return writeMP3(path, t)
	case ".flac":
		return writeFLAC(path, t)
	default:
		return fmt.Errorf("unsupported format for tag writes: %s", ext)
	}
}

func writeMP3(path string, t Tags) error {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer id3.Close()

	if t.Artist != "" {
		id3.SetArtist(t.Artist)
	}
	if t.Title != "" {
		id3.SetTitle(t.Title)
	}
	if t.Lyrics != "" {
		id3.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Lyrics:   t.Lyrics,
		})
	}

	if err := id3.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}
	return nil
}

func writeFLAC(path string, t Tags) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var comment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			comment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}
	if comment == nil {
		comment = flacvorbis.New()
	}

	fillComment(comment, t)

	block := comment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC tags: %w", err)
	}
	return nil
}

// fillComment fills only fields the comment does not carry yet. Add appends,
// so filling an existing field would leave duplicate entries behind.
func fillComment(comment *flacvorbis.MetaDataBlockVorbisComment, t Tags) {
	addIfMissing := func(field, value string) {
		if value == "" {
			return
		}
		if existing, _ := comment.Get(field); len(existing) > 0 {
			return
		}
		comment.Add(field, value)
	}
	addIfMissing(flacvorbis.FIELD_ARTIST, t.Artist)
	addIfMissing(flacvorbis.FIELD_TITLE, t.Title)
	addIfMissing("LYRICS", t.Lyrics)
}
