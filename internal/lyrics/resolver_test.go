package lyrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"lyricsd/internal/player"
	"lyricsd/pkg/source"
	"lyricsd/pkg/tagstore"
)

type mockProvider struct {
	text  string
	err   error
	calls int

	gotArtist string
	gotTitle  string
}

func (m *mockProvider) Fetch(ctx context.Context, artist, title string) (string, error) {
	m.calls++
	m.gotArtist = artist
	m.gotTitle = title
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockProvider) Name() string { return "mock" }

type mockStore struct {
	tags    tagstore.Tags
	readErr error

	wrote chan tagstore.Tags
}

func newMockStore(tags tagstore.Tags) *mockStore {
	return &mockStore{tags: tags, wrote: make(chan tagstore.Tags, 1)}
}

func (m *mockStore) Read(path string) (tagstore.Tags, error) {
	if m.readErr != nil {
		return tagstore.Tags{}, m.readErr
	}
	return m.tags, nil
}

func (m *mockStore) Write(path string, t tagstore.Tags) error {
	m.wrote <- t
	return nil
}

func track() player.Track {
	return player.Track{Artist: "Gillian Welch", Title: "I Dream a Highway", File: "/music/a.mp3"}
}

func TestResolveTagLyricsWin(t *testing.T) {
	prov := &mockProvider{text: "remote lyrics"}
	store := newMockStore(tagstore.Tags{Lyrics: "[Verse]\ntagged line"})
	r := NewResolver(prov, store, nil, Options{ClearHeaders: true})

	doc := r.Resolve(context.Background(), track())

	if doc.Source != SourceTag {
		t.Fatalf("source = %q, want %q", doc.Source, SourceTag)
	}
	if prov.calls != 0 {
		t.Errorf("provider called %d times, want 0", prov.calls)
	}
	// tag lyrics are shown as stored, header clearing does not apply
	if len(doc.Lines) != 2 || doc.Lines[0] != "[Verse]" {
		t.Errorf("lines = %q, want tag text untouched", doc.Lines)
	}
	if doc.HeaderCleared {
		t.Error("HeaderCleared = true for tag lyrics")
	}
}

func TestResolveOffline(t *testing.T) {
	prov := &mockProvider{text: "remote lyrics"}
	r := NewResolver(prov, newMockStore(tagstore.Tags{}), nil, Options{Offline: true})

	doc := r.Resolve(context.Background(), track())

	if !doc.Empty() || doc.Source != SourceNone {
		t.Fatalf("doc = %+v, want empty none document", doc)
	}
	if prov.calls != 0 {
		t.Errorf("provider called %d times in offline mode, want 0", prov.calls)
	}
}

func TestResolveMemoizesPerTrack(t *testing.T) {
	prov := &mockProvider{text: "line one\nline two"}
	r := NewResolver(prov, newMockStore(tagstore.Tags{}), nil, Options{})

	first := r.Resolve(context.Background(), track())
	second := r.Resolve(context.Background(), track())

	if prov.calls != 1 {
		t.Errorf("provider called %d times for the same track, want 1", prov.calls)
	}
	if first != second {
		t.Error("expected the memoized document on the second resolve")
	}

	other := player.Track{Artist: "Them", Title: "Gloria", File: "/music/b.mp3"}
	r.Resolve(context.Background(), other)
	if prov.calls != 2 {
		t.Errorf("provider called %d times after track change, want 2", prov.calls)
	}
}

func TestResolveNotFound(t *testing.T) {
	prov := &mockProvider{err: source.ErrNotFound}
	r := NewResolver(prov, newMockStore(tagstore.Tags{}), nil, Options{})

	doc := r.Resolve(context.Background(), track())
	if !doc.Empty() || doc.Source != SourceNone {
		t.Fatalf("doc = %+v, want empty none document", doc)
	}
}

func TestResolveTransientError(t *testing.T) {
	prov := &mockProvider{err: errors.New("connection refused")}
	r := NewResolver(prov, newMockStore(tagstore.Tags{}), nil, Options{})

	doc := r.Resolve(context.Background(), track())
	if !doc.Empty() {
		t.Fatalf("doc = %+v, want empty document on provider error", doc)
	}

	// the failure is remembered for the current track, no re-fetch per tick
	r.Resolve(context.Background(), track())
	if prov.calls != 1 {
		t.Errorf("provider called %d times, want 1", prov.calls)
	}
}

func TestResolveClearsHeaders(t *testing.T) {
	prov := &mockProvider{text: "[Verse 1]\nfirst line\n[Chorus]\nsecond line"}
	r := NewResolver(prov, newMockStore(tagstore.Tags{}), nil, Options{ClearHeaders: true})

	doc := r.Resolve(context.Background(), track())

	want := []string{"first line", "second line"}
	if len(doc.Lines) != len(want) {
		t.Fatalf("lines = %q, want %q", doc.Lines, want)
	}
	for i := range want {
		if doc.Lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, doc.Lines[i], want[i])
		}
	}
	if !doc.HeaderCleared {
		t.Error("HeaderCleared = false, want true")
	}
}

func TestResolveSavesTags(t *testing.T) {
	prov := &mockProvider{text: "some lyrics"}
	store := newMockStore(tagstore.Tags{})
	r := NewResolver(prov, store, nil, Options{SaveTags: true})

	r.Resolve(context.Background(), track())

	select {
	case got := <-store.wrote:
		if got.Lyrics != "some lyrics" {
			t.Errorf("wrote lyrics %q, want %q", got.Lyrics, "some lyrics")
		}
		if got.Artist != "Gillian Welch" || got.Title != "I Dream a Highway" {
			t.Errorf("wrote artist/title %q/%q", got.Artist, got.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("tag write-back never happened")
	}
}

func TestResolveNoSaveWhenTagsPresent(t *testing.T) {
	prov := &mockProvider{text: "remote"}
	store := newMockStore(tagstore.Tags{Lyrics: "already here"})
	r := NewResolver(prov, store, nil, Options{SaveTags: true})

	r.Resolve(context.Background(), track())

	select {
	case <-store.wrote:
		t.Fatal("tag write-back happened although the file already has lyrics")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResolveGuessesFromPath(t *testing.T) {
	prov := &mockProvider{text: "lyrics"}
	store := newMockStore(tagstore.Tags{})
	r := NewResolver(prov, store, nil, Options{})

	r.Resolve(context.Background(), player.Track{File: "/music/Radiohead - Karma Police.mp3"})

	if prov.gotArtist != "Radiohead" || prov.gotTitle != "Karma Police" {
		t.Errorf("provider got %q/%q, want guessed artist/title", prov.gotArtist, prov.gotTitle)
	}
}

func TestResolveGuessKeepsTagArtist(t *testing.T) {
	prov := &mockProvider{text: "lyrics"}
	store := newMockStore(tagstore.Tags{Artist: "Tagged Artist"})
	r := NewResolver(prov, store, nil, Options{})

	r.Resolve(context.Background(), player.Track{File: "/music/Path Artist - Path Title.mp3"})

	if prov.gotArtist != "Tagged Artist" {
		t.Errorf("provider got artist %q, the path guess must not override the tag", prov.gotArtist)
	}
	if prov.gotTitle != "Path Title" {
		t.Errorf("provider got title %q, want the guessed title", prov.gotTitle)
	}
}

func TestResolveGuessFillsMissingArtist(t *testing.T) {
	prov := &mockProvider{text: "lyrics"}
	store := newMockStore(tagstore.Tags{Title: "Tagged Title"})
	r := NewResolver(prov, store, nil, Options{})

	r.Resolve(context.Background(), player.Track{File: "/music/Path Artist - Path Title.mp3"})

	if prov.gotArtist != "Path Artist" {
		t.Errorf("provider got artist %q, want the guessed artist", prov.gotArtist)
	}
	if prov.gotTitle != "Tagged Title" {
		t.Errorf("provider got title %q, the path guess must not override the tag", prov.gotTitle)
	}
}

func TestResolveNoProvider(t *testing.T) {
	r := NewResolver(nil, newMockStore(tagstore.Tags{}), nil, Options{})

	doc := r.Resolve(context.Background(), track())
	if !doc.Empty() || doc.Source != SourceNone {
		t.Fatalf("doc = %+v, want empty none document without a provider", doc)
	}
}
