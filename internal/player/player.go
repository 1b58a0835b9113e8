// Package player samples playback state from cmus through its remote control
// command.
package player

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrUnavailable reports that cmus cannot be reached at all: not running, or
// its control socket is gone. It is distinct from a running player that is
// simply stopped.
var ErrUnavailable = errors.New("cmus is not reachable")

// Transport is the player's transport state.
type Transport string

const (
	Playing Transport = "playing"
	Paused  Transport = "paused"
	Stopped Transport = "stopped"
)

// Track identifies what is currently loaded in the player.
type Track struct {
	Artist string
	Title  string
	File   string
}

// Same reports whether two tracks are the same identity: equal artist+title,
// or equal file path when neither side carries artist/title metadata.
func (t Track) Same(o Track) bool {
	if t.Artist == "" && t.Title == "" && o.Artist == "" && o.Title == "" {
		return t.File == o.File
	}
	return t.Artist == o.Artist && t.Title == o.Title
}

// Key returns a stable cache key for the track identity.
func (t Track) Key() string {
	if t.Artist == "" && t.Title == "" {
		return t.File
	}
	return strings.ToLower(t.Artist) + "|" + strings.ToLower(t.Title)
}

// Empty reports whether the track carries no identity at all.
func (t Track) Empty() bool {
	return t.Artist == "" && t.Title == "" && t.File == ""
}

// Sample is one observation of the player's state.
type Sample struct {
	Track     Track
	Position  float64
	Duration  float64
	Transport Transport
}

// Cmus polls cmus via cmus-remote.
type Cmus struct {
	remote string
}

// NewCmus creates a poller using the cmus-remote binary on PATH.
func NewCmus() *Cmus {
	return &Cmus{remote: "cmus-remote"}
}

// Poll queries cmus for its current state. It returns ErrUnavailable when the
// player cannot be reached.
func (c *Cmus) Poll() (*Sample, error) {
	out, err := exec.Command(c.remote, "-Q").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseStatus(out)
}

// parseStatus decodes the line-oriented output of `cmus-remote -Q`.
func parseStatus(out []byte) (*Sample, error) {
	sample := &Sample{Transport: Stopped}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		switch key {
		case "status":
			switch value {
			case "playing":
				sample.Transport = Playing
			case "paused":
				sample.Transport = Paused
			default:
				sample.Transport = Stopped
			}
		case "file":
			sample.Track.File = value
		case "duration":
			sample.Duration, _ = strconv.ParseFloat(value, 64)
		case "position":
			sample.Position, _ = strconv.ParseFloat(value, 64)
		case "tag":
			field, tagValue, ok := strings.Cut(value, " ")
			if !ok {
				continue
			}
			switch field {
			case "artist":
				sample.Track.Artist = tagValue
			case "title":
				sample.Track.Title = tagValue
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse cmus status: %w", err)
	}
	return sample, nil
}
