// Package scanner finds speech recordings below a directory.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/speechassess/cefrgrade/internal/audio"
)

// Recording is one audio file found by Scan.
type Recording struct {
	Path    string
	Speaker string
	Part    string
}

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".wave": {},
}

// Options filters the recordings Scan returns.
type Options struct {
	// Part drops recordings whose name encodes a different test part.
	// Names without a part are kept.
	Part string
	// Speakers keeps only the listed speakers when non-empty.
	Speakers map[string]struct{}
}

// Scan walks root and returns the recordings sorted by path. A root that is
// itself an audio file yields that file.
func Scan(root string, opts Options) ([]Recording, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !isAudio(root) {
			return nil, fmt.Errorf("%s: not a .wav file", root)
		}
		return filter([]Recording{newRecording(root)}, opts), nil
	}

	var found []Recording
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isAudio(path) {
			found = append(found, newRecording(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return filter(found, opts), nil
}

// Expand scans every input and removes duplicate paths.
func Expand(inputs []string, opts Options) ([]Recording, error) {
	seen := make(map[string]struct{})
	var out []Recording
	for _, in := range inputs {
		recs, err := Scan(in, opts)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if _, dup := seen[r.Path]; dup {
				continue
			}
			seen[r.Path] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

func isAudio(path string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func newRecording(path string) Recording {
	speaker, part := audio.ParseName(path)
	return Recording{Path: path, Speaker: speaker, Part: part}
}

func filter(recs []Recording, opts Options) []Recording {
	if opts.Part == "" && len(opts.Speakers) == 0 {
		return recs
	}
	out := recs[:0]
	for _, r := range recs {
		if opts.Part != "" && r.Part != "" && r.Part != opts.Part {
			continue
		}
		if len(opts.Speakers) > 0 {
			if _, ok := opts.Speakers[r.Speaker]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
