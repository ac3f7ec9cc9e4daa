package fileops

import (
	"strings"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
)

type RenamePair struct {
	Old string
	New string
}

// ParseRenamePairs parses "old:new,old:new". Whitespace around names is
// trimmed; empty items are ignored.
func ParseRenamePairs(s string) ([]RenamePair, error) {
	var pairs []RenamePair
	for item := range strings.SplitSeq(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		oldName, newName, ok := strings.Cut(item, ":")
		oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
		if !ok || oldName == "" || newName == "" {
			return nil, failure.New(failure.InvalidArgument, "malformed rename pair %q, expected old:new", item)
		}
		pairs = append(pairs, RenamePair{Old: oldName, New: newName})
	}

	if len(pairs) == 0 {
		return nil, failure.New(failure.InvalidArgument, "no rename pairs given")
	}
	return pairs, nil
}

// BatchRename applies every pair in order and returns one error per failed
// pair. A failure does not stop the remaining renames.
func BatchRename(fsys afero.Fs, pairs []RenamePair) []error {
	var errs []error
	for _, p := range pairs {
		if err := fsys.Rename(p.Old, p.New); err != nil {
			errs = append(errs, ioErr("rename", p.Old, "failed to rename to "+p.New, err))
		}
	}
	return errs
}
