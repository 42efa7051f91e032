package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Namer derives deterministic output-name stems from input filenames.
// The recognized draft markers and the output suffix are configuration,
// not literals, so filename format drift doesn't require code changes.
type Namer struct {
	draftMarkers []string
	outputSuffix string
}

var trailingSeq = regexp.MustCompile(`_\d+$`)

// NewNamer creates a Namer. Empty arguments fall back to the defaults
// used by the curation pipeline (`_watermarked` marker, `_video` suffix).
func NewNamer(draftMarkers []string, outputSuffix string) *Namer {
	if len(draftMarkers) == 0 {
		draftMarkers = []string{"_watermarked"}
	}
	if outputSuffix == "" {
		outputSuffix = "_video"
	}
	return &Namer{
		draftMarkers: draftMarkers,
		outputSuffix: outputSuffix,
	}
}

// Stub computes the output-name stem for an input filename: strips the
// extension, removes recognized draft markers, strips a trailing _NN
// sequence suffix, and appends the output suffix. Pure and total; any
// input produces a non-empty stub.
func (n *Namer) Stub(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, marker := range n.draftMarkers {
		base = strings.ReplaceAll(base, marker, "")
	}

	base = trailingSeq.ReplaceAllString(base, "")
	base = strings.Trim(base, "_")

	if base == "" {
		base = "artifact"
	}

	return base + n.outputSuffix
}

// Unique returns a stub not present in taken, disambiguating collisions
// with a _2, _3, ... counter, and records the result in taken.
func (n *Namer) Unique(filename string, taken map[string]bool) string {
	stub := n.Stub(filename)
	candidate := stub
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", stub, i)
	}
	taken[candidate] = true
	return candidate
}
