package dart

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sashank1508/idioms/internal/errs"
	"github.com/sashank1508/idioms/internal/hashring"
)

// MappingHeader is the versioned header written at the top of a
// persisted DART mapping file, mirroring the teacher's RINGv/
// RINGBUILDERv header convention in utils.go.
const MappingHeader = "DART_MAPPING_V1"

// SaveMapping serializes the table's virtual-node/server map to path in
// the DART_MAPPING_V1 text format: header, then "numServers ratio",
// "vnodeCount", one "id prefix" line per vnode, then one "vnodeId
// serverId" line per vnode. The second field is the replication ratio
// the table was built with, not the derived replication factor.
func SaveMapping(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.CodeIO, "create mapping file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, MappingHeader)
	fmt.Fprintf(w, "%d %.6f\n", t.numServers, t.ratio)
	fmt.Fprintf(w, "%d\n", len(t.vnodes))
	for _, vn := range t.vnodes {
		prefix := vn.Prefix
		if prefix == "" {
			prefix = emptyPrefixToken
		}
		fmt.Fprintf(w, "%d %s\n", vn.ID, prefix)
	}
	for _, vn := range t.vnodes {
		fmt.Fprintf(w, "%d %d\n", vn.ID, t.vnodeServer[vn.ID])
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(errs.CodeIO, "flush mapping file", err)
	}
	return nil
}

// LoadMapping reads a DART_MAPPING_V1 file written by SaveMapping. If
// the stored numServers differs from expectedNumServers, loading
// refuses (returns an error with code errs.CodeVersionMismatch) — the
// caller must remap instead.
func LoadMapping(path string, expectedNumServers int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.CodeIO, "open mapping file", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readLine(r)
	if err != nil || header != MappingHeader {
		return nil, errs.New(errs.CodeVersionMismatch, "unrecognized mapping file header")
	}

	var numServers int
	var ratio float64
	if _, err := fmt.Fscanf(r, "%d %f\n", &numServers, &ratio); err != nil {
		return nil, errs.Wrap(errs.CodeIO, "read mapping counts", err)
	}
	if numServers != expectedNumServers {
		return nil, errs.New(errs.CodeVersionMismatch, "stored numServers does not match current configuration")
	}

	var vnodeCount int
	if _, err := fmt.Fscanf(r, "%d\n", &vnodeCount); err != nil {
		return nil, errs.Wrap(errs.CodeIO, "read vnode count", err)
	}

	vnodes := make([]VirtualNode, vnodeCount)
	for i := 0; i < vnodeCount; i++ {
		var id int
		var prefix string
		if _, err := fmt.Fscanf(r, "%d %s\n", &id, &prefix); err != nil {
			return nil, errs.Wrap(errs.CodeIO, "read vnode entry", err)
		}
		if prefix == emptyPrefixToken {
			prefix = ""
		}
		vnodes[i] = VirtualNode{ID: id, Prefix: prefix}
	}

	assignment := make(map[int]int, vnodeCount)
	for i := 0; i < vnodeCount; i++ {
		var id, server int
		if _, err := fmt.Fscanf(r, "%d %d\n", &id, &server); err != nil {
			return nil, errs.Wrap(errs.CodeIO, "read vnode assignment", err)
		}
		assignment[id] = server
	}

	ring := hashring.NewRing(numServers)
	return &Table{
		numServers:  numServers,
		ratio:       ratio,
		vnodes:      vnodes,
		vnodeServer: assignment,
		ring:        ring,
	}, nil
}

// emptyPrefixToken stands in for the empty-prefix vnode's prefix in
// the text format, which has no way to write a bare empty field on a
// "id prefix" line. It must never collide with a real prefix: every
// real prefix is either a single letter/digit, one of
// punctuationPrefixes, or one of the two-character commonPrefixes, so
// a multi-character bracketed token is safe where a single punctuation
// character (e.g. "-") is not.
const emptyPrefixToken = "<EMPTY>"

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}
