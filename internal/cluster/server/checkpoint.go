package server

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/sashank1508/idioms/internal/errs"
)

// IndexHeader is the versioned header written at the top of a
// checkpointed local index, mirroring internal/dart's MappingHeader
// convention.
const IndexHeader = "IDIOMS_INDEX_V1"

// dataDirFor returns <dataDir>/server_<id>, creating it if absent per
// the design's "process creates this directory if absent" rule.
func dataDirFor(baseDataDir string, id int) (string, error) {
	dir := filepath.Join(baseDataDir, fmt.Sprintf("server_%d", id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.CodeIO, "create server data directory", err)
	}
	return dir, nil
}

func indexPath(baseDataDir string, id int) (string, error) {
	dir, err := dataDirFor(baseDataDir, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.dat"), nil
}

// saveIndex serializes snapshot to path in the IDIOMS_INDEX_V1 text
// format: header, "serverId suffixMode", "objectCount", then per
// object "objectId metaCount" followed by metaCount key/value line
// pairs.
func saveIndex(path string, id int, suffixMode bool, snapshot map[int64][]affixindex.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.CodeIO, "create index file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, IndexHeader)
	fmt.Fprintf(w, "%d %t\n", id, suffixMode)
	fmt.Fprintf(w, "%d\n", len(snapshot))
	for objectID, records := range snapshot {
		fmt.Fprintf(w, "%d %d\n", objectID, len(records))
		for _, rec := range records {
			fmt.Fprintln(w, rec.Key)
			fmt.Fprintln(w, rec.Value)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(errs.CodeIO, "flush index file", err)
	}
	return nil
}

// loadIndex reads an IDIOMS_INDEX_V1 file, refusing (CodeInvariant)
// if the stored server id does not match expectedID, per the design's
// "recovery refuses if the stored server id differs from the current
// one".
func loadIndex(path string, expectedID int) (map[int64][]affixindex.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.CodeIO, "open index file", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readLine(r)
	if err != nil || header != IndexHeader {
		return nil, errs.New(errs.CodeVersionMismatch, "unrecognized index file header")
	}

	var storedID int
	var suffixMode bool
	if _, err := fmt.Fscanf(r, "%d %t\n", &storedID, &suffixMode); err != nil {
		return nil, errs.Wrap(errs.CodeIO, "read index header fields", err)
	}
	if storedID != expectedID {
		return nil, errs.New(errs.CodeInvariant, "stored server id does not match current server")
	}

	var objectCount int
	if _, err := fmt.Fscanf(r, "%d\n", &objectCount); err != nil {
		return nil, errs.Wrap(errs.CodeIO, "read object count", err)
	}

	snapshot := make(map[int64][]affixindex.Record, objectCount)
	for i := 0; i < objectCount; i++ {
		var objectID int64
		var metaCount int
		if _, err := fmt.Fscanf(r, "%d %d\n", &objectID, &metaCount); err != nil {
			return nil, errs.Wrap(errs.CodeIO, "read object header", err)
		}
		records := make([]affixindex.Record, metaCount)
		for j := 0; j < metaCount; j++ {
			key, err := readLine(r)
			if err != nil {
				return nil, errs.Wrap(errs.CodeIO, "read metadata key", err)
			}
			value, err := readLine(r)
			if err != nil {
				return nil, errs.Wrap(errs.CodeIO, "read metadata value", err)
			}
			records[j] = affixindex.Record{Key: key, Value: value, ObjectID: objectID}
		}
		snapshot[objectID] = records
	}
	return snapshot, nil
}

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
