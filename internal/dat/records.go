package dat

import (
	"path"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/hashlist"
)

const statusNoDump = "nodump"

// Records converts every dumped rom into a known record named "<set>/<rom>".
// Input files match the name by path suffix or base name.
// It returns the algorithms carried by at least one record and the number of
// roms skipped because they had no usable digest.
func (df *DataFile) Records(reg *algo.Registry) ([]*hashlist.FileRecord, []algo.ID, int) {
	var (
		recs    []*hashlist.FileRecord
		skipped int
		seen    = make(map[algo.ID]bool)
	)
	for _, set := range df.Sets() {
		for _, rom := range set.Roms {
			if rom.Status == statusNoDump {
				skipped++
				continue
			}
			rec := hashlist.NewFileRecord(rom.Size, path.Join(set.Name, rom.Name))
			rec.TrailingPath = true
			if reg.IsValidHex(algo.MD5, rom.MD5) {
				rec.SetDigest(algo.MD5, rom.MD5)
				seen[algo.MD5] = true
			}
			if reg.IsValidHex(algo.SHA1, rom.SHA1) {
				rec.SetDigest(algo.SHA1, rom.SHA1)
				seen[algo.SHA1] = true
			}
			if len(rec.Digests) == 0 {
				skipped++
				continue
			}
			recs = append(recs, rec)
		}
	}
	var ids []algo.ID
	for _, id := range reg.IDs() {
		if seen[id] {
			ids = append(ids, id)
		}
	}
	return recs, ids, skipped
}
