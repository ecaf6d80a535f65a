package hashlist

import (
	"strconv"
	"strings"

	"github.com/xxxsen/deephash/internal/algo"
)

// HeaderLines returns the two header lines describing a hash list with the
// given algorithm columns.
func HeaderLines(reg *algo.Registry, ids []algo.ID) []string {
	cols := append([]string{"size"}, reg.Names(ids)...)
	cols = append(cols, filenameColumn)
	return []string{
		HeaderMagic,
		HeaderPrefix + strings.Join(cols, ","),
	}
}

// FormatRecord renders rec as a data line with the given algorithm columns.
func FormatRecord(rec *FileRecord, ids []algo.ID) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(rec.Size, 10))
	for _, id := range ids {
		sb.WriteByte(',')
		sb.WriteString(rec.HexDigest(id))
	}
	sb.WriteByte(',')
	sb.WriteString(rec.Name)
	return sb.String()
}
