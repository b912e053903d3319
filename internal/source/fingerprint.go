package source

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DomainGrid prefixes grid fingerprints. The version suffix allows the
// encoding to change without colliding with stored values.
const DomainGrid = "rowsync/grid/v1"

// Fingerprint returns a stable content hash of a grid.
// Format: SHA256(domain + 0x00 + encoding), where each cell is written as
// kind byte, text length and text, and each row is terminated by 0xFF.
// Trailing empty cells do not change the fingerprint because grids are
// padded to their widest row.
func Fingerprint(g Grid) string {
	h := sha256.New()
	h.Write([]byte(DomainGrid))
	h.Write([]byte{0x00})

	var n [binary.MaxVarintLen64]byte
	for r := 0; r < g.Height(); r++ {
		row := g.Row(r)
		last := len(row) - 1
		for last >= 0 && row[last].IsBlank() {
			last--
		}
		for _, c := range row[:last+1] {
			h.Write([]byte{byte(c.Kind)})
			k := binary.PutUvarint(n[:], uint64(len(c.Text)))
			h.Write(n[:k])
			h.Write([]byte(c.Text))
		}
		h.Write([]byte{0xFF})
	}
	return hex.EncodeToString(h.Sum(nil))
}
