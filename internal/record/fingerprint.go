package record

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a BLAKE2b-256 digest of the record's content fields.
// Provenance is excluded so that the same publication observed in different
// runs has the same fingerprint unless its metadata changed.
func Fingerprint(r RetractionRecord) string {
	content := r.Clone()
	content.Run = ""
	content.SourceRuns = nil
	content.PublicationDate = content.PublicationDate.Normalized()
	if content.Authors == nil {
		content.Authors = []Author{}
	}

	// Every field is a string, an int or a slice of them, so Marshal cannot fail.
	data, _ := json.Marshal(content)
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
