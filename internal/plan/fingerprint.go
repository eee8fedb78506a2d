package plan

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a BLAKE3 digest of the plan's JSON encoding. Two plans
// with the same content have the same fingerprint regardless of the file
// format they were loaded from.
func (p *Plan) Fingerprint() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
