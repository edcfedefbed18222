package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashRecord hashes one Newick record. Surrounding whitespace and line
// breaks are ignored, so a tree wrapped over several lines keys the same as
// its one-line form.
func HashRecord(record string) string {
	record = strings.TrimSpace(record)
	record = strings.NewReplacer("\r", "", "\n", "").Replace(record)
	return Hash([]byte(record))
}

// HashStrings hashes items in order with their boundaries kept. Callers sort
// unordered inputs such as outgroup sets first.
func HashStrings(items []string) string {
	data, _ := json.Marshal(items)
	return Hash(data)
}

// hashKey builds "prefix:sha256(json(parts))".
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(data))
}
