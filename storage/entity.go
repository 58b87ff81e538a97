package storage

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Azure Tables stores strings as UTF-16: one property holds at most 64 KiB
// and one entity at most 1 MiB. Large JSON documents are split across Data,
// Data1, Data2... with the part count in Parts.
const (
	maxPropertyUnits = 32*1024 - 256
	maxEntityBytes   = 1<<20 - 64*1024

	dataProperty  = "Data"
	partsProperty = "Parts"
)

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// encodeChunkedEntity builds an entity holding data split into properties
// that fit the table limits. props carries extra scalar columns.
func encodeChunkedEntity(pk, rk string, props map[string]any, data string) ([]byte, error) {
	if utf16Bytes(data) > maxEntityBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	parts := splitUTF16(data, maxPropertyUnits)
	ent := make(map[string]any, len(props)+len(parts)+3)
	for k, v := range props {
		ent[k] = v
	}
	ent["PartitionKey"] = pk
	ent["RowKey"] = rk
	ent[partsProperty] = len(parts)
	for i, p := range parts {
		ent[partName(i)] = p
	}
	return sonic.Marshal(ent)
}

// decodeChunkedEntity returns the keys and the reassembled data of an entity
// written by encodeChunkedEntity. Rows without Parts hold a single Data value.
func decodeChunkedEntity(value []byte) (entityKeys, string, error) {
	var ent map[string]any
	if err := sonic.Unmarshal(value, &ent); err != nil {
		return entityKeys{}, "", err
	}
	keys := entityKeys{}
	keys.PartitionKey, _ = ent["PartitionKey"].(string)
	keys.RowKey, _ = ent["RowKey"].(string)

	count := 1
	if n, ok := ent[partsProperty].(float64); ok && n >= 1 {
		count = int(n)
	}
	if count == 1 {
		data, _ := ent[dataProperty].(string)
		return keys, data, nil
	}
	var data []byte
	for i := 0; i < count; i++ {
		part, ok := ent[partName(i)].(string)
		if !ok {
			return entityKeys{}, "", fmt.Errorf("entity %s/%s: missing %s", keys.PartitionKey, keys.RowKey, partName(i))
		}
		data = append(data, part...)
	}
	return keys, string(data), nil
}

func partName(i int) string {
	if i == 0 {
		return dataProperty
	}
	return dataProperty + strconv.Itoa(i)
}

// splitUTF16 cuts s on rune boundaries into parts of at most limit UTF-16
// code units. An empty s yields one empty part.
func splitUTF16(s string, limit int) []string {
	var parts []string
	start, units := 0, 0
	for i, r := range s {
		n := 1
		if r >= 0x10000 {
			n = 2
		}
		if units+n > limit {
			parts = append(parts, s[start:i])
			start, units = i, 0
		}
		units += n
	}
	return append(parts, s[start:])
}

// utf16Bytes is the size of s once stored as UTF-16.
func utf16Bytes(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r >= 0x10000 {
			n += 4
		} else {
			n += 2
		}
	}
	return n
}
