package param

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DomainParameterSet is the domain prefix for parameter-set fingerprints.
// The version suffix enables future encoding migration without colliding
// with fingerprints already recorded in the ledger.
const DomainParameterSet = "recalc/paramset/v1"

// Fingerprint computes a content-addressed fingerprint of a Set:
// SHA-256 over the domain prefix, a null separator, and the canonical
// encoding. Two sets with equal keys and equal canonical values always
// fingerprint identically, regardless of construction order.
func Fingerprint(s Set) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainParameterSet))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalCanonical produces the canonical encoding of a Set used for
// fingerprinting. Differences from Set.MarshalJSON:
//   - strings are NFC normalized before encoding
//   - floats use the shortest round-trippable representation
//
// Keys are sorted; the encoding is byte-stable for equal sets.
func MarshalCanonical(s Set) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.SortedKeys() {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := canonicalString(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := canonicalValue(s[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func canonicalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Float:
		return []byte(strconv.FormatFloat(float64(val), 'g', -1, 64)), nil
	case String:
		return canonicalString(string(val))
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Vector:
		var b strings.Builder
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			eb, err := canonicalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			b.Write(eb)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	case Mapping:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := canonicalString(k)
			if err != nil {
				return nil, err
			}
			b.Write(kb)
			b.WriteByte(':')
			vb, err := canonicalValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// canonicalString NFC-normalizes and JSON-encodes a string. Normalization
// keeps fingerprints stable when the same species symbol arrives in
// different Unicode compositions.
func canonicalString(s string) ([]byte, error) {
	return json.Marshal(norm.NFC.String(s))
}
