package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"sort"
	"strings"

	"github.com/sdejongh/treesync/pkg/models"
)

// Algorithm names one of the supported digest functions
type Algorithm string

const (
	// CRC16 is the reflected CCITT CRC with final complement (CRC-16/X-25)
	CRC16 Algorithm = "crc16"
	// CRC16Reverse is the MSB-first CCITT CRC without complement (CRC-16/IBM-3740)
	CRC16Reverse Algorithm = "crc16-reverse"
	// CRC32 is the standard CRC-32 used by gzip and zip
	CRC32 Algorithm = "crc32"
	// CRC32Reverse is the MSB-first CRC-32 with final complement (CRC-32/BZIP2)
	CRC32Reverse Algorithm = "crc32-reverse"
	MD5          Algorithm = "md5"
	SHA1         Algorithm = "sha1"
	SHA256       Algorithm = "sha256"
	SHA384       Algorithm = "sha384"
	SHA512       Algorithm = "sha512"
)

// DefaultAlgorithm is used when no algorithm is configured
const DefaultAlgorithm = CRC32

var constructors = map[Algorithm]func() hash.Hash{
	CRC16:        func() hash.Hash { return newCRC(crc16Forward) },
	CRC16Reverse: func() hash.Hash { return newCRC(crc16Reverse) },
	CRC32:        func() hash.Hash { return newCRC(crc32Forward) },
	CRC32Reverse: func() hash.Hash { return newCRC(crc32Reverse) },
	MD5:          md5.New,
	SHA1:         sha1.New,
	SHA256:       sha256.New,
	SHA384:       sha512.New384,
	SHA512:       sha512.New,
}

// New returns a fresh running hash for the algorithm
func (a Algorithm) New() (hash.Hash, error) {
	ctor, ok := constructors[a]
	if !ok {
		return nil, unknownAlgorithm(string(a))
	}
	return ctor(), nil
}

// String returns the algorithm name
func (a Algorithm) String() string {
	return string(a)
}

// ParseAlgorithm maps a name (case-insensitive) to an algorithm.
// An empty name selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultAlgorithm, nil
	}
	a := Algorithm(name)
	if _, ok := constructors[a]; !ok {
		return "", unknownAlgorithm(name)
	}
	return a, nil
}

// Algorithms returns every supported algorithm, sorted by name
func Algorithms() []Algorithm {
	all := make([]Algorithm, 0, len(constructors))
	for a := range constructors {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

func unknownAlgorithm(name string) error {
	names := make([]string, 0, len(constructors))
	for _, a := range Algorithms() {
		names = append(names, string(a))
	}
	return &models.ValidationError{
		Field:   "algorithm",
		Message: "unsupported algorithm " + name + " (use: " + strings.Join(names, ", ") + ")",
	}
}
