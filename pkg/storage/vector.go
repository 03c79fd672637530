package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/semstore-dev/semstore/pkg/api"
)

// Match is a single similarity query result: the matched document and
// its distance to the query vector. Smaller distance means more similar.
type Match struct {
	Document api.Document
	Distance float64
}

// CosineDistance computes 1 minus the cosine similarity of two vectors
// of equal length. The result lies in [0, 2]. A zero-magnitude vector
// has no direction; its distance to anything is defined as 1.
func CosineDistance(a, b []float32) float64 {
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na2)*math.Sqrt(nb2))
}

// Ranked is a vector's position in a distance ranking, identified by its
// insertion index.
type Ranked struct {
	Index    int
	Distance float64
}

// Rank orders the stored vectors by cosine distance to the query vector
// and returns the k closest. Vectors must appear in insertion order:
// distance ties are broken by the smaller index so repeated queries are
// deterministic. When fewer than k vectors exist, all are returned.
func Rank(vectors [][]float32, query []float32, k int) []Ranked {
	ranked := make([]Ranked, len(vectors))
	for i, v := range vectors {
		ranked[i] = Ranked{Index: i, Distance: CosineDistance(v, query)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].Index < ranked[j].Index
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// EncodeVector encodes a vector as a little-endian sequence of IEEE 754
// float32 values, suitable for BLOB storage. The length is derived from
// the blob size on decode.
func EncodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeVector decodes a blob produced by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not a multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
