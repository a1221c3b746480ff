/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package trajectory

/*****************************************************************************************************************/

import (
	"encoding/json"
	"math/bits"
)

/*****************************************************************************************************************/

// Bitset is a small fixed-width bitset sized to the number of exposures in a
// search, used to record which observations contributed to a Trajectory.
type Bitset struct {
	words []uint64
	n     int
}

/*****************************************************************************************************************/

// NewBitset allocates a Bitset able to hold n bits, all initially set.
func NewBitset(n int) Bitset {
	words := make([]uint64, (n+63)/64)
	for i := range words {
		words[i] = ^uint64(0)
	}

	// Clear any trailing bits beyond n in the final word:
	if n%64 != 0 && len(words) > 0 {
		words[len(words)-1] &= (uint64(1) << uint(n%64)) - 1
	}

	return Bitset{words: words, n: n}
}

/*****************************************************************************************************************/

// NewEmptyBitset allocates a Bitset able to hold n bits, all initially clear.
func NewEmptyBitset(n int) Bitset {
	return Bitset{words: make([]uint64, (n+63)/64), n: n}
}

/*****************************************************************************************************************/

// Len returns the number of bits this Bitset was sized to hold.
func (b Bitset) Len() int {
	return b.n
}

/*****************************************************************************************************************/

// Set marks bit i as set.
func (b Bitset) Set(i int) {
	b.words[i/64] |= uint64(1) << uint(i%64)
}

/*****************************************************************************************************************/

// Clear marks bit i as cleared.
func (b Bitset) Clear(i int) {
	b.words[i/64] &^= uint64(1) << uint(i%64)
}

/*****************************************************************************************************************/

// Test reports whether bit i is set.
func (b Bitset) Test(i int) bool {
	return b.words[i/64]&(uint64(1)<<uint(i%64)) != 0
}

/*****************************************************************************************************************/

// PopCount returns the number of set bits.
func (b Bitset) PopCount() int {
	count := 0
	for _, w := range b.words {
		count += bits.OnesCount64(w)
	}
	return count
}

/*****************************************************************************************************************/

// Clone returns an independent copy of the Bitset.
func (b Bitset) Clone() Bitset {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return Bitset{words: words, n: b.n}
}

/*****************************************************************************************************************/

type bitsetJSON struct {
	Words []uint64 `json:"words"`
	N     int      `json:"n"`
}

/*****************************************************************************************************************/

// MarshalJSON lets a Bitset round-trip through checkpoint.Store's spooled
// JSON payloads despite its fields being unexported.
func (b Bitset) MarshalJSON() ([]byte, error) {
	return json.Marshal(bitsetJSON{Words: b.words, N: b.n})
}

/*****************************************************************************************************************/

func (b *Bitset) UnmarshalJSON(data []byte) error {
	var decoded bitsetJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	b.words, b.n = decoded.Words, decoded.N
	return nil
}

/*****************************************************************************************************************/
