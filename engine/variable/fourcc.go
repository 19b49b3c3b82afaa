package variable

// FourCC is a four character code packed into 32 bits. Codes are an alternative key for
// registry entries that game code can compare without string lookups.
type FourCC uint32

// InvalidFourCC marks a registry entry that was declared by name only.
const InvalidFourCC FourCC = 0

// MakeFourCC packs the first four bytes of code into a FourCC, first byte in the lowest bits.
// Codes shorter than four bytes are padded with spaces.
//
// Parameters:
//   - code: the character code, usually exactly four ASCII characters
//
// Returns:
//   - FourCC: the packed code
func MakeFourCC(code string) FourCC {
	var b [4]byte
	for i := range b {
		if i < len(code) {
			b[i] = code[i]
		} else {
			b[i] = ' '
		}
	}
	return FourCC(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func (f FourCC) String() string {
	if f == InvalidFourCC {
		return "<none>"
	}
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}
