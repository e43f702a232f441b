package cbc

// Pad appends p = maxPad - len(data)%maxPad bytes of value p.
// An aligned input gains a full maxPad of padding, so Pad never returns
// its input unchanged. maxPad outside 1..255 falls back to BlockSize.
func Pad(data []byte, maxPad int) []byte {
	if maxPad <= 0 || maxPad > 255 {
		maxPad = BlockSize
	}
	p := maxPad - len(data)%maxPad
	out := make([]byte, len(data)+p)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(p)
	}
	return out
}

// Unpad removes padding added by Pad. It rejects a zero pad count, a count
// longer than the input, and any pad byte that does not equal the count.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	p := int(data[len(data)-1])
	if p == 0 || p > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-p:] {
		if int(b) != p {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-p], nil
}

// UnpadLenient drops as many trailing bytes as the final byte says,
// without checking them. A zero count returns the input unchanged.
// A count longer than the input is still rejected.
func UnpadLenient(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	p := int(data[len(data)-1])
	if p > len(data) {
		return nil, ErrBadPadding
	}
	return data[:len(data)-p], nil
}
