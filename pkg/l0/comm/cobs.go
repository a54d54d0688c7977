package comm

// CobsMaxEncodedLen returns the max length of COBS encoded n bytes,
// excluding the frame terminator.
func CobsMaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// CobsEncode appends COBS encoded src to dst. The result contains no zero byte.
// A block of 254 non-zero bytes is emitted with code 0xff and no implied zero.
func CobsEncode(dst, src []byte) []byte {
	codePos := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for i, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
			if code != 0xff {
				continue
			}
			if i+1 == len(src) {
				break
			}
		}
		dst[codePos] = code
		codePos, code = len(dst), 1
		dst = append(dst, 0)
	}
	dst[codePos] = code
	return dst
}

// CobsDecode appends decoded src to dst. src must not include the terminator.
func CobsDecode(dst, src []byte) ([]byte, error) {
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return dst, ErrMalformedFrame
		}
		i++
		end := i + int(code) - 1
		if end > len(src) {
			return dst, ErrMalformedFrame
		}
		for ; i < end; i++ {
			if src[i] == 0 {
				return dst, ErrMalformedFrame
			}
			dst = append(dst, src[i])
		}
		if code != 0xff && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
