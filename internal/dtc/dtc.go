// Package dtc decodes SAE J2012 trouble codes and looks up their
// descriptions.
package dtc

// Decode turns the two raw bytes of a trouble code into its five
// character form, e.g. 0x01 0x33 -> "P0133". Zero bytes mean padding and
// decode to "".
//
//	A7..A6  system letter (P, C, B, U)
//	A5..A4  second character (0..3)
//	A3..A0  third character
//	B7..B4  fourth character
//	B3..B0  fifth character
func Decode(a, b byte) string {
	if a == 0 && b == 0 {
		return ""
	}

	systems := [4]byte{'P', 'C', 'B', 'U'}
	hexDigits := "0123456789ABCDEF"

	code := make([]byte, 5)
	code[0] = systems[(a>>6)&0x03]
	code[1] = hexDigits[(a>>4)&0x03]
	code[2] = hexDigits[a&0x0F]
	code[3] = hexDigits[(b>>4)&0x0F]
	code[4] = hexDigits[b&0x0F]
	return string(code)
}

// System names the subsystem encoded by the first letter of a code.
func System(code string) string {
	if code == "" {
		return ""
	}
	switch code[0] {
	case 'P':
		return "Powertrain"
	case 'C':
		return "Chassis"
	case 'B':
		return "Body"
	case 'U':
		return "Network"
	}
	return ""
}

// Encode is the inverse of Decode. It reports false for strings that are
// not five character SAE codes.
func Encode(code string) (a, b byte, ok bool) {
	if len(code) != 5 {
		return 0, 0, false
	}
	var sys byte
	switch code[0] {
	case 'P':
		sys = 0
	case 'C':
		sys = 1
	case 'B':
		sys = 2
	case 'U':
		sys = 3
	default:
		return 0, 0, false
	}
	var n [4]byte
	for i := 0; i < 4; i++ {
		v, valid := hexValue(code[i+1])
		if !valid {
			return 0, 0, false
		}
		n[i] = v
	}
	if n[0] > 3 {
		return 0, 0, false
	}
	return sys<<6 | n[0]<<4 | n[1], n[2]<<4 | n[3], true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
