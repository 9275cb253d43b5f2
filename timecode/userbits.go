package timecode

import "fmt"

// UserBits holds the eight 4-bit binary groups of an LTC frame. Index 0 is
// binary group 1 (frame bits 4..7). Only the low nibble of each entry is
// significant.
type UserBits [8]uint8

// Uint32 returns the user bits as a 32 bit value, group 1 in the least
// significant nibble.
func (u UserBits) Uint32() uint32 {
	var v uint32
	for i := len(u) - 1; i >= 0; i-- {
		v = v<<4 | uint32(u[i]&0xF)
	}
	return v
}

// SetUint32 stores v LSB first into the eight groups.
func (u *UserBits) SetUint32(v uint32) {
	for i := range u {
		u[i] = uint8(v & 0xF)
		v >>= 4
	}
}

// UserBitsFromUint32 is a convenience constructor for SetUint32.
func UserBitsFromUint32(v uint32) UserBits {
	var u UserBits
	u.SetUint32(v)
	return u
}

// BCD packs the decimal digits of n into nibbles, least significant digit
// first, e.g. 123 becomes 0x123. At most eight digits are kept.
func BCD(n uint32) uint32 {
	var bcd uint32
	for i := 0; i < 8; i++ {
		bcd |= (n % 10) << (i * 4)
		n /= 10
		if n == 0 {
			break
		}
	}
	return bcd
}

// Date interprets the user bits as an SMPTE 309 date: day in groups 1-2,
// month in groups 3-4, year (two digits) in groups 5-6. The timezone code in
// groups 7-8 is returned unchanged.
func (u UserBits) Date() (year, month, day int, zone uint8) {
	day = int(u[0]) + int(u[1])*10
	month = int(u[2]) + int(u[3])*10
	year = int(u[4]) + int(u[5])*10
	zone = u[6] | u[7]<<4
	return year, month, day, zone
}

// SetDate stores a date and timezone code in SMPTE 309 layout. year is
// reduced to two digits.
func (u *UserBits) SetDate(year, month, day int, zone uint8) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month=%d", ErrFieldOutOfRange, month)
	}
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: day=%d", ErrFieldOutOfRange, day)
	}
	if year < 0 {
		return fmt.Errorf("%w: year=%d", ErrFieldOutOfRange, year)
	}
	year %= 100
	u[0], u[1] = uint8(day%10), uint8(day/10)
	u[2], u[3] = uint8(month%10), uint8(month/10)
	u[4], u[5] = uint8(year%10), uint8(year/10)
	u[6], u[7] = zone&0xF, zone>>4
	return nil
}
