package bitmap

import (
	"fmt"
	"math/bits"
)

// Op is a logical operation combining a source bit into a destination bit.
type Op int

const (
	// OpCopy replaces the destination bit.
	OpCopy Op = iota
	// OpAnd keeps the destination bit only where the source is set.
	OpAnd
	// OpOr sets the destination bit where the source is set.
	OpOr
	// OpXor flips the destination bit where the source is set.
	OpXor
	// OpAndNot clears the destination bit where the source is set.
	OpAndNot
)

// lowMask returns a word with the n lowest bits set, 0 <= n <= 64.
func lowMask(n int) uint64 {
	if n >= wordBits {
		return ^uint64(0)
	}
	return (1 << uint(n)) - 1
}

// load returns n <= 64 bits starting at bit position pos, right aligned.
func load(words []uint64, pos, n int) uint64 {
	i, off := pos>>6, pos&63
	v := words[i] >> uint(off)
	if off != 0 && off+n > wordBits {
		v |= words[i+1] << uint(wordBits-off)
	}
	return v & lowMask(n)
}

// store writes the n <= 64 low bits of v at bit position pos.
func store(words []uint64, pos, n int, v uint64) {
	for n > 0 {
		i, off := pos>>6, pos&63
		k := wordBits - off
		if k > n {
			k = n
		}
		m := lowMask(k) << uint(off)
		words[i] = words[i]&^m | (v<<uint(off))&m
		v >>= uint(k)
		pos += k
		n -= k
	}
}

// combine applies dst[dpos+i] = dst[dpos+i] <op> src[spos+i] for i < count.
// It walks dst one word at a time so every write touches a single word.
func combine(dst []uint64, dpos int, src []uint64, spos int, count int, o Op) {
	for count > 0 {
		i, off := dpos>>6, dpos&63
		n := wordBits - off
		if n > count {
			n = count
		}
		m := lowMask(n) << uint(off)
		v := load(src, spos, n) << uint(off)
		switch o {
		case OpCopy:
			dst[i] = dst[i]&^m | v
		case OpAnd:
			dst[i] &= v | ^m
		case OpOr:
			dst[i] |= v
		case OpXor:
			dst[i] ^= v
		case OpAndNot:
			dst[i] &^= v
		}
		dpos += n
		spos += n
		count -= n
	}
}

// fill sets (on) or clears the run of count bits at pos; with flip it
// inverts the run instead.
func fill(words []uint64, pos, count int, on, flip bool) {
	for count > 0 {
		i, off := pos>>6, pos&63
		n := wordBits - off
		if n > count {
			n = count
		}
		m := lowMask(n) << uint(off)
		switch {
		case flip:
			words[i] ^= m
		case on:
			words[i] |= m
		default:
			words[i] &^= m
		}
		pos += n
		count -= n
	}
}

func countOn(words []uint64, pos, count int) int {
	total := 0
	for count > 0 {
		i, off := pos>>6, pos&63
		n := wordBits - off
		if n > count {
			n = count
		}
		total += bits.OnesCount64((words[i] >> uint(off)) & lowMask(n))
		pos += n
		count -= n
	}
	return total
}

// scan returns the position of the first bit equal to want in the run,
// or -1.
func scan(words []uint64, pos, count int, want bool) int {
	for count > 0 {
		i, off := pos>>6, pos&63
		n := wordBits - off
		if n > count {
			n = count
		}
		w := words[i]
		if !want {
			w = ^w
		}
		w = (w >> uint(off)) & lowMask(n)
		if w != 0 {
			return pos + bits.TrailingZeros64(w)
		}
		pos += n
		count -= n
	}
	return -1
}

func scanOne(words []uint64, pos, count int) int  { return scan(words, pos, count, true) }
func scanZero(words []uint64, pos, count int) int { return scan(words, pos, count, false) }

// scanBackward returns the position of the last bit equal to want in the
// run, or -1.
func scanBackward(words []uint64, pos, count int, want bool) int {
	end := pos + count
	for end > pos {
		last := end - 1
		i := last >> 6
		lo := i << 6
		if lo < pos {
			lo = pos
		}
		n := end - lo
		w := words[i]
		if !want {
			w = ^w
		}
		w = (w >> uint(lo&63)) & lowMask(n)
		if w != 0 {
			return lo + wordBits - 1 - bits.LeadingZeros64(w)
		}
		end = lo
	}
	return -1
}

func (img *Image) checkRun(pos, count int) error {
	if pos < 0 || count < 0 || pos+count > len(img.Bits)*wordBits {
		return fmt.Errorf("%w: bits [%d,%d) of %d", ErrRange, pos, pos+count, len(img.Bits)*wordBits)
	}
	return nil
}

func (img *Image) checkSource(src *Image, pos, srcPos, count int) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	if err := img.checkRun(pos, count); err != nil {
		return err
	}
	return src.checkRun(srcPos, count)
}

// SetBits sets count bits starting at bit position pos.
func (img *Image) SetBits(pos, count int) error {
	if err := img.checkRun(pos, count); err != nil {
		return err
	}
	fill(img.Bits, pos, count, true, false)
	return nil
}

// ResetBits clears count bits starting at bit position pos.
func (img *Image) ResetBits(pos, count int) error {
	if err := img.checkRun(pos, count); err != nil {
		return err
	}
	fill(img.Bits, pos, count, false, false)
	return nil
}

// NotBits inverts count bits starting at bit position pos.
func (img *Image) NotBits(pos, count int) error {
	if err := img.checkRun(pos, count); err != nil {
		return err
	}
	fill(img.Bits, pos, count, false, true)
	return nil
}

// AndBits ANDs count bits of src starting at srcPos into img at pos.
func (img *Image) AndBits(pos int, src *Image, srcPos, count int) error {
	return img.combineBits(pos, src, srcPos, count, OpAnd)
}

// OrBits ORs count bits of src starting at srcPos into img at pos.
func (img *Image) OrBits(pos int, src *Image, srcPos, count int) error {
	return img.combineBits(pos, src, srcPos, count, OpOr)
}

// XorBits XORs count bits of src starting at srcPos into img at pos.
func (img *Image) XorBits(pos int, src *Image, srcPos, count int) error {
	return img.combineBits(pos, src, srcPos, count, OpXor)
}

// AndNotBits clears the bits of img at pos that are set in src at srcPos.
func (img *Image) AndNotBits(pos int, src *Image, srcPos, count int) error {
	return img.combineBits(pos, src, srcPos, count, OpAndNot)
}

// CopyBits copies count bits of src starting at srcPos into img at pos.
func (img *Image) CopyBits(pos int, src *Image, srcPos, count int) error {
	return img.combineBits(pos, src, srcPos, count, OpCopy)
}

func (img *Image) combineBits(pos int, src *Image, srcPos, count int, o Op) error {
	if err := img.checkSource(src, pos, srcPos, count); err != nil {
		return err
	}
	combine(img.Bits, pos, src.Bits, srcPos, count, o)
	return nil
}

// CountOn returns the number of set bits in the run.
func (img *Image) CountOn(pos, count int) (int, error) {
	if err := img.checkRun(pos, count); err != nil {
		return 0, err
	}
	return countOn(img.Bits, pos, count), nil
}

// ScanOne returns the position of the first set bit in the run, or -1.
func (img *Image) ScanOne(pos, count int) (int, error) {
	if err := img.checkRun(pos, count); err != nil {
		return -1, err
	}
	return scanOne(img.Bits, pos, count), nil
}

// ScanZero returns the position of the first clear bit in the run, or -1.
func (img *Image) ScanZero(pos, count int) (int, error) {
	if err := img.checkRun(pos, count); err != nil {
		return -1, err
	}
	return scanZero(img.Bits, pos, count), nil
}

// ScanOneBackward returns the position of the last set bit in the run, or -1.
func (img *Image) ScanOneBackward(pos, count int) (int, error) {
	if err := img.checkRun(pos, count); err != nil {
		return -1, err
	}
	return scanBackward(img.Bits, pos, count, true), nil
}

// ScanZeroBackward returns the position of the last clear bit in the run, or -1.
func (img *Image) ScanZeroBackward(pos, count int) (int, error) {
	if err := img.checkRun(pos, count); err != nil {
		return -1, err
	}
	return scanBackward(img.Bits, pos, count, false), nil
}
