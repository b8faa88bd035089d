package codec

import (
	"fmt"
	"sync"
)

// rsCodec is a systematic Reed-Solomon code over GF(256). Each k-byte input
// chunk is zero-padded to k, conceptually prefixed with 255-n zero bytes to
// form a full-length virtual codeword, and transmitted as data plus n-k
// parity bytes. Decoding reverses the virtual padding and corrects up to
// (n-k)/2 byte errors per block at unknown positions.
type rsCodec struct {
	n, k int
}

var (
	rsGenMu    sync.Mutex
	rsGenCache = map[int][]byte{}
)

// rsGeneratorPoly returns prod(x - alpha^i) for i in 0..nsym-1.
func rsGeneratorPoly(nsym int) []byte {
	rsGenMu.Lock()
	defer rsGenMu.Unlock()
	if g, ok := rsGenCache[nsym]; ok {
		return g
	}
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = gfPolyMul(g, []byte{1, gfPow(2, i)})
	}
	rsGenCache[nsym] = g
	return g
}

// rsEncodeBlock computes the nsym parity bytes of a 255-nsym byte message.
func rsEncodeBlock(msg []byte, nsym int) []byte {
	gen := rsGeneratorPoly(nsym)
	padded := make([]byte, len(msg)+nsym)
	copy(padded, msg)
	return gfPolyMod(padded, gen)
}

// rsEncode expands data into blocks of n bytes: k data bytes (zero padded)
// followed by n-k parity bytes computed over the virtually padded
// 255-byte codeword.
func rsEncode(data []byte, n, k int) ([]byte, error) {
	if n > 255 || k == 0 || k > n {
		return nil, fmt.Errorf("%w: rs(%d,%d)", ErrInvalidParameters, n, k)
	}
	ecc := n - k
	out := make([]byte, 0, (len(data)+k-1)/k*n)

	for pos := 0; pos < len(data); pos += k {
		end := min(pos+k, len(data))
		block := make([]byte, k)
		copy(block, data[pos:end])

		// The leading virtual zeros contribute nothing to the parity, so
		// the message fed to the encoder is the padded block alone placed
		// at the tail of the 255-byte codeword.
		msg := make([]byte, 255-ecc)
		copy(msg[255-ecc-k:], block)
		parity := rsEncodeBlock(msg, ecc)

		out = append(out, block...)
		out = append(out, parity...)
	}
	return out, nil
}

// rsDecode corrects each n-byte block and returns the concatenated data
// parts plus the total number of corrected symbols. A short tail block is
// accepted; the decoder re-inserts the virtual padding before the parity.
func rsDecode(data []byte, n, k int) ([]byte, int, error) {
	if n > 255 || k == 0 || k >= n {
		return nil, 0, fmt.Errorf("%w: rs(%d,%d)", ErrInvalidParameters, n, k)
	}
	ecc := n - k
	out := make([]byte, 0, len(data)/n*k)
	totalCorrected := 0

	for pos := 0; pos < len(data); {
		blockLen := min(n, len(data)-pos)
		block := data[pos : pos+blockLen]
		pos += blockLen

		if blockLen <= ecc {
			return nil, 0, fmt.Errorf("%w: rs block shorter than parity", ErrInsufficientData)
		}

		// Rebuild the virtual 255-byte codeword: leading zeros, data part
		// (padded when the block was truncated), parity at the tail.
		codeword := make([]byte, 255)
		dataPart := block[:blockLen-ecc]
		copy(codeword[255-ecc-k:], dataPart)
		copy(codeword[255-ecc:], block[blockLen-ecc:])

		corrected, errs, err := rsCorrectBlock(codeword, ecc)
		if err != nil {
			return nil, 0, err
		}
		for _, b := range corrected[:255-ecc-k] {
			if b != 0 {
				return nil, 0, fmt.Errorf("%w: rs correction hit virtual padding", ErrFECFailure)
			}
		}
		out = append(out, corrected[255-ecc-k:255-ecc]...)
		totalCorrected += errs
	}
	return out, totalCorrected, nil
}

// rsCorrectBlock runs syndrome decoding (Berlekamp-Massey, Chien search,
// Forney) over one full-length codeword. Returns the corrected codeword and
// the number of symbol errors fixed.
func rsCorrectBlock(codeword []byte, nsym int) ([]byte, int, error) {
	synd := make([]byte, nsym)
	clean := true
	for i := 0; i < nsym; i++ {
		synd[i] = gfPolyEval(codeword, gfPow(2, i))
		if synd[i] != 0 {
			clean = false
		}
	}
	if clean {
		return codeword, 0, nil
	}

	errLoc, err := rsFindErrorLocator(synd, nsym)
	if err != nil {
		return nil, 0, err
	}
	errPos, err := rsFindErrors(reversed(errLoc), len(codeword))
	if err != nil {
		return nil, 0, err
	}

	corrected, err := rsCorrectErrata(codeword, synd, errPos)
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < nsym; i++ {
		if gfPolyEval(corrected, gfPow(2, i)) != 0 {
			return nil, 0, fmt.Errorf("%w: rs correction did not converge", ErrFECFailure)
		}
	}
	return corrected, len(errPos), nil
}

// rsFindErrorLocator runs Berlekamp-Massey over the syndromes.
func rsFindErrorLocator(synd []byte, nsym int) ([]byte, error) {
	errLoc := []byte{1}
	oldLoc := []byte{1}

	for i := 0; i < nsym; i++ {
		delta := synd[i]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i-j])
		}
		oldLoc = append(oldLoc, 0)
		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := gfPolyScale(oldLoc, delta)
				oldLoc = gfPolyScale(errLoc, gfInv(delta))
				errLoc = newLoc
			}
			errLoc = gfPolyAdd(errLoc, gfPolyScale(oldLoc, delta))
		}
	}

	for len(errLoc) > 0 && errLoc[0] == 0 {
		errLoc = errLoc[1:]
	}
	errs := len(errLoc) - 1
	if errs*2 > nsym {
		return nil, fmt.Errorf("%w: too many errors for rs block", ErrFECFailure)
	}
	return errLoc, nil
}

// rsFindErrors locates error positions by Chien search over the reversed
// locator polynomial.
func rsFindErrors(errLocRev []byte, nmess int) ([]int, error) {
	errs := len(errLocRev) - 1
	var errPos []int
	for i := 0; i < nmess; i++ {
		if gfPolyEval(errLocRev, gfPow(2, i)) == 0 {
			errPos = append(errPos, nmess-1-i)
		}
	}
	if len(errPos) != errs {
		return nil, fmt.Errorf("%w: rs error locations not found", ErrFECFailure)
	}
	return errPos, nil
}

// rsCorrectErrata computes error magnitudes with the Forney algorithm and
// repairs the codeword in place.
func rsCorrectErrata(codeword, synd []byte, errPos []int) ([]byte, error) {
	coefPos := make([]int, len(errPos))
	for i, p := range errPos {
		coefPos[i] = len(codeword) - 1 - p
	}

	errataLoc := []byte{1}
	for _, p := range coefPos {
		errataLoc = gfPolyMul(errataLoc, gfPolyAdd([]byte{1}, []byte{gfPow(2, p), 0}))
	}

	// The syndrome polynomial is shifted by one degree (a trailing zero
	// coefficient) so that the X_i factor applied below cancels out.
	divisor := make([]byte, len(errataLoc)+1)
	divisor[0] = 1
	errEval := gfPolyMod(gfPolyMul(append(reversed(synd), 0), errataLoc), divisor)

	xs := make([]byte, len(coefPos))
	for i, p := range coefPos {
		xs[i] = gfPow(2, -(255 - p))
	}

	out := make([]byte, len(codeword))
	copy(out, codeword)
	for i, xi := range xs {
		xiInv := gfInv(xi)
		locPrime := byte(1)
		for j, xj := range xs {
			if j != i {
				locPrime = gfMul(locPrime, 1^gfMul(xiInv, xj))
			}
		}
		if locPrime == 0 {
			return nil, fmt.Errorf("%w: rs forney divisor is zero", ErrFECFailure)
		}
		y := gfPolyEval(errEval, xiInv)
		y = gfMul(gfPow(xi, 1), y)
		out[errPos[i]] ^= gfDiv(y, locPrime)
	}
	return out, nil
}

func reversed(p []byte) []byte {
	out := make([]byte, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

func (r rsCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		enc, err := rsEncode(frag, r.n, r.k)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

func (r rsCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	quality := 0.0
	for _, frag := range fragments {
		dec, corrected, err := rsDecode(frag, r.n, r.k)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, dec)
		numBlocks := len(frag) / r.n
		maxCorrectable := (r.n - r.k) / 2 * numBlocks
		if headroom := maxCorrectable - corrected; headroom > 0 {
			quality += float64(headroom)
		}
	}
	return out, quality, nil
}

func (rsCodec) IsChunking() bool { return false }
func (rsCodec) IsHeader() bool   { return false }
