package encoding

import "math/rand"

// RandomSensible samples a random but coherent encoding stack for a given
// seed. The same seed always yields the same stack. Compression is not
// covered; the layered grammar is
//
//	[segmentation] -> [object integrity] -> H -> [packet integrity] ->
//	[scramble/repeat] -> [outer FEC] -> [inner FEC]
//
// built innermost-first below and reversed at the end.
func RandomSensible(seed uint64) List {
	rng := rand.New(rand.NewSource(int64(seed)))
	var encs List

	currentMTU := 240

	// Inner FEC.
	rnd8 := rng.Intn(2)
	if rnd8 == 0 {
		encs = append(encs, Conv(7, "1/2"))
		currentMTU /= 2
	}

	// Outer FEC. No double convolution.
	var rnd7 int
	if rnd8 == 0 {
		rnd7 = rng.Intn(2)
	} else {
		rnd7 = rng.Intn(3)
	}
	switch rnd7 {
	case 1:
		k := currentMTU/2 + rng.Intn(currentMTU-currentMTU/2)
		encs = append(encs, ReedSolomon(currentMTU, k))
		currentMTU = k
	case 2:
		encs = append(encs, Conv(7, "1/2"))
		currentMTU /= 2
	}

	// Whitening scramble or extra repeat.
	switch rng.Intn(4) {
	case 1:
		// Mask 0x1C7: 1 + x + x^2 + x^6 + x^7 + x^8.
		encs = append(encs, Scrambler(0x1C7))
	case 2:
		// CCSDS: 1 + x^3 + x^5 + x^7 + x^8.
		encs = append(encs, ScramblerSeeded(0x1A9, 0xFF))
	case 3:
		encs = append(encs, Repeat(2+rng.Intn(3)))
	}

	rnd1 := rng.Intn(4) // segmentation: none, chunk, rq, lt

	// Packet integrity.
	switch rng.Intn(3) {
	case 1:
		encs = append(encs, CRC16())
		currentMTU = max(currentMTU-2, 0)
	case 2:
		encs = append(encs, CRC32())
		currentMTU = max(currentMTU-4, 0)
	}

	// Header boundary; reserve a rough header budget below it.
	encs = append(encs, H())
	currentMTU = max(currentMTU-40, 0)

	// Object integrity. A CRC is mandatory above a fountain code.
	var rnd2 int
	if rnd1 >= 2 {
		rnd2 = 1 + rng.Intn(2)
	} else {
		rnd2 = rng.Intn(3)
	}
	switch rnd2 {
	case 1:
		encs = append(encs, CRC16())
		currentMTU = max(currentMTU-2, 0)
	case 2:
		encs = append(encs, CRC32())
		currentMTU = max(currentMTU-4, 0)
	}

	// Object segmentation.
	switch rnd1 {
	case 1:
		encs = append(encs, Chunk(currentMTU))
	case 2:
		if rng.Intn(2) == 0 {
			encs = append(encs, RaptorQPercent(currentMTU, 50+rng.Intn(51)))
		} else {
			encs = append(encs, RaptorQDynamic(currentMTU, 1+rng.Intn(20)))
		}
	case 3:
		encs = append(encs, LTDynamic(currentMTU, 1+rng.Intn(20)))
	}

	for i, j := 0, len(encs)-1; i < j; i, j = i+1, j-1 {
		encs[i], encs[j] = encs[j], encs[i]
	}
	return encs
}
