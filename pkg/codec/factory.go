package codec

import (
	"sync"

	"github.com/marmos91/hqfbp/pkg/encoding"
)

// Factory caches one codec instance per descriptor. The mutex only guards
// lazy population; instances themselves are immutable and safe to share.
type Factory struct {
	mu    sync.Mutex
	cache map[encoding.Encoding]Codec
}

func NewFactory() *Factory {
	return &Factory{cache: make(map[encoding.Encoding]Codec)}
}

// Get returns the codec for a descriptor, building it on first use.
// Unknown descriptors act as identity so foreign stack entries pass
// through unchanged.
func (f *Factory) Get(enc encoding.Encoding) Codec {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[enc]; ok {
		return c
	}
	c := build(enc)
	f.cache[enc] = c
	return c
}

func build(enc encoding.Encoding) Codec {
	switch enc.Kind {
	case encoding.KindH:
		return hCodec{}
	case encoding.KindIdentity:
		return identityCodec{}
	case encoding.KindGzip:
		return gzipCodec{}
	case encoding.KindDeflate:
		return deflateCodec{}
	case encoding.KindBrotli:
		return brotliCodec{}
	case encoding.KindLzma:
		return lzmaCodec{}
	case encoding.KindCRC16:
		return crc16Codec{}
	case encoding.KindCRC32:
		return crc32Codec{}
	case encoding.KindAX25:
		return ax25Codec{}
	case encoding.KindASM:
		return asmCodec{sync: enc.SyncWord()}
	case encoding.KindPostASM:
		return postASMCodec{sync: enc.SyncWord()}
	case encoding.KindReedSolomon:
		return rsCodec{n: enc.N, k: enc.K}
	case encoding.KindRaptorQ:
		if enc.Dynamic {
			if enc.Percent > 0 {
				return rqPercentCodec{mtu: enc.MTU, percent: enc.Percent}
			}
			return rqDynamicCodec{mtu: enc.MTU, repair: enc.Repair}
		}
		return rqCodec{length: enc.Len, mtu: enc.MTU, repair: enc.Repair}
	case encoding.KindLT:
		if enc.Dynamic {
			return ltDynamicCodec{mtu: enc.MTU, repair: enc.Repair}
		}
		return ltCodec{length: enc.Len, mtu: enc.MTU, repair: enc.Repair}
	case encoding.KindConv:
		return convCodec{k: enc.N, rate: enc.Rate}
	case encoding.KindGolay:
		return golayCodec{}
	case encoding.KindScrambler:
		return scramblerCodec{poly: enc.Poly, seed: enc.Seed, hasSeed: enc.HasSeed}
	case encoding.KindChunk:
		return chunkCodec{size: enc.Size}
	case encoding.KindRepeat:
		return repeatCodec{count: enc.Count}
	}
	return identityCodec{}
}
