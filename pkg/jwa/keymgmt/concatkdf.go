package keymgmt

import (
	"crypto/sha256"
	"encoding/binary"
)

// concatKDF derives key material from an ECDH shared secret using the
// single-step concatenation KDF of NIST SP 800-56A section 5.8.1, as
// profiled for JOSE by RFC 7518 section 4.6.2: the hash is SHA-256,
// AlgorithmID is the "enc" value in direct agreement mode or the "alg"
// value in key wrap mode, and PartyUInfo/PartyVInfo carry the decoded
// "apu"/"apv" values. Each OtherInfo field is length-prefixed with a
// 32-bit big-endian count, and SuppPubInfo is the requested key size
// in bits.
func concatKDF(z []byte, algorithmID string, apu, apv []byte, keyBits int) []byte {
	otherInfo := make([]byte, 0, 16+len(algorithmID)+len(apu)+len(apv))
	otherInfo = appendLengthPrefixed(otherInfo, []byte(algorithmID))
	otherInfo = appendLengthPrefixed(otherInfo, apu)
	otherInfo = appendLengthPrefixed(otherInfo, apv)
	otherInfo = binary.BigEndian.AppendUint32(otherInfo, uint32(keyBits))

	keyLen := keyBits / 8
	reps := (keyLen + sha256.Size - 1) / sha256.Size

	derived := make([]byte, 0, reps*sha256.Size)
	counter := make([]byte, 4)

	for i := 1; i <= reps; i++ {
		binary.BigEndian.PutUint32(counter, uint32(i))

		h := sha256.New()
		h.Write(counter)
		h.Write(z)
		h.Write(otherInfo)
		derived = h.Sum(derived)
	}

	return derived[:keyLen]
}

func appendLengthPrefixed(dst, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}
