// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// Auth/priv cryptographic primitives (spec.md C4), grounded on
// sipsolutions-gosnmp/v3.go's md5HMAC/shaHMAC/genlocalkey/isAuthentic/
// marshalV3ScopedPDU/decryptPacket. All of it sits on crypto/{md5,sha1,
// des,aes,cipher} — the stdlib is the right tool here: RFC 3414 pins these
// exact primitives (key-localization is specified byte-for-byte in terms of
// MD5/SHA-1, DES-CBC and AES-CFB are specified byte-for-byte too), so there
// is no third-party algorithm choice to make and nothing a library would add
// over the standard implementations.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"hash"
)

// AuthProtocol names an authentication algorithm.
type AuthProtocol int

const (
	AuthNone AuthProtocol = iota
	AuthMD5
	AuthSHA
)

// PrivProtocol names a privacy (encryption) algorithm.
type PrivProtocol int

const (
	PrivNone PrivProtocol = iota
	PrivDES
	PrivAES
)

func newAuthHash(p AuthProtocol) hash.Hash {
	if p == AuthSHA {
		return sha1.New()
	}
	return md5.New()
}

// localizeKey implements the RFC 3414 Appendix A password-to-key algorithm:
// the passphrase is expanded to a 1MB stream by repetition, hashed, then
// localized to the authoritative engine by hashing
// digest‖engineID‖digest.
func localizeKey(proto AuthProtocol, passphrase string, engineID []byte) []byte {
	h := newAuthHash(proto)
	if len(passphrase) == 0 {
		return nil
	}
	var pi int
	chunk := make([]byte, 64)
	for i := 0; i < 1048576; i += 64 {
		for e := 0; e < 64; e++ {
			chunk[e] = passphrase[pi%len(passphrase)]
			pi++
		}
		h.Write(chunk)
	}
	compressed := h.Sum(nil)

	local := newAuthHash(proto)
	local.Write(compressed)
	local.Write(engineID)
	local.Write(compressed)
	return local.Sum(nil)
}

// authenticationCode computes the 12-octet HMAC-MD5-96/HMAC-SHA1-96 digest
// of msg (which must already have its authParams slot zeroed) using the key
// localized to engineID.
func authenticationCode(proto AuthProtocol, passphrase string, engineID []byte, msg []byte) []byte {
	key := localizeKey(proto, passphrase, engineID)
	var extKey [64]byte
	copy(extKey[:], key)

	var k1, k2 [64]byte
	for i := range extKey {
		k1[i] = extKey[i] ^ 0x36
		k2[i] = extKey[i] ^ 0x5c
	}

	h1 := newAuthHash(proto)
	h1.Write(k1[:])
	h1.Write(msg)
	d1 := h1.Sum(nil)

	h2 := newAuthHash(proto)
	h2.Write(k2[:])
	h2.Write(d1)
	return h2.Sum(nil)[:12]
}

// verifyAuthenticationCode reports whether authParams is the correct digest
// of msg (with its authParams slot already zeroed by the caller).
func verifyAuthenticationCode(proto AuthProtocol, passphrase string, engineID []byte, msg []byte, authParams []byte) bool {
	expect := authenticationCode(proto, passphrase, engineID, msg)
	return hmac.Equal(expect, authParams)
}

// newPrivacySalt returns 8 cryptographically random bytes used as the
// per-message DES pre-IV input / AES IV low bytes (spec.md C4).
func newPrivacySalt() ([]byte, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return nil, wrap(err, "newPrivacySalt")
	}
	return salt, nil
}

// encryptScopedPDU encrypts plaintext (a BER-encoded ScopedPDU) under the
// key localized from passphrase/engineID, returning the ciphertext. salt is
// the 8-octet privacyParameters value that accompanies the message; boots
// and engTime are the authoritative engine's current engineBoots/engineTime,
// required by the AES IV construction (RFC 3826 §3.1.2.1).
func encryptScopedPDU(authProto AuthProtocol, proto PrivProtocol, passphrase string, engineID []byte, boots, engTime uint32, salt, plaintext []byte) ([]byte, error) {
	privKey := localizeKey(authProto, passphrase, engineID)
	switch proto {
	case PrivAES:
		if len(privKey) < 16 {
			return nil, &UsmError{Kind: DecryptionError, Cause: &TypeError{Reason: "privacy key too short for AES"}}
		}
		var iv [16]byte
		binary.BigEndian.PutUint32(iv[:4], boots)
		binary.BigEndian.PutUint32(iv[4:8], engTime)
		copy(iv[8:], salt)
		block, err := aes.NewCipher(privKey[:16])
		if err != nil {
			return nil, wrap(err, "encryptScopedPDU")
		}
		ciphertext := make([]byte, len(plaintext))
		cipher.NewCFBEncrypter(block, iv[:]).XORKeyStream(ciphertext, plaintext)
		return ciphertext, nil
	case PrivDES:
		if len(privKey) < 16 {
			return nil, &UsmError{Kind: DecryptionError, Cause: &TypeError{Reason: "privacy key too short for DES"}}
		}
		preIV := privKey[8:16]
		var iv [8]byte
		for i := range iv {
			iv[i] = preIV[i] ^ salt[i]
		}
		block, err := des.NewCipher(privKey[:8])
		if err != nil {
			return nil, wrap(err, "encryptScopedPDU")
		}
		padded := append([]byte(nil), plaintext...)
		if pad := len(padded) % des.BlockSize; pad != 0 {
			padded = append(padded, make([]byte, des.BlockSize-pad)...)
		}
		ciphertext := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, padded)
		return ciphertext, nil
	default:
		return nil, &UsmError{Kind: UnsupportedSecurityLevel, Cause: &TypeError{Reason: "no privacy protocol configured"}}
	}
}

// decryptScopedPDU is the inverse of encryptScopedPDU.
func decryptScopedPDU(authProto AuthProtocol, proto PrivProtocol, passphrase string, engineID []byte, boots, engTime uint32, salt, ciphertext []byte) ([]byte, error) {
	privKey := localizeKey(authProto, passphrase, engineID)
	switch proto {
	case PrivAES:
		if len(privKey) < 16 {
			return nil, &UsmError{Kind: DecryptionError, Cause: &TypeError{Reason: "privacy key too short for AES"}}
		}
		var iv [16]byte
		binary.BigEndian.PutUint32(iv[:4], boots)
		binary.BigEndian.PutUint32(iv[4:8], engTime)
		copy(iv[8:], salt)
		block, err := aes.NewCipher(privKey[:16])
		if err != nil {
			return nil, wrap(err, "decryptScopedPDU")
		}
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCFBDecrypter(block, iv[:]).XORKeyStream(plaintext, ciphertext)
		return plaintext, nil
	case PrivDES:
		if len(privKey) < 16 {
			return nil, &UsmError{Kind: DecryptionError, Cause: &TypeError{Reason: "privacy key too short for DES"}}
		}
		if len(ciphertext)%des.BlockSize != 0 {
			return nil, &UsmError{Kind: DecryptionError, Cause: &TypeError{Reason: "ciphertext not a multiple of the DES block size"}}
		}
		preIV := privKey[8:16]
		var iv [8]byte
		for i := range iv {
			iv[i] = preIV[i] ^ salt[i]
		}
		block, err := des.NewCipher(privKey[:8])
		if err != nil {
			return nil, wrap(err, "decryptScopedPDU")
		}
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plaintext, ciphertext)
		return plaintext, nil
	default:
		return nil, &UsmError{Kind: UnsupportedSecurityLevel, Cause: &TypeError{Reason: "no privacy protocol configured"}}
	}
}
