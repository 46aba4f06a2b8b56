// Package filekey protects the short "file key" token that authorizes access
// to a stored file. It is independent of request signing.
package filekey

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

const (
	KeyLength = 32
	IVLength  = aes.BlockSize
)

var (
	ErrKeyTooShort         = errors.New("filekey: secret must be at least 32 characters")
	ErrInsufficientData    = errors.New("filekey: insufficient input data to decrypt")
	ErrMalformedCiphertext = errors.New("filekey: malformed ciphertext")
)

// Encrypt encrypts plaintext with AES-256-CBC keyed by the first 32 bytes of secret.
// The result is IV||ciphertext, hex encoded when wantHex is set.
// An empty plaintext or empty secret yields "" without error.
func Encrypt(secret, plaintext string, wantHex bool) (string, error) {
	if plaintext == "" || secret == "" {
		return "", nil
	}
	block, err := newBlock(secret)
	if err != nil {
		return "", err
	}

	iv := make([]byte, IVLength)
	if _, err := rand.Read(iv); err != nil {
		return "", errors.Wrap(err, "filekey: failed to generate IV")
	}

	padded := pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, IVLength+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[IVLength:], padded)

	if wantHex {
		return hex.EncodeToString(out), nil
	}
	return string(out), nil
}

// Decrypt reverses Encrypt. isHex must match the flag used to produce blob.
func Decrypt(secret, blob string, isHex bool) (string, error) {
	if blob == "" || secret == "" {
		return "", nil
	}
	block, err := newBlock(secret)
	if err != nil {
		return "", err
	}

	data := []byte(blob)
	if isHex {
		data, err = hex.DecodeString(blob)
		if err != nil {
			// an odd-length prefix of valid hex is still too short, not malformed
			if len(blob)/2 < IVLength {
				return "", errors.WithStack(ErrInsufficientData)
			}
			return "", errors.Wrap(ErrMalformedCiphertext, err.Error())
		}
	}

	if len(data) < IVLength {
		return "", errors.WithStack(ErrInsufficientData)
	}

	iv, ct := data[:IVLength], data[IVLength:]
	if len(ct) == 0 || len(ct)%block.BlockSize() != 0 {
		return "", errors.Wrap(ErrMalformedCiphertext, "ciphertext is not a whole number of blocks")
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = unpad(plain, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newBlock(secret string) (cipher.Block, error) {
	if len(secret) < KeyLength {
		return nil, errors.WithStack(ErrKeyTooShort)
	}
	block, err := aes.NewCipher([]byte(secret[:KeyLength]))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return block, nil
}

// PKCS#7
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.Wrap(ErrMalformedCiphertext, "bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.Wrap(ErrMalformedCiphertext, "bad padding")
		}
	}
	return data[:len(data)-n], nil
}
