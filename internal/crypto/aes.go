package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// AESCrypto encrypts and decrypts the custody key blob with a passphrase, so
// the raw private key never has to sit in an env file.
type AESCrypto struct {
	passphrase string
}

type encryptedEnvelope struct {
	Algorithm string `json:"algorithm"`
	Salt      string `json:"salt"`
	IV        string `json:"iv"`
	Data      string `json:"data"`
}

const aesAlgorithm = "aes-256-cbc"

// NewAESCrypto creates a new AESCrypto instance
func NewAESCrypto(passphrase string) (*AESCrypto, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is empty")
	}
	return &AESCrypto{passphrase: passphrase}, nil
}

func (a *AESCrypto) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(a.passphrase), salt, 10000, 32, sha256.New)
}

// EncryptToBase64 encrypts plaintext into a base64 JSON envelope
func (a *AESCrypto) EncryptToBase64(plaintext []byte) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(a.deriveKey(salt))
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	envelope := encryptedEnvelope{
		Algorithm: aesAlgorithm,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		IV:        base64.StdEncoding.EncodeToString(iv),
		Data:      base64.StdEncoding.EncodeToString(ciphertext),
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecryptFromBase64 decrypts a base64 JSON envelope produced by EncryptToBase64
func (a *AESCrypto) DecryptFromBase64(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	var envelope encryptedEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if envelope.Algorithm != aesAlgorithm {
		return nil, errors.New("unsupported encryption algorithm: " + envelope.Algorithm)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, err
	}
	iv, err := base64.StdEncoding.DecodeString(envelope.IV)
	if err != nil {
		return nil, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("malformed ciphertext")
	}

	block, err := aes.NewCipher(a.deriveKey(salt))
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("invalid padding")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
