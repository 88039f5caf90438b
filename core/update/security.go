package update

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"

	"github.com/docspine/pdfupdate/core/encrypt"
	"github.com/docspine/pdfupdate/types"
	"github.com/docspine/pdfupdate/writer"
)

// SecurityManager encrypts the raw bytes of a stream object before they are
// written. DecodeParms, when nil, means the document-wide crypt filter
// applies.
type SecurityManager interface {
	Encrypt(ref Reference, decodeParms *Dict, data []byte) ([]byte, error)
}

// StandardSecurityHandler implements SecurityManager using the PDF standard
// security handler's per-object key derivation (ISO 32000-1 Algorithm 1),
// the same derivation the document parser's core/encrypt package uses on
// the decrypt side.
type StandardSecurityHandler struct {
	Encryption *types.PDFEncryption
}

// NewStandardSecurityHandler wraps derived encryption parameters (as
// produced by writer.SetupAES256Encryption or an RC4/AES-128 equivalent)
// into a SecurityManager.
func NewStandardSecurityHandler(enc *types.PDFEncryption) *StandardSecurityHandler {
	return &StandardSecurityHandler{Encryption: enc}
}

// Encrypt derives the object-specific key from the document's master
// EncryptKey and the object's (number, generation), then encrypts data
// with AES-CBC (V4/V5) or RC4 (V1/V2), matching the handler the document
// parser decrypts with.
func (h *StandardSecurityHandler) Encrypt(ref Reference, decodeParms *Dict, data []byte) ([]byte, error) {
	enc := h.Encryption
	if enc == nil || len(enc.EncryptKey) == 0 {
		return data, nil
	}

	objectKey := deriveObjectKey(enc, ref)

	switch enc.V {
	case 4, 5:
		return aesCBCEncrypt(objectKey, data)
	default:
		return rc4Encrypt(objectKey, data)
	}
}

// NewStandardSecurityHandlerForNewAES256 sets up brand-new AES-256 (V5/R5)
// standard security for a document that was not previously encrypted. It
// delegates the O/U/UE/OE computation and key wrapping to
// writer.SetupAES256Encryption, then cross-checks the generated dictionary
// through core/encrypt's decrypt-side V5 algorithm — deriving the same
// password key, verifying it reproduces the U value, and unwrapping the
// user key from UE — exactly what a reader does when opening the file with
// userPassword. The unwrapped key, not the one SetupAES256Encryption kept
// in memory, becomes the handler's EncryptKey, so a mismatch between the
// two directions surfaces here instead of silently producing a document
// nothing can open.
func NewStandardSecurityHandlerForNewAES256(userPassword, ownerPassword, fileID []byte, permissions int32, encryptMetadata bool) (*StandardSecurityHandler, error) {
	enc, err := writer.SetupAES256Encryption(userPassword, ownerPassword, fileID, permissions, encryptMetadata)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "setting up AES-256 encryption")
	}

	passwordKey, err := encrypt.DeriveEncryptionKeyV5(userPassword, enc, fileID, false)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "deriving V5 password key for verification")
	}

	ok, err := encrypt.VerifyUValueV5(userPassword, passwordKey, enc, fileID, false)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "verifying freshly generated AES-256 encryption dictionary")
	}
	if !ok {
		return nil, newError(ErrEncryption, "computed U value does not match the one just generated")
	}

	unwrapped, err := encrypt.UnwrapUserKeyV5(passwordKey, enc, false)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "unwrapping user key to confirm round trip")
	}
	enc.EncryptKey = unwrapped

	return NewStandardSecurityHandler(enc), nil
}

// NewStandardSecurityHandlerFromPassword derives the file's encryption key
// from an already-populated encryption dictionary and a password, the way
// a reader opening an encrypted document does. Use this to continue
// encrypting an incremental update with a document's existing key rather
// than generating new security from scratch.
//
// For V1-V4, core/encrypt.DeriveEncryptionKey's Algorithm 2 output IS the
// file's content key. For V5 it is not: Algorithm 2 there only derives the
// intermediate password key used to unwrap the real (random) content key
// out of /UE, so the V5 branch takes the extra unwrap step itself rather
// than delegating to DeriveEncryptionKey's V5 passthrough.
func NewStandardSecurityHandlerFromPassword(password []byte, enc *types.PDFEncryption, fileID []byte) (*StandardSecurityHandler, error) {
	var key []byte

	if enc.R >= 5 {
		passwordKey, err := encrypt.DeriveEncryptionKeyV5(password, enc, fileID, false)
		if err != nil {
			return nil, wrapError(ErrEncryption, err, "deriving V5 password key")
		}
		key, err = encrypt.UnwrapUserKeyV5(passwordKey, enc, false)
		if err != nil {
			return nil, wrapError(ErrEncryption, err, "unwrapping V5 user key")
		}
	} else {
		var err error
		key, err = encrypt.DeriveEncryptionKey(password, enc, fileID, false)
		if err != nil {
			return nil, wrapError(ErrEncryption, err, "deriving document encryption key from password")
		}
	}

	derived := *enc
	derived.EncryptKey = key
	return NewStandardSecurityHandler(&derived), nil
}

// deriveObjectKey implements PDF Algorithm 1: MD5(masterKey[:n] || objNum
// low 3 bytes || genNum low 2 bytes [|| "sAlT" for AES]), truncated to
// min(n+5, 16) bytes.
func deriveObjectKey(enc *types.PDFEncryption, ref Reference) []byte {
	n := enc.KeyLength
	if n == 0 {
		n = 5
	}

	h := md5.New()
	h.Write(enc.EncryptKey[:n])
	h.Write([]byte{byte(ref.Num), byte(ref.Num >> 8), byte(ref.Num >> 16)})
	h.Write([]byte{byte(ref.Gen), byte(ref.Gen >> 8)})
	if enc.V == 4 || enc.V == 5 {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)

	keyLen := n + 5
	if keyLen > 16 {
		keyLen = 16
	}
	return sum[:keyLen]
}

func aesCBCEncrypt(key, data []byte) ([]byte, error) {
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, wrapError(ErrEncryption, err, "generating AES IV")
	}

	padLen := 16 - (len(data) % 16)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "constructing AES cipher")
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	result := make([]byte, 16+len(out))
	copy(result, iv)
	copy(result[16:], out)
	return result, nil
}

func rc4Encrypt(key, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, wrapError(ErrEncryption, err, "constructing RC4 cipher")
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}
