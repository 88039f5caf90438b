package writer

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestSetupAES256Encryption(t *testing.T) {
	userPassword := []byte("testpass")
	ownerPassword := []byte("ownerpass")
	fileID := make([]byte, 16)
	rand.Read(fileID)

	encrypt, err := SetupAES256Encryption(userPassword, ownerPassword, fileID, -3904, true)
	if err != nil {
		t.Fatalf("SetupAES256Encryption() error = %v", err)
	}

	// Verify encryption parameters
	if encrypt.V != 5 {
		t.Errorf("V = %d, want 5", encrypt.V)
	}
	if encrypt.R != 5 {
		t.Errorf("R = %d, want 5", encrypt.R)
	}
	if encrypt.KeyLength != 32 {
		t.Errorf("KeyLength = %d, want 32", encrypt.KeyLength)
	}
	if len(encrypt.U) != 48 {
		t.Errorf("U length = %d, want 48", len(encrypt.U))
	}
	if len(encrypt.O) != 48 {
		t.Errorf("O length = %d, want 48", len(encrypt.O))
	}
	if len(encrypt.UE) == 0 {
		t.Error("UE should not be empty")
	}
	if len(encrypt.OE) == 0 {
		t.Error("OE should not be empty")
	}
	if len(encrypt.EncryptKey) != 32 {
		t.Errorf("EncryptKey length = %d, want 32", len(encrypt.EncryptKey))
	}
}

func TestCreateEncryptionDictionary(t *testing.T) {
	userPassword := []byte("testpass")
	ownerPassword := []byte("ownerpass")
	fileID := make([]byte, 16)
	rand.Read(fileID)

	encrypt, err := SetupAES256Encryption(userPassword, ownerPassword, fileID, -3904, true)
	if err != nil {
		t.Fatalf("SetupAES256Encryption() error = %v", err)
	}

	dict := CreateEncryptionDictionary(encrypt)
	dictStr := string(dict)

	// Verify dictionary contains required fields
	if !bytes.Contains(dict, []byte("/Filter /Standard")) {
		t.Error("Dictionary should contain /Filter /Standard")
	}
	if !bytes.Contains(dict, []byte("/V 5")) {
		t.Error("Dictionary should contain /V 5")
	}
	if !bytes.Contains(dict, []byte("/R 5")) {
		t.Error("Dictionary should contain /R 5")
	}
	if !bytes.Contains(dict, []byte("/Length 256")) {
		t.Error("Dictionary should contain /Length 256")
	}
	// Check for hex format (we use hex strings for binary data)
	if !bytes.Contains(dict, []byte("/U <")) {
		t.Error("Dictionary should contain /U <hex>")
	}
	if !bytes.Contains(dict, []byte("/O <")) {
		t.Error("Dictionary should contain /O <hex>")
	}
	if !bytes.Contains(dict, []byte("/UE <")) {
		t.Error("Dictionary should contain /UE <hex>")
	}
	if !bytes.Contains(dict, []byte("/OE <")) {
		t.Error("Dictionary should contain /OE <hex>")
	}

	t.Logf("Encryption dictionary: %s", dictStr)
}

