package backup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}
	salt2, _ := GenerateSalt()
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")
	if !bytes.Equal(DeriveKey("registry", salt), DeriveKey("registry", salt)) {
		t.Error("same passphrase and salt should produce the same key")
	}
	if bytes.Equal(DeriveKey("registry", salt), DeriveKey("bursary", salt)) {
		t.Error("different passphrases should produce different keys")
	}
	if n := len(DeriveKey("registry", salt)); n != keySize {
		t.Errorf("key length = %d, want %d", n, keySize)
	}
}

func TestSealOpen(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 convocation data")

	sealed, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed data missing header")
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("plaintext visible in sealed output")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("open = %q, want %q", got, plaintext)
	}

	again, _ := Seal(plaintext, "correct horse")
	if bytes.Equal(sealed, again) {
		t.Error("sealing twice should use a fresh salt and nonce")
	}
}

func TestOpenRejects(t *testing.T) {
	sealed, err := Seal([]byte("data"), "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong passphrase err = %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := Open(tampered, "correct horse"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("tampered err = %v", err)
	}

	for _, in := range [][]byte{nil, []byte("CVB1short"), []byte("SQLite format 3\x00 plus plenty of padding bytes")} {
		if _, err := Open(in, "correct horse"); !errors.Is(err, ErrNotBackup) {
			t.Errorf("Open(%q) err = %v, want ErrNotBackup", in, err)
		}
	}
}

func TestDecryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "snapshot.db.enc")
	dst := filepath.Join(dir, "restored.db")

	sealed, _ := Seal([]byte("database bytes"), "pass")
	if err := os.WriteFile(src, sealed, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := DecryptFile(src, dst, "pass"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "database bytes" {
		t.Errorf("restored = %q", got)
	}

	if err := DecryptFile(filepath.Join(dir, "missing"), dst, "pass"); err == nil {
		t.Error("expected error for missing file")
	}
}
