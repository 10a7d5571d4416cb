package fieldcrypt

import (
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New("test-passphrase")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	return c
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Encoding
	}{
		{"plaintext", "Ahmed from the food bank", Plaintext},
		{"empty", "", Plaintext},
		{"server_envelope", ServerMarker + "c29tZWJ5dGVz", ServerEncrypted},
		{"client_opaque", ClientMarker + "AAEC/w==", ClientOpaque},
		{"marker_in_middle", "note about senc:v1: format", Plaintext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.value); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestPrepareForWriteAndRead_Plaintext(t *testing.T) {
	c := newTestCipher(t)

	stored, err := c.PrepareForWrite("Fatima, neighbourhood fund")
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	if !strings.HasPrefix(stored, ServerMarker) {
		t.Fatalf("expected server envelope, got %q", stored)
	}
	if strings.Contains(stored, "Fatima") {
		t.Error("stored value leaks plaintext")
	}

	out, err := c.PrepareForRead(stored)
	if err != nil {
		t.Fatalf("PrepareForRead failed: %v", err)
	}
	if out != "Fatima, neighbourhood fund" {
		t.Errorf("round trip mismatch: got %q", out)
	}
}

func TestPrepareForWrite_ClientOpaquePassesThrough(t *testing.T) {
	c := newTestCipher(t)
	opaque := ClientMarker + "9f86d081884c7d659a2feaa0c55ad015"

	stored, err := c.PrepareForWrite(opaque)
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	if stored != opaque {
		t.Errorf("client-opaque value was altered: got %q, want %q", stored, opaque)
	}

	out, err := c.PrepareForRead(stored)
	if err != nil {
		t.Fatalf("PrepareForRead failed: %v", err)
	}
	if out != opaque {
		t.Errorf("client-opaque value not returned byte-for-byte: got %q", out)
	}
}

func TestPrepareForWrite_ExistingEnvelopeNotDoubleEncrypted(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.PrepareForWrite("some recipient")
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	second, err := c.PrepareForWrite(first)
	if err != nil {
		t.Fatalf("PrepareForWrite failed on envelope: %v", err)
	}
	if second != first {
		t.Error("an existing server envelope was re-encrypted")
	}
}

func TestPrepareForRead_LegacyPlaintext(t *testing.T) {
	c := newTestCipher(t)

	out, err := c.PrepareForRead("legacy unencrypted note")
	if err != nil {
		t.Fatalf("PrepareForRead failed: %v", err)
	}
	if out != "legacy unencrypted note" {
		t.Errorf("legacy plaintext altered: got %q", out)
	}
}

func TestPrepareForWriteAndRead_Empty(t *testing.T) {
	c := newTestCipher(t)

	stored, err := c.PrepareForWrite("")
	if err != nil || stored != "" {
		t.Errorf("empty write: got (%q, %v)", stored, err)
	}
	out, err := c.PrepareForRead("")
	if err != nil || out != "" {
		t.Errorf("empty read: got (%q, %v)", out, err)
	}
}

func TestOpen_RejectsOpaqueAndPlaintext(t *testing.T) {
	c := newTestCipher(t)

	if _, err := c.open(ClientMarker + "deadbeef"); err != ErrOpaqueValue {
		t.Errorf("expected ErrOpaqueValue, got %v", err)
	}
	if _, err := c.open("plain"); err != ErrNotEncrypted {
		t.Errorf("expected ErrNotEncrypted, got %v", err)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := New("a-different-passphrase")
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	stored, err := c1.PrepareForWrite("secret recipient")
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	if _, err := c2.PrepareForRead(stored); err == nil {
		t.Error("expected decryption with wrong key to fail")
	}
}

func TestSeal_NoncesDiffer(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.PrepareForWrite("same plaintext")
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	b, err := c.PrepareForWrite("same plaintext")
	if err != nil {
		t.Fatalf("PrepareForWrite failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical envelopes")
	}
}
