package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService uses the minimum bcrypt cost so hashing takes
// milliseconds instead of ~250ms.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("password")
	hash2, _ := ps.Hash("password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_LongPasswords(t *testing.T) {
	ps := newTestPasswordService()

	long := strings.Repeat("a", 80)
	hash, err := ps.Hash(long)
	if err != nil {
		t.Fatalf("Hash() of an 80-byte password error = %v", err)
	}
	if err := ps.Verify(hash, long); err != nil {
		t.Errorf("Verify() of the same 80-byte password = %v", err)
	}

	// Bytes past 72 still matter.
	if err := ps.Verify(hash, strings.Repeat("a", 79)+"b"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() with a different tail = %v, want ErrPasswordMismatch", err)
	}
	if err := ps.Verify(hash, strings.Repeat("a", 72)); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() with the 72-byte prefix = %v, want ErrPasswordMismatch", err)
	}

	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Errorf("Hash() should accept a 72-byte password, got: %v", err)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  bool
		mismatch bool
	}{
		{name: "correct", hash: hash, password: "password"},
		{name: "wrong", hash: hash, password: "wrong-password", wantErr: true, mismatch: true},
		{name: "empty", hash: hash, password: "", wantErr: true, mismatch: true},
		{name: "garbage hash", hash: "not-a-bcrypt-hash", password: "password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrPasswordMismatch) != tt.mismatch {
				t.Errorf("errors.Is(err, ErrPasswordMismatch) = %v, want %v", !tt.mismatch, tt.mismatch)
			}
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  padded  "} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", pw, err)
		}
		if err := ps.Verify(hash, pw); err != nil {
			t.Errorf("Verify() failed for %q: %v", pw, err)
		}
	}
}
