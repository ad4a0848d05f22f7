package consensus

import (
	"errors"
	"testing"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

func newTestKey(t *testing.T) (*crypto.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, crypto.AddressFromPubKey(key.PublicKey())
}

func TestNewValidatorSet_LengthMismatch(t *testing.T) {
	_, addr := newTestKey(t)
	if _, err := NewValidatorSet([]types.Address{addr}, nil); err == nil {
		t.Error("mismatched addresses/public keys lengths should error")
	}
}

func TestValidatorSet_ContainsAndAddresses(t *testing.T) {
	_, addr := newTestKey(t)
	vs, err := NewValidatorSet([]types.Address{addr}, [][]byte{{0x01}})
	if err != nil {
		t.Fatalf("NewValidatorSet: %v", err)
	}
	if !vs.Contains(addr) {
		t.Error("set should contain its founding validator")
	}
	if addrs := vs.Addresses(); len(addrs) != 1 || addrs[0] != addr {
		t.Errorf("Addresses() = %v, want [%v]", addrs, addr)
	}
}

func TestValidatorSet_AddAndRemove(t *testing.T) {
	vs, err := NewValidatorSet(nil, nil)
	if err != nil {
		t.Fatalf("NewValidatorSet: %v", err)
	}
	_, addr := newTestKey(t)
	vs.Add(addr, []byte{0x02})
	if !vs.Contains(addr) {
		t.Fatal("added validator should be present")
	}
	vs.Remove(addr)
	if vs.Contains(addr) {
		t.Error("removed validator should no longer be present")
	}
}

func TestValidatorSet_AddIsIdempotent(t *testing.T) {
	vs, _ := NewValidatorSet(nil, nil)
	_, addr := newTestKey(t)
	vs.Add(addr, []byte{0x01})
	vs.Add(addr, []byte{0x02})
	if len(vs.Addresses()) != 1 {
		t.Errorf("adding the same address twice should not duplicate it, got %d entries", len(vs.Addresses()))
	}
}

func TestIdentifySigner_EmptySetRejected(t *testing.T) {
	vs, _ := NewValidatorSet(nil, nil)
	if _, err := vs.IdentifySigner(types.Hash{}, nil); !errors.Is(err, ErrNotValidator) {
		t.Errorf("err = %v, want ErrNotValidator", err)
	}
}

func TestIdentifySigner_FindsCorrectValidator(t *testing.T) {
	key, addr := newTestKey(t)
	vs, err := NewValidatorSet([]types.Address{addr}, [][]byte{key.PublicKey()})
	if err != nil {
		t.Fatalf("NewValidatorSet: %v", err)
	}

	msg := crypto.Hash([]byte("block header"))
	sig, err := key.Sign(msg[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	signer, err := vs.IdentifySigner(msg, sig)
	if err != nil {
		t.Fatalf("IdentifySigner: %v", err)
	}
	if signer != addr {
		t.Errorf("IdentifySigner returned %v, want %v", signer, addr)
	}
}

func TestIdentifySigner_RejectsNonMemberSignature(t *testing.T) {
	_, memberAddr := newTestKey(t)
	vs, err := NewValidatorSet([]types.Address{memberAddr}, [][]byte{{0x01, 0x02}})
	if err != nil {
		t.Fatalf("NewValidatorSet: %v", err)
	}

	intruder, _ := newTestKey(t)
	msg := crypto.Hash([]byte("block header"))
	sig, err := intruder.Sign(msg[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := vs.IdentifySigner(msg, sig); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifySignedBy_RejectsNonMember(t *testing.T) {
	vs, _ := NewValidatorSet(nil, nil)
	_, addr := newTestKey(t)
	if err := vs.VerifySignedBy(addr, types.Hash{}, nil); !errors.Is(err, ErrNotValidator) {
		t.Errorf("err = %v, want ErrNotValidator", err)
	}
}

func TestVerifySignedBy_AcceptsValidSignature(t *testing.T) {
	key, addr := newTestKey(t)
	vs, err := NewValidatorSet([]types.Address{addr}, [][]byte{key.PublicKey()})
	if err != nil {
		t.Fatalf("NewValidatorSet: %v", err)
	}
	msg := crypto.Hash([]byte("payload"))
	sig, err := key.Sign(msg[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := vs.VerifySignedBy(addr, msg, sig); err != nil {
		t.Errorf("VerifySignedBy: %v", err)
	}
}
