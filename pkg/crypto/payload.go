package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RequestDigest computes the hash a caller signs to authorize one dex
// request. The canonical form is a pipe-joined string of the action
// name and its arguments in wire order, e.g.
//
//	place|market=0|side=bid|price=100|quantity=3
//
// hashed with Keccak256. Deliberately simple: the dispatch layer only
// needs identity equality, not typed-data interop.
func RequestDigest(action string, args ...string) []byte {
	payload := action
	for _, a := range args {
		payload += "|" + a
	}
	return crypto.Keccak256([]byte(payload))
}

// SignRequest signs a canonical request payload.
func (s *Signer) SignRequest(action string, args ...string) ([]byte, error) {
	return s.Sign(RequestDigest(action, args...))
}

// VerifyRequest checks that sig over the canonical request payload was
// produced by claimed.
func VerifyRequest(claimed common.Address, sig []byte, action string, args ...string) error {
	recovered, err := RecoverAddress(RequestDigest(action, args...), sig)
	if err != nil {
		return err
	}
	if recovered != claimed {
		return fmt.Errorf("signature by %s, claimed %s", recovered.Hex(), claimed.Hex())
	}
	return nil
}
