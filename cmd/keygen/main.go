package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hybriddex/hybriddex/pkg/crypto"
)

// keygen generates a secp256k1 keypair, or signs a canonical request
// payload with an existing key:
//
//	keygen
//	keygen -key <hex> -sign place market=0 side=bid price=100 quantity=3
func main() {
	keyHex := flag.String("key", "", "private key hex (generates a new key when empty)")
	action := flag.String("sign", "", "action to sign; remaining args are payload fields")
	flag.Parse()

	var signer *crypto.Signer
	var err error
	if *keyHex == "" {
		signer, err = crypto.GenerateKey()
	} else {
		signer, err = crypto.FromPrivateKeyHex(*keyHex)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "key error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address:     %s\n", signer.Address().Hex())
	if *keyHex == "" {
		fmt.Printf("Private Key: %s (keep secret)\n", signer.PrivateKeyHex())
	}

	if *action == "" {
		return
	}

	sig, err := signer.SignRequest(*action, flag.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signing error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Action:      %s\n", *action)
	for _, a := range flag.Args() {
		fmt.Printf("  %s\n", a)
	}
	fmt.Printf("Signature:   0x%x\n", sig)
}
