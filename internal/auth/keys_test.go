package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
)

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func privatePEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func publicPEM(t *testing.T, key *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestKeychainFromPEM(t *testing.T) {
	active := genKey(t)
	retired := genKey(t)

	kc, err := NewKeychain(privatePEM(t, active), publicPEM(t, &retired.PublicKey))
	if err != nil {
		t.Fatalf("NewKeychain: %v", err)
	}

	_, kid, err := kc.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if kid != KeyID(&active.PublicKey) {
		t.Fatalf("active kid mismatch: %q", kid)
	}

	ctx := context.Background()
	if _, err := kc.PublicKey(ctx, kid); err != nil {
		t.Fatalf("resolve active kid: %v", err)
	}
	if _, err := kc.PublicKey(ctx, KeyID(&retired.PublicKey)); err != nil {
		t.Fatalf("resolve retired kid: %v", err)
	}
	if _, err := kc.PublicKey(ctx, "nope"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown kid: expected ErrInvalidToken, got %v", err)
	}
}

func TestKeychainWithoutPrivateKey(t *testing.T) {
	retired := genKey(t)
	kc, err := NewKeychain(nil, publicPEM(t, &retired.PublicKey))
	if err != nil {
		t.Fatalf("NewKeychain: %v", err)
	}
	if _, _, err := kc.Active(); !errors.Is(err, ErrKeyNotConfigured) {
		t.Fatalf("expected ErrKeyNotConfigured, got %v", err)
	}
	if _, err := kc.PublicKey(context.Background(), KeyID(&retired.PublicKey)); err != nil {
		t.Fatalf("retired key must still verify: %v", err)
	}
}

func TestKeychainDocument(t *testing.T) {
	active := genKey(t)
	retired := genKey(t)
	kc, err := NewKeychain(privatePEM(t, active), publicPEM(t, &retired.PublicKey))
	if err != nil {
		t.Fatalf("NewKeychain: %v", err)
	}

	doc := kc.Document()
	if len(doc.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(doc.Keys))
	}
	if doc.Keys[0].Kid != KeyID(&active.PublicKey) {
		t.Fatalf("active key must come first")
	}
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Alg != "RS256" || k.Use != "sig" {
			t.Fatalf("unexpected jwk metadata: %+v", k)
		}
		if k.N == "" || k.E == "" {
			t.Fatalf("jwk missing modulus or exponent: %+v", k)
		}
	}
}
