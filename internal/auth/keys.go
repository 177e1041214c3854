package auth

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// KeySource resolves the RSA public key for a given key id. The local
// Keychain satisfies it, and so does JWKSClient for services that only
// verify tokens minted elsewhere.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// JWK is a single RSA key in JWKS form.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Keychain holds the active signing keypair plus the public halves of
// retired keys, so access tokens minted before a rotation keep
// verifying until they expire.
type Keychain struct {
	active    *rsa.PrivateKey
	activeKid string
	retired   map[string]*rsa.PublicKey
}

var _ KeySource = (*Keychain)(nil)

// NewKeychain builds a keychain from PEM material. privatePEM may be
// empty; the resulting keychain can verify retired keys but Active()
// returns ErrKeyNotConfigured.
func NewKeychain(privatePEM []byte, retiredPublicPEMs ...[]byte) (*Keychain, error) {
	kc := &Keychain{retired: make(map[string]*rsa.PublicKey)}
	if len(privatePEM) > 0 {
		priv, err := parsePrivateKey(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		kc.active = priv
		kc.activeKid = KeyID(&priv.PublicKey)
	}
	for i, pub := range retiredPublicPEMs {
		key, err := parsePublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("parse retired key %d: %w", i, err)
		}
		kc.retired[KeyID(key)] = key
	}
	return kc, nil
}

// NewKeychainFromKey wraps an in-memory keypair. Used by dev mode and
// tests where no PEM files exist.
func NewKeychainFromKey(priv *rsa.PrivateKey) *Keychain {
	return &Keychain{
		active:    priv,
		activeKid: KeyID(&priv.PublicKey),
		retired:   make(map[string]*rsa.PublicKey),
	}
}

// Active returns the signing key and its kid.
func (kc *Keychain) Active() (*rsa.PrivateKey, string, error) {
	if kc == nil || kc.active == nil {
		return nil, "", ErrKeyNotConfigured
	}
	return kc.active, kc.activeKid, nil
}

// PublicKey resolves a kid against the active key first, then the
// retired set.
func (kc *Keychain) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kc == nil {
		return nil, ErrKeyNotConfigured
	}
	if kc.active != nil && kid == kc.activeKid {
		return &kc.active.PublicKey, nil
	}
	if key, ok := kc.retired[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: unknown kid %q", ErrInvalidToken, kid)
}

// Document renders the keychain as a JWKS document. The active key
// comes first.
func (kc *Keychain) Document() JWKS {
	var doc JWKS
	if kc.active != nil {
		doc.Keys = append(doc.Keys, publicJWK(kc.activeKid, &kc.active.PublicKey))
	}
	for kid, key := range kc.retired {
		doc.Keys = append(doc.Keys, publicJWK(kid, key))
	}
	return doc
}

// KeyID derives a stable key id from the SHA-256 of the public key in
// DER form.
func KeyID(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

func publicJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Kid: kid,
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
