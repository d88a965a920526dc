package mqtt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	is2 "github.com/matryer/is"

	"github.com/umobu/mqtt-repeater/bridge/config"
)

func rsaKeyPem(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func eccKeyPem(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func pkcs8KeyPem(t *testing.T, key any) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func Test_checkKeyKind(t *testing.T) {
	is := is2.New(t)

	is.NoErr(checkKeyKind(rsaKeyPem(t), config.RSA))
	is.NoErr(checkKeyKind(eccKeyPem(t), config.ECC))

	// mismatches
	is.True(checkKeyKind(rsaKeyPem(t), config.ECC) != nil)
	is.True(checkKeyKind(eccKeyPem(t), config.RSA) != nil)
}

func Test_checkKeyKind_pkcs8(t *testing.T) {
	is := is2.New(t)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	is.NoErr(err)
	is.NoErr(checkKeyKind(pkcs8KeyPem(t, rsaKey), config.RSA))

	eccKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	is.NoErr(err)
	is.NoErr(checkKeyKind(pkcs8KeyPem(t, eccKey), config.ECC))

	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	is.NoErr(err)
	is.True(checkKeyKind(pkcs8KeyPem(t, edKey), config.RSA) != nil)
}

func Test_checkKeyKind_garbage(t *testing.T) {
	is := is2.New(t)
	is.True(checkKeyKind([]byte("not a key"), config.RSA) != nil)
	is.True(checkKeyKind(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1, 2, 3}}), config.RSA) != nil)
}
