package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"github.com/brickingsoft/errors"
	"math/big"
	"net"
	"time"
)

// SelfSigned creates an ECDSA P-256 certificate valid for hosts, which may be
// names or IP addresses. The certificate is its own CA; pool trusts it.
func SelfSigned(hosts ...string) (cert tls.Certificate, pool *x509.CertPool, err error) {
	if len(hosts) == 0 {
		err = errors.New("self signed certificate failed", errors.WithWrap(errors.Define("no hosts")))
		return
	}
	key, keyErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if keyErr != nil {
		err = errors.New("self signed certificate failed", errors.WithWrap(keyErr))
		return
	}
	serial, serialErr := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if serialErr != nil {
		err = errors.New("self signed certificate failed", errors.WithWrap(serialErr))
		return
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: hosts[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
	der, derErr := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if derErr != nil {
		err = errors.New("self signed certificate failed", errors.WithWrap(derErr))
		return
	}
	leaf, leafErr := x509.ParseCertificate(der)
	if leafErr != nil {
		err = errors.New("self signed certificate failed", errors.WithWrap(leafErr))
		return
	}
	cert = tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}
	pool = x509.NewCertPool()
	pool.AddCert(leaf)
	return
}
