package http

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ServiceCAFile is mounted into pods of OpenShift clusters and signs the
// serving certificates of cluster services.
const ServiceCAFile = "/var/run/secrets/kubernetes.io/serviceaccount/service-ca.crt"

// CertPool returns the system pool extended with the PEM certificates of the
// given files.  Files which do not exist are skipped.
func CertPool(files ...string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	for _, f := range files {
		bb, err := os.ReadFile(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(bb) {
			return nil, fmt.Errorf("no certificates found in %v", f)
		}
	}
	return pool, nil
}
