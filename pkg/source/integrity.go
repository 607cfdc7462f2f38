package source

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"hash"
	"io"
	"strings"

	"github.com/matzehuels/nodestore/pkg/errors"
)

// Digest is one hash-expression of a Subresource Integrity string.
type Digest struct {
	Algorithm string
	Sum       []byte
}

// algorithms lists supported SRI algorithms, strongest first.
var algorithms = []struct {
	name string
	new  func() hash.Hash
}{
	{"sha512", sha512.New},
	{"sha384", sha512.New384},
	{"sha256", sha256.New},
	{"sha1", sha1.New},
}

// ParseIntegrity returns the strongest supported digest in an SRI string
// such as "sha512-<base64> sha1-<base64>". Options after "?" are ignored, as
// are unknown algorithms. ok is false when nothing usable is present.
func ParseIntegrity(sri string) (d Digest, ok bool, err error) {
	found := map[string][]byte{}
	for _, expr := range strings.Fields(sri) {
		expr, _, _ = strings.Cut(expr, "?")
		algo, b64, cut := strings.Cut(expr, "-")
		if !cut {
			continue
		}
		sum, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return Digest{}, false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "integrity %q", expr)
		}
		if _, dup := found[algo]; !dup {
			found[algo] = sum
		}
	}
	for _, a := range algorithms {
		if sum, ok := found[a.name]; ok {
			return Digest{Algorithm: a.name, Sum: sum}, true, nil
		}
	}
	return Digest{}, false, nil
}

// Verify hashes r and compares it with d in constant time.
func (d Digest) Verify(r io.Reader) error {
	var h hash.Hash
	for _, a := range algorithms {
		if a.name == d.Algorithm {
			h = a.new()
		}
	}
	if h == nil {
		return errors.New(errors.ErrCodeInvalidManifest, "unsupported integrity algorithm %q", d.Algorithm)
	}
	if _, err := io.Copy(h, r); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "hash archive")
	}
	if subtle.ConstantTimeCompare(h.Sum(nil), d.Sum) != 1 {
		return errors.New(errors.ErrCodeIntegrityMismatch, "%s digest does not match", d.Algorithm)
	}
	return nil
}
