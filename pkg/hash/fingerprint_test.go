package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("admin", "secret", "ganeti.example.org", 5080)
	b := Fingerprint("admin", "secret", "ganeti.example.org", 5080)
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestFingerprintChangesWithAnyCredential(t *testing.T) {
	base := Fingerprint("admin", "secret", "ganeti.example.org", 5080)
	assert.NotEqual(t, base, Fingerprint("other", "secret", "ganeti.example.org", 5080))
	assert.NotEqual(t, base, Fingerprint("admin", "rotated", "ganeti.example.org", 5080))
	assert.NotEqual(t, base, Fingerprint("admin", "secret", "ganeti2.example.org", 5080))
	assert.NotEqual(t, base, Fingerprint("admin", "secret", "ganeti.example.org", 5081))
}
