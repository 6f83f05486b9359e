package crypto

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	DefaultArgon2MemoryKiB  uint32 = 64 * 1024
	DefaultArgon2Iterations uint32 = 3
	DefaultArgon2SaltLen           = 16
	DefaultArgon2KeyLen     uint32 = 32
	MinArgon2MemoryKiB      uint32 = 8 * 1024
	MaxArgon2MemoryKiB      uint32 = 1 << 20
	MaxArgon2Iterations     uint32 = 20
)

var ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")

type Argon2Params struct {
	Memory      uint32 `json:"memory"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
	SaltLen     int    `json:"salt_len"`
	KeyLen      uint32 `json:"key_len"`
}

func DefaultArgon2Params() Argon2Params {
	parallelism := runtime.NumCPU()
	if parallelism > 4 {
		parallelism = 4
	}
	if parallelism < 1 {
		parallelism = 1
	}

	return Argon2Params{
		Memory:      DefaultArgon2MemoryKiB,
		Iterations:  DefaultArgon2Iterations,
		Parallelism: uint8(parallelism),
		SaltLen:     DefaultArgon2SaltLen,
		KeyLen:      DefaultArgon2KeyLen,
	}
}

// Validate also bounds the upper limits because params are read back from
// untrusted backup files.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < MinArgon2MemoryKiB || p.Memory > MaxArgon2MemoryKiB:
		return fmt.Errorf("%w: memory must be between %d and %d KiB", ErrInvalidArgon2Params, MinArgon2MemoryKiB, MaxArgon2MemoryKiB)
	case p.Iterations == 0 || p.Iterations > MaxArgon2Iterations:
		return fmt.Errorf("%w: iterations must be between 1 and %d", ErrInvalidArgon2Params, MaxArgon2Iterations)
	case p.Parallelism == 0:
		return fmt.Errorf("%w: parallelism must be > 0", ErrInvalidArgon2Params)
	case p.SaltLen < 16:
		return fmt.Errorf("%w: salt length must be >= 16", ErrInvalidArgon2Params)
	case p.KeyLen != DefaultArgon2KeyLen:
		return fmt.Errorf("%w: key length must be %d", ErrInvalidArgon2Params, DefaultArgon2KeyLen)
	default:
		return nil
	}
}

func DeriveKeyFromPassphrase(passphrase, salt []byte, params Argon2Params) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: passphrase must not be empty", ErrInvalidArgon2Params)
	}
	if len(salt) < params.SaltLen {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidArgon2Params, params.SaltLen)
	}
	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen), nil
}

func RandomSalt(size int) ([]byte, error) {
	if size < 16 {
		return nil, fmt.Errorf("%w: salt length must be >= 16", ErrInvalidArgon2Params)
	}
	return randomNonce(size)
}
