package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/config"
	cryptopkg "github.com/servyre/inventario/internal/crypto"
	"github.com/servyre/inventario/internal/storage"
)

const (
	ExitCodeSuccess          = 0
	ExitCodeGeneric          = 1
	ExitCodeUsage            = 2
	ExitCodeNotFound         = 3
	ExitCodeInvalidReference = 4
	ExitCodeValidation       = 5
	ExitCodeAuthFailed       = 6
	ExitCodeIO               = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, app.ErrConfirmRequired):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, app.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, app.ErrInvalidReference):
		return asExitError(ExitCodeInvalidReference, err)
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, cryptopkg.ErrInvalidArgon2Params):
		return asExitError(ExitCodeValidation, err)
	case errors.Is(err, cryptopkg.ErrAuthenticationFailed):
		return asExitError(ExitCodeAuthFailed, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrSchemaTooNew) {
		return asExitError(ExitCodeIO, err)
	}

	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}
