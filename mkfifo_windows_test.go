//go:build windows

package triagescan_test

import (
	"errors"
	"testing"
)

func mkfifo(t *testing.T, _ string, _ uint32) error {
	t.Helper()

	return errors.New("mkfifo not supported on windows")
}
