// Package adminctl implements the interactive bootstrap of the first ADMIN
// profile.
package adminctl

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/farmtrack/internal/server/services"
)

// AdminCreator creates ADMIN profiles.
type AdminCreator interface {
	CreateAdmin(ctx context.Context, login, email, password string) (*services.ProfileSummary, error)
}

var errPasswordMismatch = errors.New("passwords do not match")

// Bootstrap asks for login, email and a twice-typed password, then creates
// the ADMIN profile.
func Bootstrap(ctx context.Context, in io.Reader, out io.Writer, creator AdminCreator) (*services.ProfileSummary, error) {
	reader := bufio.NewReader(in)

	login, err := GetSimpleText(reader, "Admin login", out)
	if err != nil {
		return nil, fmt.Errorf("read login: %w", err)
	}
	email, err := GetSimpleText(reader, "Admin email", out)
	if err != nil {
		return nil, fmt.Errorf("read email: %w", err)
	}

	pw, err := GetPassword("Password", out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	defer clear(pw)
	confirm, err := GetPassword("Repeat password", out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	defer clear(confirm)

	if subtle.ConstantTimeCompare(pw, confirm) != 1 {
		return nil, errPasswordMismatch
	}

	profile, err := creator.CreateAdmin(ctx, login, email, string(pw))
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Created admin %s <%s> (id %s)\n", profile.Login, profile.Email, profile.ID)
	return profile, nil
}
