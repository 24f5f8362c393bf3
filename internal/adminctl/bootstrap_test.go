package adminctl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	login, email, password string
	err                    error
}

func (f *fakeCreator) CreateAdmin(_ context.Context, login, email, password string) (*services.ProfileSummary, error) {
	f.login, f.email, f.password = login, email, password
	if f.err != nil {
		return nil, f.err
	}
	return &services.ProfileSummary{ID: "p-1", Login: login, Email: email, Role: models.RoleAdmin}, nil
}

// stubPasswords makes readPassword return the given answers in order.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestBootstrap(t *testing.T) {
	stubPasswords(t, "secret1", "secret1")
	creator := &fakeCreator{}
	var out bytes.Buffer

	p, err := Bootstrap(context.Background(), strings.NewReader("root\nroot@farm.io\n"), &out, creator)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, "root", creator.login)
	assert.Equal(t, "root@farm.io", creator.email)
	assert.Equal(t, "secret1", creator.password)
	assert.Contains(t, out.String(), "Created admin root")
}

func TestBootstrap_Mismatch(t *testing.T) {
	stubPasswords(t, "secret1", "secret2")
	creator := &fakeCreator{}

	_, err := Bootstrap(context.Background(), strings.NewReader("root\nroot@farm.io\n"), &bytes.Buffer{}, creator)
	assert.ErrorIs(t, err, errPasswordMismatch)
	assert.Empty(t, creator.login)
}

func TestBootstrap_CreatorError(t *testing.T) {
	stubPasswords(t, "secret1", "secret1")
	creator := &fakeCreator{err: common.ErrDuplicateSubject}

	_, err := Bootstrap(context.Background(), strings.NewReader("root\nroot@farm.io\n"), &bytes.Buffer{}, creator)
	assert.ErrorIs(t, err, common.ErrDuplicateSubject)
}

func TestBootstrap_MissingInput(t *testing.T) {
	stubPasswords(t)
	_, err := Bootstrap(context.Background(), strings.NewReader(""), &bytes.Buffer{}, &fakeCreator{})
	assert.Error(t, err)

	_, err = Bootstrap(context.Background(), strings.NewReader("root\nroot@farm.io\n"), &bytes.Buffer{}, &fakeCreator{})
	assert.Error(t, err)
}

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Name?\n> " {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	got, err := GetSimpleText(in, "Name?", &bytes.Buffer{})
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	if _, err := GetPassword("Password", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}
