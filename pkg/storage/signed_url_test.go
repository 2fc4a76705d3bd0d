package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("sch-1", "sch-1/timetable.pdf")
	require.NoError(t, err)

	link, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "sch-1", link.Owner)
	assert.Equal(t, "sch-1/timetable.pdf", link.Path)
	assert.True(t, expiresAt.Equal(link.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("sch-1", "seats.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	link, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "seats.csv", link.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("sch-1", "seats.csv")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("a.b.c", false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Generate("sch.1", "x")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Generate("sch-1", "x")
	assert.Error(t, err)
}
