package moderation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesselapp/vessel/pkg/apperror"
)

func TestCheckMatchesBannedTerm(t *testing.T) {
	f := NewFilter([]string{"spam", "scam"})

	err := f.Check("caption", "this is pure SPAM honestly")
	require.Error(t, err)

	var v *Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "caption", v.Field)
	assert.Equal(t, "spam", v.Term)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestCheckNormalizesLeetSpeak(t *testing.T) {
	f := NewFilter([]string{"spam"})

	assert.Error(t, f.Check("body", "buy my 5p4m"))
	assert.Error(t, f.Check("body", "buy my $pam"))
}

func TestCheckRespectsWordBoundaries(t *testing.T) {
	f := NewFilter([]string{"scam"})

	assert.NoError(t, f.Check("body", "scampi is delicious"))
	assert.Error(t, f.Check("body", "such a scam"))
}

func TestCheckCleanText(t *testing.T) {
	f := NewFilter([]string{"spam"})
	assert.NoError(t, f.Check("body", "a perfectly fine message"))
}

func TestEmptyTermsAreIgnored(t *testing.T) {
	f := NewFilter([]string{"", "  ", "spam"})
	assert.NoError(t, f.Check("body", "hello"))
	assert.Error(t, f.Check("body", "spam"))
}

func TestSanitizeStripsMarkup(t *testing.T) {
	f := NewFilter(nil)

	assert.Equal(t, "hello", f.Sanitize("<b>hello</b>"))
	assert.Equal(t, "click", f.Sanitize(`<a href="https://evil.example">click</a>`))
	assert.Equal(t, "", f.Sanitize("<script>alert(1)</script>"))
}
